package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"collaborative-whiteboard/internal/domain"
)

// MigrateDB handles all database migrations using the provided GORM DB instance.
// board_states 表用自定义 SQL 创建，以保证 (board_id, version) 的复合唯一索引
// 在 MySQL 上的建表参数 (InnoDB / utf8mb4) 可控；其余模型交给 AutoMigrate。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	if err := migrateBoardStatesTable(db); err != nil {
		return fmt.Errorf("failed to migrate board_states table: %w", err)
	}

	err := db.AutoMigrate(
		&domain.User{},
		&domain.Room{},
		&domain.Board{},
		&domain.Membership{},
		&domain.Message{},
	)
	if err != nil {
		logrus.Errorf("Failed to auto-migrate tables: %v", err)
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}

// migrateBoardStatesTable 在表不存在时用自定义 SQL 创建 board_states 表，
// 已存在时交给 AutoMigrate 校验列和索引。
func migrateBoardStatesTable(db *gorm.DB) error {
	var count int64
	db.Raw("SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = 'board_states'").Count(&count)

	if count == 0 {
		return createBoardStatesTable(db)
	}
	if err := db.AutoMigrate(&domain.BoardState{}); err != nil {
		logrus.Errorf("Failed to auto-migrate board_states table: %v", err)
		return fmt.Errorf("failed to migrate board_states indexes: %w", err)
	}
	logrus.Info("board_states table schema checked/updated successfully")
	return nil
}

func createBoardStatesTable(db *gorm.DB) error {
	sql := `
	CREATE TABLE board_states (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		board_id BIGINT UNSIGNED NOT NULL,
		version BIGINT UNSIGNED NOT NULL,
		data LONGTEXT NOT NULL,
		created_at DATETIME(3),
		INDEX idx_created_at (created_at),
		UNIQUE INDEX idx_board_version (board_id, version)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_general_ci;
	`
	if err := db.Exec(sql).Error; err != nil {
		logrus.Errorf("Failed to create board_states table: %v", err)
		return fmt.Errorf("failed to create board_states table: %w", err)
	}
	logrus.Info("board_states table created successfully")
	return nil
}
