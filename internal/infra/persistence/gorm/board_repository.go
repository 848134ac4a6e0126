package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/repository"
)

// GormBoardRepository 是 BoardRepository 接口的 GORM 实现
type GormBoardRepository struct {
	db     *gorm.DB
	strict bool
}

// NewGormBoardRepository 创建 GormBoardRepository 实例
func NewGormBoardRepository(db *gorm.DB, strict bool) *GormBoardRepository {
	if db == nil {
		panic("database connection cannot be nil for GormBoardRepository")
	}
	return &GormBoardRepository{db: db, strict: strict}
}

// FindByID 实现根据画板 ID 查找画板
func (r *GormBoardRepository) FindByID(ctx context.Context, id uint) (*domain.Board, error) {
	var board domain.Board
	err := r.db.WithContext(ctx).First(&board, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrBoardNotFound
		}
		return nil, fmt.Errorf("gorm: find board by id %d: %w", id, err)
	}
	return &board, nil
}

// GetPageByRoom 实现分页获取房间内的画板列表
// 排序: updated_at desc, id desc (同一时间戳的行由 id 保证稳定全序)
func (r *GormBoardRepository) GetPageByRoom(ctx context.Context, roomID uint, page, size int) ([]domain.Board, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Board{}).Where("room_id = ?", roomID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("gorm: count boards for room %d: %w", roomID, err)
	}

	var boards []domain.Board
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("updated_at DESC, id DESC").
		Offset(page * size).
		Limit(size).
		Find(&boards).Error
	if err != nil {
		return nil, 0, fmt.Errorf("gorm: get board page %d for room %d: %w", page, roomID, err)
	}

	valid := boards[:0]
	for i := range boards {
		if vErr := boards[i].Validate(); vErr != nil {
			if r.strict {
				return nil, 0, fmt.Errorf("%w: %v", repository.ErrInvalidRow, vErr)
			}
			logrus.WithError(vErr).WithField("board_id", boards[i].ID).Warn("gorm: dropping invalid board row")
			continue
		}
		valid = append(valid, boards[i])
	}
	return valid, total, nil
}

// ListByRoom 实现获取房间内全部画板
func (r *GormBoardRepository) ListByRoom(ctx context.Context, roomID uint) ([]domain.Board, error) {
	var boards []domain.Board
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Find(&boards).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list boards for room %d: %w", roomID, err)
	}
	return boards, nil
}

// CountByRoom 实现统计房间内的画板数量
func (r *GormBoardRepository) CountByRoom(ctx context.Context, roomID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Board{}).Where("room_id = ?", roomID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count boards for room %d: %w", roomID, err)
	}
	return count, nil
}

// FindLatestInRoom 实现查找房间内最近更新的画板 (排除 excludeID)
// 并列时取 id 最大者
func (r *GormBoardRepository) FindLatestInRoom(ctx context.Context, roomID uint, excludeID uint) (*domain.Board, error) {
	var board domain.Board
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND id <> ?", roomID, excludeID).
		Order("updated_at DESC, id DESC").
		First(&board).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrBoardNotFound
		}
		return nil, fmt.Errorf("gorm: find latest board in room %d (excluding %d): %w", roomID, excludeID, err)
	}
	return &board, nil
}

// Create 实现创建新画板
func (r *GormBoardRepository) Create(ctx context.Context, board *domain.Board) error {
	err := r.db.WithContext(ctx).Create(board).Error
	if err != nil {
		if mapped := translateMySQLError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("gorm: create board for room %d: %w", board.RoomID, err)
	}
	return nil
}

// Save 实现保存画板信息（基于 ID 更新）
func (r *GormBoardRepository) Save(ctx context.Context, board *domain.Board) error {
	err := r.db.WithContext(ctx).Save(board).Error
	if err != nil {
		if mapped := translateMySQLError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("gorm: save board %d: %w", board.ID, err)
	}
	return nil
}

// Delete 实现删除画板行
func (r *GormBoardRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Board{}, id)
	if result.Error != nil {
		return fmt.Errorf("gorm: delete board %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrBoardNotFound
	}
	return nil
}
