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

// GormBoardStateRepository 是 BoardStateRepository 接口的 GORM 实现
// 状态行是不可变的：这里只有创建、查询和删除，没有更新。
type GormBoardStateRepository struct {
	db     *gorm.DB
	strict bool
}

// NewGormBoardStateRepository 创建 GormBoardStateRepository 实例
func NewGormBoardStateRepository(db *gorm.DB, strict bool) *GormBoardStateRepository {
	if db == nil {
		panic("database connection cannot be nil for GormBoardStateRepository")
	}
	return &GormBoardStateRepository{db: db, strict: strict}
}

// FindByID 实现根据状态 ID 查找状态
func (r *GormBoardStateRepository) FindByID(ctx context.Context, id uint) (*domain.BoardState, error) {
	var state domain.BoardState
	err := r.db.WithContext(ctx).First(&state, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrBoardStateNotFound
		}
		return nil, fmt.Errorf("gorm: find board state by id %d: %w", id, err)
	}
	return &state, nil
}

// FindCurrent 实现获取画板现存版本号最高的状态
// 通过按版本号降序排序并取第一个实现
func (r *GormBoardStateRepository) FindCurrent(ctx context.Context, boardID uint) (*domain.BoardState, error) {
	var state domain.BoardState
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("version DESC").
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrBoardStateNotFound
		}
		return nil, fmt.Errorf("gorm: find current state for board %d: %w", boardID, err)
	}
	return &state, nil
}

// ListByBoard 实现按版本号升序获取画板的全部状态
func (r *GormBoardStateRepository) ListByBoard(ctx context.Context, boardID uint) ([]domain.BoardState, error) {
	var states []domain.BoardState
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("version ASC").
		Find(&states).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list states for board %d: %w", boardID, err)
	}
	return states, nil
}

// ListVersionsFrom 实现获取画板中版本号 >= version 的全部状态
func (r *GormBoardStateRepository) ListVersionsFrom(ctx context.Context, boardID uint, version uint) ([]domain.BoardState, error) {
	var states []domain.BoardState
	err := r.db.WithContext(ctx).
		Where("board_id = ? AND version >= ?", boardID, version).
		Order("version ASC").
		Find(&states).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list states from version %d for board %d: %w", version, boardID, err)
	}
	return states, nil
}

// GetPageByBoard 实现分页获取画板的状态历史，按 version desc, id desc 排序
func (r *GormBoardStateRepository) GetPageByBoard(ctx context.Context, boardID uint, page, size int) ([]domain.BoardState, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.BoardState{}).Where("board_id = ?", boardID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("gorm: count states for board %d: %w", boardID, err)
	}

	var states []domain.BoardState
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("version DESC, id DESC").
		Offset(page * size).
		Limit(size).
		Find(&states).Error
	if err != nil {
		return nil, 0, fmt.Errorf("gorm: get state page %d for board %d: %w", page, boardID, err)
	}

	valid := states[:0]
	for i := range states {
		if vErr := states[i].Validate(); vErr != nil {
			if r.strict {
				return nil, 0, fmt.Errorf("%w: %v", repository.ErrInvalidRow, vErr)
			}
			logrus.WithError(vErr).WithField("state_id", states[i].ID).Warn("gorm: dropping invalid board state row")
			continue
		}
		valid = append(valid, states[i])
	}
	return valid, total, nil
}

// Create 实现创建新状态
// (board_id, version) 的唯一索引使重复版本映射为 ErrDuplicateEntry
func (r *GormBoardStateRepository) Create(ctx context.Context, state *domain.BoardState) error {
	err := r.db.WithContext(ctx).Create(state).Error
	if err != nil {
		if mapped := translateMySQLError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("gorm: create state (board %d, version %d): %w", state.BoardID, state.Version, err)
	}
	return nil
}

// DeleteVersionsFrom 实现范围删除：删除画板中版本号 >= version 的全部状态
func (r *GormBoardStateRepository) DeleteVersionsFrom(ctx context.Context, boardID uint, version uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("board_id = ? AND version >= ?", boardID, version).
		Delete(&domain.BoardState{})
	if result.Error != nil {
		return 0, fmt.Errorf("gorm: delete states from version %d for board %d: %w", version, boardID, result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteByBoard 实现删除画板的全部状态
func (r *GormBoardStateRepository) DeleteByBoard(ctx context.Context, boardID uint) error {
	err := r.db.WithContext(ctx).Where("board_id = ?", boardID).Delete(&domain.BoardState{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete states for board %d: %w", boardID, err)
	}
	return nil
}
