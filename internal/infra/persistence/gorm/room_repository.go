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

// GormRoomRepository 是 RoomRepository 接口的 GORM 实现
type GormRoomRepository struct {
	db     *gorm.DB
	strict bool
}

// NewGormRoomRepository 创建 GormRoomRepository 实例
func NewGormRoomRepository(db *gorm.DB, strict bool) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db, strict: strict}
}

// FindByID 实现根据房间 ID 查找房间
func (r *GormRoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %d: %w", id, err)
	}
	return &room, nil
}

// FindByName 实现根据房间名查找房间
func (r *GormRoomRepository) FindByName(ctx context.Context, name string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by name '%s': %w", name, err)
	}
	return &room, nil
}

// GetPage 实现分页获取房间列表，按 updated_at desc, id desc 排序
func (r *GormRoomRepository) GetPage(ctx context.Context, page, size int) ([]domain.Room, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Room{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("gorm: count rooms: %w", err)
	}

	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Order("updated_at DESC, id DESC").
		Offset(page * size).
		Limit(size).
		Find(&rooms).Error
	if err != nil {
		return nil, 0, fmt.Errorf("gorm: get room page %d: %w", page, err)
	}

	// 输出校验：宽松模式丢弃坏行并告警，严格模式使整页失败
	valid := rooms[:0]
	for i := range rooms {
		if vErr := rooms[i].Validate(); vErr != nil {
			if r.strict {
				return nil, 0, fmt.Errorf("%w: %v", repository.ErrInvalidRow, vErr)
			}
			logrus.WithError(vErr).WithField("room_id", rooms[i].ID).Warn("gorm: dropping invalid room row")
			continue
		}
		valid = append(valid, rooms[i])
	}
	return valid, total, nil
}

// Create 实现创建新房间
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	err := r.db.WithContext(ctx).Create(room).Error
	if err != nil {
		if mapped := translateMySQLError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("gorm: create room '%s': %w", room.Name, err)
	}
	return nil
}

// Save 实现保存房间信息（基于 ID 更新）
func (r *GormRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	err := r.db.WithContext(ctx).Save(room).Error
	if err != nil {
		if mapped := translateMySQLError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("gorm: save room (id: %d, name: %s): %w", room.ID, room.Name, err)
	}
	return nil
}

// Delete 实现删除房间行
func (r *GormRoomRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Room{}, id)
	if result.Error != nil {
		return fmt.Errorf("gorm: delete room %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrRoomNotFound
	}
	return nil
}
