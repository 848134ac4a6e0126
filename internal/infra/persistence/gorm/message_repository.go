package gormpersistence

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/repository"
)

// GormMessageRepository 是 MessageRepository 接口的 GORM 实现
type GormMessageRepository struct {
	db     *gorm.DB
	strict bool
}

// NewGormMessageRepository 创建 GormMessageRepository 实例
func NewGormMessageRepository(db *gorm.DB, strict bool) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db, strict: strict}
}

// Create 实现保存一条新消息
func (r *GormMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	err := r.db.WithContext(ctx).Create(message).Error
	if err != nil {
		if mapped := translateMySQLError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("gorm: create message for room %d: %w", message.RoomID, err)
	}
	return nil
}

// GetPageByRoom 实现分页获取房间消息，按 created_at desc, id desc 排序
func (r *GormMessageRepository) GetPageByRoom(ctx context.Context, roomID uint, page, size int) ([]domain.Message, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Message{}).Where("room_id = ?", roomID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("gorm: count messages for room %d: %w", roomID, err)
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Offset(page * size).
		Limit(size).
		Find(&messages).Error
	if err != nil {
		return nil, 0, fmt.Errorf("gorm: get message page %d for room %d: %w", page, roomID, err)
	}

	valid := messages[:0]
	for i := range messages {
		if vErr := messages[i].Validate(); vErr != nil {
			if r.strict {
				return nil, 0, fmt.Errorf("%w: %v", repository.ErrInvalidRow, vErr)
			}
			logrus.WithError(vErr).WithField("message_id", messages[i].ID).Warn("gorm: dropping invalid message row")
			continue
		}
		valid = append(valid, messages[i])
	}
	return valid, total, nil
}

// NullifyUser 实现将某用户全部消息的 user_id 置空（author 快照保持不变）
func (r *GormMessageRepository) NullifyUser(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("user_id = ?", userID).
		Update("user_id", nil).Error
	if err != nil {
		return fmt.Errorf("gorm: nullify user %d on messages: %w", userID, err)
	}
	return nil
}

// DeleteByRoom 实现删除房间的全部消息
func (r *GormMessageRepository) DeleteByRoom(ctx context.Context, roomID uint) error {
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&domain.Message{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete messages for room %d: %w", roomID, err)
	}
	return nil
}
