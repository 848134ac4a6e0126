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

// GormMembershipRepository 是 MembershipRepository 接口的 GORM 实现
type GormMembershipRepository struct {
	db     *gorm.DB
	strict bool
}

// NewGormMembershipRepository 创建 GormMembershipRepository 实例
func NewGormMembershipRepository(db *gorm.DB, strict bool) *GormMembershipRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMembershipRepository")
	}
	return &GormMembershipRepository{db: db, strict: strict}
}

// FindByUserAndRoom 实现按 (user_id, room_id) 查找成员资格
func (r *GormMembershipRepository) FindByUserAndRoom(ctx context.Context, userID, roomID uint) (*domain.Membership, error) {
	var membership domain.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND room_id = ?", userID, roomID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("gorm: find membership (user %d, room %d): %w", userID, roomID, err)
	}
	return &membership, nil
}

// GetPageByRoom 实现分页获取房间成员，按 joined_at desc, id desc 排序
func (r *GormMembershipRepository) GetPageByRoom(ctx context.Context, roomID uint, page, size int) ([]domain.Membership, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Membership{}).Where("room_id = ?", roomID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("gorm: count memberships for room %d: %w", roomID, err)
	}

	var memberships []domain.Membership
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at DESC, id DESC").
		Offset(page * size).
		Limit(size).
		Find(&memberships).Error
	if err != nil {
		return nil, 0, fmt.Errorf("gorm: get membership page %d for room %d: %w", page, roomID, err)
	}

	valid := memberships[:0]
	for i := range memberships {
		if vErr := memberships[i].Validate(); vErr != nil {
			if r.strict {
				return nil, 0, fmt.Errorf("%w: %v", repository.ErrInvalidRow, vErr)
			}
			logrus.WithError(vErr).WithField("membership_id", memberships[i].ID).Warn("gorm: dropping invalid membership row")
			continue
		}
		valid = append(valid, memberships[i])
	}
	return valid, total, nil
}

// Create 实现创建成员资格
func (r *GormMembershipRepository) Create(ctx context.Context, membership *domain.Membership) error {
	err := r.db.WithContext(ctx).Create(membership).Error
	if err != nil {
		if mapped := translateMySQLError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("gorm: create membership (user %d, room %d): %w", membership.UserID, membership.RoomID, err)
	}
	return nil
}

// Save 实现保存成员资格（角色/状态变更）
func (r *GormMembershipRepository) Save(ctx context.Context, membership *domain.Membership) error {
	err := r.db.WithContext(ctx).Save(membership).Error
	if err != nil {
		if mapped := translateMySQLError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("gorm: save membership %d: %w", membership.ID, err)
	}
	return nil
}

// Delete 实现删除成员资格
func (r *GormMembershipRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Membership{}, id)
	if result.Error != nil {
		return fmt.Errorf("gorm: delete membership %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrMembershipNotFound
	}
	return nil
}

// DeleteByRoom 实现删除房间的全部成员资格
func (r *GormMembershipRepository) DeleteByRoom(ctx context.Context, roomID uint) error {
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&domain.Membership{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete memberships for room %d: %w", roomID, err)
	}
	return nil
}
