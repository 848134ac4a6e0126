package repository

import (
	"context"

	"collaborative-whiteboard/internal/domain"
)

// MembershipRepository 定义了成员资格数据的存储操作。
type MembershipRepository interface {
	// FindByUserAndRoom 按 (user_id, room_id) 查找成员资格。
	// 不存在时返回 ErrMembershipNotFound。
	FindByUserAndRoom(ctx context.Context, userID, roomID uint) (*domain.Membership, error)

	// GetPageByRoom 按 joined_at desc, id desc 返回房间成员的一页及总数。
	GetPageByRoom(ctx context.Context, roomID uint, page, size int) ([]domain.Membership, int64, error)

	// Create 创建成员资格。(user_id, room_id) 冲突时返回 ErrDuplicateEntry。
	Create(ctx context.Context, membership *domain.Membership) error

	// Save 保存已有成员资格 (基于 ID 更新，用于角色/状态变更)。
	Save(ctx context.Context, membership *domain.Membership) error

	// Delete 删除成员资格。
	Delete(ctx context.Context, id uint) error

	// DeleteByRoom 删除房间的全部成员资格 (房间级联删除时使用)。
	DeleteByRoom(ctx context.Context, roomID uint) error
}
