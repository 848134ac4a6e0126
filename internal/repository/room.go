package repository

import (
	"context"

	"collaborative-whiteboard/internal/domain"
)

// RoomRepository 定义了房间数据的存储和检索操作。
type RoomRepository interface {
	// FindByID 根据房间 ID 查找房间。
	// 如果房间不存在，返回 ErrRoomNotFound。
	FindByID(ctx context.Context, id uint) (*domain.Room, error)

	// FindByName 根据房间名查找房间。
	// 如果房间不存在，返回 ErrRoomNotFound。
	FindByName(ctx context.Context, name string) (*domain.Room, error)

	// GetPage 按 updated_at desc, id desc 返回一页房间及总数。
	GetPage(ctx context.Context, page, size int) ([]domain.Room, int64, error)

	// Create 创建新房间。房间名冲突时返回 ErrDuplicateEntry。
	Create(ctx context.Context, room *domain.Room) error

	// Save 保存已有房间 (基于 ID 更新)。
	Save(ctx context.Context, room *domain.Room) error

	// Delete 删除房间行本身，不级联；子实体由编排层先行删除。
	Delete(ctx context.Context, id uint) error
}
