package repository

import (
	"context"

	"collaborative-whiteboard/internal/domain"
)

// BoardRepository 定义了画板数据的存储和检索操作。
type BoardRepository interface {
	// FindByID 根据画板 ID 查找画板。不存在时返回 ErrBoardNotFound。
	FindByID(ctx context.Context, id uint) (*domain.Board, error)

	// GetPageByRoom 按 updated_at desc, id desc 返回房间内的一页画板及总数。
	// 相同时间戳的行由 id 倒序保证分页的确定性。
	GetPageByRoom(ctx context.Context, roomID uint, page, size int) ([]domain.Board, int64, error)

	// ListByRoom 返回房间内的全部画板 (级联删除时使用)。
	ListByRoom(ctx context.Context, roomID uint) ([]domain.Board, error)

	// CountByRoom 返回房间内画板数量。
	CountByRoom(ctx context.Context, roomID uint) (int64, error)

	// FindLatestInRoom 返回房间内 updated_at 最新的画板 (并列时取 id 最大者)，
	// 排除 excludeID 指定的画板。没有符合条件的画板时返回 ErrBoardNotFound。
	FindLatestInRoom(ctx context.Context, roomID uint, excludeID uint) (*domain.Board, error)

	// Create 创建新画板。所属房间不存在时返回 ErrForeignKey。
	Create(ctx context.Context, board *domain.Board) error

	// Save 保存已有画板 (基于 ID 更新)。
	Save(ctx context.Context, board *domain.Board) error

	// Delete 删除画板行本身；其状态历史由编排层先行删除。
	Delete(ctx context.Context, id uint) error
}
