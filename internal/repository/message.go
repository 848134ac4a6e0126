package repository

import (
	"context"

	"collaborative-whiteboard/internal/domain"
)

// MessageRepository 定义了聊天消息的存储操作。
type MessageRepository interface {
	// Create 保存一条新消息。所属房间不存在时返回 ErrForeignKey。
	Create(ctx context.Context, message *domain.Message) error

	// GetPageByRoom 按 created_at desc, id desc 返回房间消息的一页及总数。
	GetPageByRoom(ctx context.Context, roomID uint, page, size int) ([]domain.Message, int64, error)

	// NullifyUser 将某用户全部消息的 user_id 置空，author 快照保持不变。
	// 删除用户前由编排层调用 (应用层的 set-null 语义)。
	NullifyUser(ctx context.Context, userID uint) error

	// DeleteByRoom 删除房间的全部消息 (房间级联删除时使用)。
	DeleteByRoom(ctx context.Context, roomID uint) error
}
