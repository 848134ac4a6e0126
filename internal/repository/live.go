package repository

import (
	"context"
	"time"

	"collaborative-whiteboard/internal/domain"
)

// LiveStateRepository 定义了与画板实时增量流相关的操作，通常由 Redis 实现。
// 这里缓冲的内容是最终一致的旁路通道：增量先在这里暂存，
// 由后台任务周期性地折叠为一个已提交的 BoardState。
type LiveStateRepository interface {
	// === 实时增量缓冲 ===

	// StagePatch 将一个增量写入画板的暂存区 (HSet / HDel)，
	// 并把画板标记为待折叠。
	StagePatch(ctx context.Context, patch domain.Patch) error

	// GetStagedCells 返回画板暂存区的全部单元格。
	GetStagedCells(ctx context.Context, boardID uint) (domain.BoardPayload, error)

	// ClearStaged 清空画板暂存区并取消待折叠标记 (折叠成功后调用)。
	ClearStaged(ctx context.Context, boardID uint) error

	// ListDirtyBoards 返回所有待折叠的画板 ID。
	ListDirtyBoards(ctx context.Context) ([]uint, error)

	// === 操作计数 ===

	// IncrementOpCount 原子地增加画板的操作计数器。
	IncrementOpCount(ctx context.Context, boardID uint) error

	// GetOpCount 读取画板的操作计数。
	GetOpCount(ctx context.Context, boardID uint) (int64, error)

	// ResetOpCount 重置画板的操作计数器 (折叠后调用)。
	ResetOpCount(ctx context.Context, boardID uint) error

	// === 已提交状态缓存 ===

	// GetStateCache 尝试从缓存获取房间的激活状态。
	// 缓存未命中时返回 ErrNotFound。
	GetStateCache(ctx context.Context, roomID uint) (*domain.BoardState, error)

	// SetStateCache 将激活状态写入缓存。ttl 为 0 表示不过期。
	SetStateCache(ctx context.Context, roomID uint, state *domain.BoardState, ttl time.Duration) error

	// InvalidateStateCache 删除房间的激活状态缓存 (指针变更后调用)。
	InvalidateStateCache(ctx context.Context, roomID uint) error

	// === Pub/Sub ===

	// PublishEvent 将事件发布到房间的广播频道。
	PublishEvent(ctx context.Context, event domain.RoomEvent) error

	// === 限流 ===

	// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
	// 返回 true 表示超限。
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// EventSubscriber 订阅房间广播频道，供 Hub 把跨实例事件分发给本地连接。
type EventSubscriber interface {
	// SubscribeRoom 订阅房间频道。返回的通道在取消订阅或 ctx 结束后关闭；
	// 调用返回的函数取消订阅。
	SubscribeRoom(ctx context.Context, roomID uint) (<-chan []byte, func(), error)
}
