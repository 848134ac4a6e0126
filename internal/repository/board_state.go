package repository

import (
	"context"

	"collaborative-whiteboard/internal/domain"
)

// BoardStateRepository 定义了画板状态历史的存储操作。
// 状态是不可变的：只有创建和删除，没有更新。
type BoardStateRepository interface {
	// FindByID 根据状态 ID 查找状态。不存在时返回 ErrBoardStateNotFound。
	FindByID(ctx context.Context, id uint) (*domain.BoardState, error)

	// FindCurrent 返回画板现存版本号最高的状态。
	// 画板没有任何状态时返回 ErrBoardStateNotFound。
	FindCurrent(ctx context.Context, boardID uint) (*domain.BoardState, error)

	// ListByBoard 按版本号升序返回画板的全部状态 (copy 时克隆历史使用)。
	ListByBoard(ctx context.Context, boardID uint) ([]domain.BoardState, error)

	// ListVersionsFrom 返回画板中版本号 >= version 的全部状态，
	// 供范围删除前捕获将被删除的状态 ID 集合。
	ListVersionsFrom(ctx context.Context, boardID uint, version uint) ([]domain.BoardState, error)

	// GetPageByBoard 按 version desc, id desc 返回一页状态及总数。
	GetPageByBoard(ctx context.Context, boardID uint, page, size int) ([]domain.BoardState, int64, error)

	// Create 创建新状态。(board_id, version) 冲突时返回 ErrDuplicateEntry，
	// 画板不存在时返回 ErrForeignKey。
	Create(ctx context.Context, state *domain.BoardState) error

	// DeleteVersionsFrom 删除画板中版本号 >= version 的全部状态，
	// 返回删除的行数。这是 "撤销到此处" 的范围删除。
	DeleteVersionsFrom(ctx context.Context, boardID uint, version uint) (int64, error)

	// DeleteByBoard 删除画板的全部状态 (画板级联删除时使用)。
	DeleteByBoard(ctx context.Context, boardID uint) error
}
