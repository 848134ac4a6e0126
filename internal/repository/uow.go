package repository

import "context"

// UnitOfWork 是一组共享同一事务作用域的仓库句柄。
// 编排层的每个多步过程都在一个 UnitOfWork 内组合仓库调用：
// 入口通过 TxManager 打开一个新的事务作用域（根），内部辅助函数
// 接收已有的 UnitOfWork 继续组合（嵌套），从而保证整个过程原子提交。
type UnitOfWork interface {
	Rooms() RoomRepository
	Boards() BoardRepository
	BoardStates() BoardStateRepository
	Memberships() MembershipRepository
	Messages() MessageRepository
	Users() UserRepository
}

// TxManager 提供事务作用域。fn 返回错误时整个事务回滚，
// 中间的指针更新绝不会被外部观察到。
type TxManager interface {
	RunInTransaction(ctx context.Context, fn func(uow UnitOfWork) error) error
}
