package gormpersistence

import (
	"context"

	"gorm.io/gorm"

	"collaborative-whiteboard/internal/repository"
)

// GormUnitOfWork 将一组仓库绑定到同一个 *gorm.DB 句柄上。
// 句柄可以是根连接 (自动提交)，也可以是事务内的句柄。
type GormUnitOfWork struct {
	db     *gorm.DB
	strict bool // 行校验严格模式：true 时坏行使整页失败，false 时丢弃并告警
}

// NewGormUnitOfWork 创建绑定到给定句柄的 UnitOfWork。
func NewGormUnitOfWork(db *gorm.DB, strict bool) *GormUnitOfWork {
	if db == nil {
		panic("database handle cannot be nil for GormUnitOfWork")
	}
	return &GormUnitOfWork{db: db, strict: strict}
}

func (u *GormUnitOfWork) Rooms() repository.RoomRepository {
	return NewGormRoomRepository(u.db, u.strict)
}

func (u *GormUnitOfWork) Boards() repository.BoardRepository {
	return NewGormBoardRepository(u.db, u.strict)
}

func (u *GormUnitOfWork) BoardStates() repository.BoardStateRepository {
	return NewGormBoardStateRepository(u.db, u.strict)
}

func (u *GormUnitOfWork) Memberships() repository.MembershipRepository {
	return NewGormMembershipRepository(u.db, u.strict)
}

func (u *GormUnitOfWork) Messages() repository.MessageRepository {
	return NewGormMessageRepository(u.db, u.strict)
}

func (u *GormUnitOfWork) Users() repository.UserRepository {
	return NewGormUserRepository(u.db)
}

// GormTxManager 是 TxManager 接口的 GORM 实现。
// RunInTransaction 内部使用 db.Transaction：fn 返回错误时整体回滚。
// GORM 对嵌套调用会自动降级为 SAVEPOINT，但编排层约定通过传递
// UnitOfWork 组合，正常情况下一次编排调用只打开一个事务。
type GormTxManager struct {
	db     *gorm.DB
	strict bool
}

// NewGormTxManager 创建 GormTxManager 实例。
func NewGormTxManager(db *gorm.DB, strict bool) *GormTxManager {
	if db == nil {
		panic("database connection cannot be nil for GormTxManager")
	}
	return &GormTxManager{db: db, strict: strict}
}

// RunInTransaction 在一个数据库事务内执行 fn。
func (m *GormTxManager) RunInTransaction(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormUnitOfWork(tx, m.strict))
	})
}
