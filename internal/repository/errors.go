package repository

import "errors"

// 通用的存储库错误
var (
	// ErrNotFound 表示请求的记录未找到
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry 表示尝试插入或更新的数据违反了唯一约束
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
	// ErrForeignKey 表示写入违反了外键约束 (引用的行不存在)
	ErrForeignKey = errors.New("repository: foreign key violation")
	// ErrInvalidRow 表示读出的行未通过输出校验 (严格模式下向上传播)
	ErrInvalidRow = errors.New("repository: row failed output validation")
)

// 特定资源的错误 (可以基于通用错误创建)
var (
	ErrUserNotFound       = ErrNotFound
	ErrRoomNotFound       = ErrNotFound
	ErrBoardNotFound      = ErrNotFound
	ErrBoardStateNotFound = ErrNotFound
	ErrMembershipNotFound = ErrNotFound
)
