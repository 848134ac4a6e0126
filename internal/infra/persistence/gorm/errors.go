// Package gormpersistence 提供各仓库接口的 GORM/MySQL 实现。
package gormpersistence

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"collaborative-whiteboard/internal/repository"
)

// MySQL 错误码
const (
	mysqlErrDuplicateEntry = 1062 // 唯一约束冲突
	mysqlErrForeignKey     = 1452 // 外键约束冲突 (引用的行不存在)
)

// translateMySQLError 将底层 MySQL 约束错误映射为仓库层定义的错误。
// 不认识的错误原样返回，由调用方包装。
func translateMySQLError(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDuplicateEntry:
			return repository.ErrDuplicateEntry
		case mysqlErrForeignKey:
			return repository.ErrForeignKey
		}
	}
	return err
}
