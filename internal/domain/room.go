// Package domain 定义了应用程序中使用的数据结构 (数据库模型)。
package domain

import (
	"fmt"
	"time"
)

// Room 表示一个协作白板房间，是 Board/Membership/Message 的聚合根。
type Room struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`                                // 房间唯一标识符 (主键)
	Name               string    `gorm:"type:varchar(191);uniqueIndex:idx_room_name;not null" json:"name"` // 房间名，必须唯一
	ActiveBoardStateID *uint     `gorm:"index" json:"active_board_state_id"`                  // 房间当前激活的画板状态 ID (可为空，仅在首个画板创建前)
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`                    // 房间创建时间 (GORM 自动填充)
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`                    // 记录最后更新时间 (GORM 自动填充)
}

// Validate 检查从存储读出的行是否满足对外暴露的最低要求。
// 校验失败的行在宽松模式下会被列表查询丢弃。
func (r *Room) Validate() error {
	if r.ID == 0 {
		return fmt.Errorf("room: missing id")
	}
	if r.Name == "" {
		return fmt.Errorf("room %d: missing name", r.ID)
	}
	return nil
}
