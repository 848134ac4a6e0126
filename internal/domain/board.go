package domain

import (
	"fmt"
	"time"
)

// Board 表示房间内的一块白板，独占地拥有一串追加式的 BoardState 历史。
// 一个 Board 同一时刻只属于一个 Room，所有权可通过 "move" 转移。
type Board struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RoomID      uint      `gorm:"index;not null" json:"room_id"`          // 所属房间 ID (外键关联 Room.ID, 添加索引)
	Name        string    `gorm:"type:varchar(191)" json:"name"`          // 画板名称，创建时允许为空占位
	LastStateID *uint     `gorm:"index" json:"last_state_id"`             // 最近一次已提交保存的状态 ID (缓存字段，供 move/copy 使用)
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime;index" json:"updated_at"` // 按最近更新排序时使用 (添加索引)
}

// Validate 检查行的最低输出要求。
func (b *Board) Validate() error {
	if b.ID == 0 {
		return fmt.Errorf("board: missing id")
	}
	if b.RoomID == 0 {
		return fmt.Errorf("board %d: missing room id", b.ID)
	}
	return nil
}
