package domain

import (
	"fmt"
	"time"
)

// Message 表示房间内的一条聊天消息。
// Author 是发送时用户名的反范式化副本：删除 User 时 UserID 置空，
// 但 Author 字符串保留。这是刻意的设计，不是缺陷。
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    uint      `gorm:"index;not null" json:"room_id"`
	UserID    *uint     `gorm:"index" json:"user_id"` // 发送者 ID，用户被删除后为 null
	Author    string    `gorm:"type:varchar(191);not null" json:"author"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// Validate 检查行的最低输出要求。
func (m *Message) Validate() error {
	if m.ID == 0 {
		return fmt.Errorf("message: missing id")
	}
	if m.RoomID == 0 {
		return fmt.Errorf("message %d: missing room id", m.ID)
	}
	if m.Author == "" {
		return fmt.Errorf("message %d: missing author snapshot", m.ID)
	}
	return nil
}
