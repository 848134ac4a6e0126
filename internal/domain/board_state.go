package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultBoardPayload 是新画板或被清空画板的初始空白文档。
// 所有需要默认载荷的地方统一引用此常量，不要在调用处散落 "{}" 字面量。
const DefaultBoardPayload = "{}"

// BoardPayload 定义了画板载荷的数据结构。
// 使用 map 将坐标（格式化为 "x:y" 字符串）映射到颜色字符串。
type BoardPayload map[string]string // 例如: {"10:20": "#FF0000", "11:21": "#0000FF"}

// BoardState 是画板内容在某一时刻的不可变版本快照。
// 状态一旦创建就不再更新，只会被创建和删除（追加式历史 + 自顶截断，
// 删除版本 N 的同时删除该画板所有版本 >= N 的状态，以此实现撤销）。
type BoardState struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BoardID   uint      `gorm:"uniqueIndex:idx_board_version;not null" json:"board_id"` // 所属画板 ID
	Version   uint      `gorm:"uniqueIndex:idx_board_version;not null" json:"version"`  // 版本号，从 1 开始递增；(board_id, version) 唯一
	Data      string    `gorm:"type:longtext;not null" json:"data"`                     // 画板载荷的 JSON 字符串 (使用 longtext 以支持更大的画板)
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// ParsePayload 将 Data 字段 (JSON 字符串) 解析为 BoardPayload。
func (s *BoardState) ParsePayload() (BoardPayload, error) {
	var payload BoardPayload
	if s.Data == "" {
		// 如果载荷为空，返回一个空的 map 而不是错误
		return make(BoardPayload), nil
	}
	err := json.Unmarshal([]byte(s.Data), &payload)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal board state data: %w", err)
	}
	// 如果 JSON 解析结果是 nil (例如，原始数据是 "null")，也返回一个空的 map
	if payload == nil {
		return make(BoardPayload), nil
	}
	return payload, nil
}

// SetPayload 将 BoardPayload 序列化为 JSON 字符串，并设置到 Data 字段。
func (s *BoardState) SetPayload(payload BoardPayload) error {
	if len(payload) == 0 {
		s.Data = DefaultBoardPayload
		return nil
	}
	bytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal board payload: %w", err)
	}
	s.Data = string(bytes)
	return nil
}

// Validate 检查行的最低输出要求。
func (s *BoardState) Validate() error {
	if s.ID == 0 {
		return fmt.Errorf("board state: missing id")
	}
	if s.BoardID == 0 {
		return fmt.Errorf("board state %d: missing board id", s.ID)
	}
	if s.Version == 0 {
		return fmt.Errorf("board state %d: version must be positive", s.ID)
	}
	return nil
}
