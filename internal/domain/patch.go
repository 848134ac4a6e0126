package domain

import (
	"encoding/json"
	"fmt"
)

// Patch 表示客户端发来的一次未提交的实时绘制增量。
// 实时增量只在 Redis 中缓冲，周期性地被折叠为一个新的不可变 BoardState；
// 事务性一致性保证只覆盖已提交的状态，不覆盖实时增量流。
type Patch struct {
	BoardID uint   `json:"board_id"`
	UserID  uint   `json:"user_id"`
	Kind    string `json:"kind"`            // "draw" 或 "erase"
	Cell    string `json:"cell"`            // 坐标，格式化为 "x:y"
	Color   string `json:"color,omitempty"` // 绘制的颜色，erase 时为空
}

// Validate 检查增量的基本形状。
func (p *Patch) Validate() error {
	if p.BoardID == 0 {
		return fmt.Errorf("patch: missing board id")
	}
	if p.Kind != "draw" && p.Kind != "erase" {
		return fmt.Errorf("patch: unsupported kind %q", p.Kind)
	}
	if p.Cell == "" {
		return fmt.Errorf("patch: missing cell")
	}
	return nil
}

// RoomEvent 是通过 Redis Pub/Sub 在房间内广播的实时事件信封。
type RoomEvent struct {
	Type    string          `json:"type"` // "chat" / "cursor" / "patch" / "resync"
	RoomID  uint            `json:"room_id"`
	UserID  uint            `json:"user_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode 将事件序列化为发布到频道的字节。
func (e *RoomEvent) Encode() ([]byte, error) {
	bytes, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal room event: %w", err)
	}
	return bytes, nil
}
