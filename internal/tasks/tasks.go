// Package tasks 定义后台任务类型与载荷。
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量
const (
	// TypeBoardFoldCheck 是周期任务：扫描脏画板并为每块派发折叠任务。
	TypeBoardFoldCheck = "board:fold_check"

	// TypeBoardFold 折叠单块画板的暂存增量为一个持久化状态。
	TypeBoardFold = "board:fold"
)

// BoardFoldPayload 定义了单板折叠任务的数据结构。
type BoardFoldPayload struct {
	BoardID uint `json:"board_id"`
}

// NewBoardFoldTask 创建一个折叠指定画板的任务。
func NewBoardFoldTask(boardID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(BoardFoldPayload{BoardID: boardID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fold payload for board %d: %w", boardID, err)
	}
	return asynq.NewTask(TypeBoardFold, payload), nil
}

// NewBoardFoldCheckTask 创建周期性的折叠检查任务 (无载荷)。
func NewBoardFoldCheckTask() *asynq.Task {
	return asynq.NewTask(TypeBoardFoldCheck, nil)
}
