package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/service"
	"collaborative-whiteboard/internal/tasks"
)

// BoardFoldHandler 处理单块画板的折叠任务。
type BoardFoldHandler struct {
	liveService *service.LiveService
}

// NewBoardFoldHandler 创建 Handler 实例。
func NewBoardFoldHandler(liveService *service.LiveService) *BoardFoldHandler {
	if liveService == nil {
		panic("LiveService cannot be nil for BoardFoldHandler")
	}
	return &BoardFoldHandler{liveService: liveService}
}

// ProcessTask 实现 asynq.Handler 接口。
func (h *BoardFoldHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	currentRetry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     currentRetry,
		"max_retry": maxRetry,
	})

	var payload tasks.BoardFoldPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal fold task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	logCtx = logCtx.WithField("board_id", payload.BoardID)
	logCtx.Info("Processing board fold task...")

	if err := h.liveService.FoldBoard(ctx, payload.BoardID); err != nil {
		logCtx.WithError(err).Error("Board fold failed")
		return fmt.Errorf("failed to fold board %d: %w", payload.BoardID, err)
	}

	logCtx.Info("Board fold task processed successfully")
	return nil
}
