package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/repository"
	"collaborative-whiteboard/internal/tasks"
)

// FoldCheckHandler 处理周期性的折叠检查任务：
// 扫描脏画板集合，为每块有实际增量的画板派发一个独立的折叠任务。
// 拆成单板任务后，一块画板折叠失败只会重试它自己。
type FoldCheckHandler struct {
	live   repository.LiveStateRepository
	client *asynq.Client
}

// NewFoldCheckHandler 创建 Handler 实例。
func NewFoldCheckHandler(live repository.LiveStateRepository, client *asynq.Client) *FoldCheckHandler {
	if live == nil {
		panic("LiveStateRepository cannot be nil for FoldCheckHandler")
	}
	if client == nil {
		panic("asynq client cannot be nil for FoldCheckHandler")
	}
	return &FoldCheckHandler{live: live, client: client}
}

// ProcessTask 实现 asynq.Handler 接口。
func (h *FoldCheckHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
	})
	logCtx.Info("Processing periodic fold check task...")

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	boardIDs, err := h.live.ListDirtyBoards(checkCtx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list dirty boards")
		return err
	}
	if len(boardIDs) == 0 {
		logCtx.Debug("No dirty boards found, skipping fold check.")
		return nil
	}
	logCtx.Infof("Found %d dirty boards to fold.", len(boardIDs))

	var enqueued, failed int
	for _, boardID := range boardIDs {
		boardLogCtx := logCtx.WithField("board_id", boardID)

		count, countErr := h.live.GetOpCount(checkCtx, boardID)
		if countErr != nil {
			boardLogCtx.WithError(countErr).Warn("Failed to read op count, enqueueing fold anyway")
		} else if count == 0 {
			boardLogCtx.Debug("Board dirty but op count is zero, enqueueing fold to reconcile")
		}

		foldTask, taskErr := tasks.NewBoardFoldTask(boardID)
		if taskErr != nil {
			boardLogCtx.WithError(taskErr).Error("Failed to build fold task")
			failed++
			continue
		}
		// 单板折叠走 default 队列，短时间内重复派发无害 (折叠是幂等的)
		if _, enqErr := h.client.EnqueueContext(checkCtx, foldTask, asynq.MaxRetry(3), asynq.Timeout(1*time.Minute)); enqErr != nil {
			boardLogCtx.WithError(enqErr).Error("Failed to enqueue fold task")
			failed++
			continue
		}
		enqueued++
	}

	logCtx.WithFields(logrus.Fields{"enqueued": enqueued, "failed": failed}).
		Info("Periodic fold check task completed.")
	// 部分画板入队失败不让周期任务整体重试
	return nil
}
