package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/repository"
)

// LiveService 负责实时绘图增量的暂存与折叠。
// 客户端的每一笔 draw/erase 先进入 Redis 暂存区并实时广播；后台任务
// 周期性地把脏画板的暂存增量折叠成一个新的持久化状态 (经由
// BoardService.CreateBoardState，因此折叠同样会推进房间激活指针)。
type LiveService struct {
	live     repository.LiveStateRepository
	uow      repository.UnitOfWork
	boardSvc *BoardService
}

// NewLiveService 创建 LiveService 实例。
func NewLiveService(live repository.LiveStateRepository, uow repository.UnitOfWork, boardSvc *BoardService) *LiveService {
	if live == nil {
		panic("LiveStateRepository cannot be nil for LiveService")
	}
	if uow == nil {
		panic("UnitOfWork cannot be nil for LiveService")
	}
	if boardSvc == nil {
		panic("BoardService cannot be nil for LiveService")
	}
	return &LiveService{live: live, uow: uow, boardSvc: boardSvc}
}

// ApplyPatch 处理一笔实时增量：写入暂存区、递增操作计数、向房间广播。
// 广播失败只记录日志，不影响增量本身的落地。
func (s *LiveService) ApplyPatch(ctx context.Context, roomID uint, patch domain.Patch) error {
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id":  roomID,
		"board_id": patch.BoardID,
		"cell":     patch.Cell,
	})

	if err := patch.Validate(); err != nil {
		logCtx.WithError(err).Warn("ApplyPatch: Invalid patch")
		return ErrInvalidInput
	}

	if err := s.live.StagePatch(ctx, patch); err != nil {
		logCtx.WithError(err).Error("ApplyPatch: Failed to stage patch")
		return ErrInternalServer
	}
	if err := s.live.IncrementOpCount(ctx, patch.BoardID); err != nil {
		logCtx.WithError(err).Warn("ApplyPatch: Failed to increment op count")
	}

	payload, err := json.Marshal(patch)
	if err != nil {
		logCtx.WithError(err).Warn("ApplyPatch: Failed to encode patch for broadcast")
		return nil
	}
	event := domain.RoomEvent{Type: "patch", RoomID: roomID, UserID: patch.UserID, Payload: payload}
	if err := s.live.PublishEvent(ctx, event); err != nil {
		logCtx.WithError(err).Warn("ApplyPatch: Failed to broadcast patch")
	}
	return nil
}

// FoldBoard 把单块画板的暂存增量折叠成一个新的持久化状态。
// 折叠规则：以当前最高版本的载荷为底，暂存区中非空值覆盖单元格，
// 空值删除单元格；结果以 version+1 提交。暂存区为空时是 no-op。
// 版本冲突 (并发的手动保存抢先占用了版本号) 不清空暂存区，留待下一轮重试。
func (s *LiveService) FoldBoard(ctx context.Context, boardID uint) error {
	logCtx := logrus.WithField("board_id", boardID)

	staged, err := s.live.GetStagedCells(ctx, boardID)
	if err != nil {
		return fmt.Errorf("fold: failed to load staged cells for board %d: %w", boardID, err)
	}
	if len(staged) == 0 {
		// 脏标记残留但没有实际增量，清理后返回
		if clearErr := s.live.ClearStaged(ctx, boardID); clearErr != nil {
			logCtx.WithError(clearErr).Warn("FoldBoard: Failed to clear empty staged area")
		}
		return nil
	}

	current, err := s.uow.BoardStates().FindCurrent(ctx, boardID)
	if err != nil {
		if errors.Is(err, repository.ErrBoardStateNotFound) {
			// 画板已被删除，丢弃孤儿增量
			logCtx.Warn("FoldBoard: Board has no states, discarding staged patches")
			if clearErr := s.live.ClearStaged(ctx, boardID); clearErr != nil {
				logCtx.WithError(clearErr).Warn("FoldBoard: Failed to discard orphan staged area")
			}
			return nil
		}
		return fmt.Errorf("fold: failed to load current state for board %d: %w", boardID, err)
	}

	base, err := current.ParsePayload()
	if err != nil {
		return fmt.Errorf("fold: failed to parse current payload for board %d: %w", boardID, err)
	}
	for cell, color := range staged {
		if color == "" {
			delete(base, cell) // erase 增量，移除已提交单元格
		} else {
			base[cell] = color
		}
	}

	folded := &domain.BoardState{}
	if err := folded.SetPayload(base); err != nil {
		return fmt.Errorf("fold: failed to serialize folded payload for board %d: %w", boardID, err)
	}

	state, err := s.boardSvc.CreateBoardState(ctx, boardID, current.Version+1, folded.Data)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			logCtx.WithField("version", current.Version+1).
				Warn("FoldBoard: Version conflict, will retry on next cycle")
			return nil
		}
		return fmt.Errorf("fold: failed to persist folded state for board %d: %w", boardID, err)
	}

	if err := s.live.ClearStaged(ctx, boardID); err != nil {
		logCtx.WithError(err).Warn("FoldBoard: Failed to clear staged cells after fold")
	}
	if err := s.live.ResetOpCount(ctx, boardID); err != nil {
		logCtx.WithError(err).Warn("FoldBoard: Failed to reset op count after fold")
	}

	logCtx.WithFields(logrus.Fields{
		"state_id": state.ID,
		"version":  state.Version,
		"cells":    len(staged),
	}).Info("Staged patches folded into persistent state")
	return nil
}

// FoldDirtyBoards 扫描所有脏画板并逐个折叠。单块画板失败不影响其余画板。
func (s *LiveService) FoldDirtyBoards(ctx context.Context) error {
	boardIDs, err := s.live.ListDirtyBoards(ctx)
	if err != nil {
		return fmt.Errorf("fold: failed to list dirty boards: %w", err)
	}
	if len(boardIDs) == 0 {
		return nil
	}

	logrus.WithField("count", len(boardIDs)).Debug("Folding dirty boards")
	var failed int
	for _, boardID := range boardIDs {
		if foldErr := s.FoldBoard(ctx, boardID); foldErr != nil {
			logrus.WithError(foldErr).WithField("board_id", boardID).Error("Failed to fold board")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("fold: %d of %d boards failed", failed, len(boardIDs))
	}
	return nil
}
