package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/dto"
	"collaborative-whiteboard/internal/repository"
)

// BoardService 是画板编排器：负责在创建/删除/移动/复制操作之间
// 维护 Room.ActiveBoardStateID 与 Board.LastStateID 指针的一致性。
// 每个公开方法的多步流程都在一个数据库事务内执行，中间指针状态
// 绝不会被外部观察到；失败时整体回滚。
type BoardService struct {
	tx   repository.TxManager
	uow  repository.UnitOfWork          // 根句柄，仅用于只读路径
	live repository.LiveStateRepository // 激活状态缓存 + resync 广播
}

// NewBoardService 创建 BoardService 实例。
func NewBoardService(tx repository.TxManager, uow repository.UnitOfWork, live repository.LiveStateRepository) *BoardService {
	if tx == nil {
		panic("TxManager cannot be nil for BoardService")
	}
	if uow == nil {
		panic("UnitOfWork cannot be nil for BoardService")
	}
	if live == nil {
		panic("LiveStateRepository cannot be nil for BoardService")
	}
	return &BoardService{tx: tx, uow: uow, live: live}
}

// CreateBoard 在房间内创建一块新画板。
// 原子步骤：建画板行 -> 建 version=1 的空白状态 -> 房间激活指针与
// 画板 lastState 都指向新状态。返回刷新后的画板。
func (s *BoardService) CreateBoard(ctx context.Context, roomID uint) (*domain.Board, error) {
	logCtx := logrus.WithField("room_id", roomID)

	var board *domain.Board
	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		var txErr error
		board, txErr = createBoardTx(ctx, uow, roomID)
		return txErr
	})
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			logCtx.WithError(err).Warn("CreateBoard: Room not found")
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("CreateBoard: Transaction failed")
		return nil, ErrInternalServer
	}

	s.invalidateRoomCache(roomID)
	logCtx.WithField("board_id", board.ID).Info("Board created successfully")
	return board, nil
}

// CreateBoardState 为已有画板追加一个不可变状态，并把它设为房间的激活状态。
// 注意：此操作不更新 Board.LastStateID —— lastState 表示最近一次"已保存"
// 的快照，刻意滞后于房间激活指针所跟踪的实时编辑状态。这是有意的不对称。
// 版本号由调用方提供 (通常为当前最高版本 +1)；同画板重复版本被
// (board_id, version) 唯一索引拒绝，映射为 ErrVersionConflict。
func (s *BoardService) CreateBoardState(ctx context.Context, boardID uint, version uint, payload string) (*domain.BoardState, error) {
	logCtx := logrus.WithFields(logrus.Fields{"board_id": boardID, "version": version})

	if version == 0 {
		logCtx.Warn("CreateBoardState: Version must be positive")
		return nil, ErrInvalidInput
	}
	if payload == "" {
		payload = domain.DefaultBoardPayload
	}
	if !json.Valid([]byte(payload)) {
		logCtx.Warn("CreateBoardState: Payload is not valid JSON")
		return nil, ErrInvalidInput
	}

	var state *domain.BoardState
	var roomID uint
	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		board, txErr := uow.Boards().FindByID(ctx, boardID)
		if txErr != nil {
			if errors.Is(txErr, repository.ErrBoardNotFound) {
				return ErrBoardNotFound
			}
			return txErr
		}
		roomID = board.RoomID

		state = &domain.BoardState{BoardID: board.ID, Version: version, Data: payload}
		if txErr := uow.BoardStates().Create(ctx, state); txErr != nil {
			if errors.Is(txErr, repository.ErrDuplicateEntry) {
				return ErrVersionConflict
			}
			return txErr
		}

		room, txErr := uow.Rooms().FindByID(ctx, board.RoomID)
		if txErr != nil {
			return txErr
		}
		room.ActiveBoardStateID = &state.ID
		return uow.Rooms().Save(ctx, room)
	})
	if err != nil {
		if errors.Is(err, ErrBoardNotFound) || errors.Is(err, ErrVersionConflict) {
			logCtx.WithError(err).Warn("CreateBoardState: Rejected")
			return nil, err
		}
		logCtx.WithError(err).Error("CreateBoardState: Transaction failed")
		return nil, ErrInternalServer
	}

	s.invalidateRoomCache(roomID)
	s.publishResync(roomID, state)
	logCtx.WithField("state_id", state.ID).Info("Board state created and activated")
	return state, nil
}

// DeleteBoardState 实现撤销语义：删除目标状态以及同画板所有版本号 >= 目标
// 版本的状态 (一旦提交，越过该点的重做不再可能)，然后把画板 lastState ——
// 以及房间激活指针，如果它指向了任何被删除的状态 —— 重指向剩余的最高版本。
// 如果整段历史被删光 (目标是 version 1)，则为画板重新生成一个空白的 v1：
// 此操作成功返回后画板必然至少有一个状态。
func (s *BoardService) DeleteBoardState(ctx context.Context, stateID uint) (*domain.BoardState, error) {
	logCtx := logrus.WithField("state_id", stateID)

	var current *domain.BoardState
	var roomID uint
	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		target, txErr := uow.BoardStates().FindByID(ctx, stateID)
		if txErr != nil {
			if errors.Is(txErr, repository.ErrBoardStateNotFound) {
				return ErrBoardStateNotFound
			}
			return txErr
		}

		board, txErr := uow.Boards().FindByID(ctx, target.BoardID)
		if txErr != nil {
			return txErr
		}
		room, txErr := uow.Rooms().FindByID(ctx, board.RoomID)
		if txErr != nil {
			return txErr
		}
		roomID = room.ID

		// 范围删除前捕获将被删除的状态 ID 集合，
		// 以便判断房间激活指针是否受影响
		doomed, txErr := uow.BoardStates().ListVersionsFrom(ctx, board.ID, target.Version)
		if txErr != nil {
			return txErr
		}
		doomedIDs := make(map[uint]struct{}, len(doomed))
		for _, state := range doomed {
			doomedIDs[state.ID] = struct{}{}
		}
		pointerHit := false
		if room.ActiveBoardStateID != nil {
			_, pointerHit = doomedIDs[*room.ActiveBoardStateID]
		}

		deleted, txErr := uow.BoardStates().DeleteVersionsFrom(ctx, board.ID, target.Version)
		if txErr != nil {
			return txErr
		}
		logCtx.WithFields(logrus.Fields{"board_id": board.ID, "from_version": target.Version, "deleted": deleted}).
			Debug("DeleteBoardState: Range delete applied")

		// 新的当前状态 = 剩余的最高版本；历史被删光则重新生成空白 v1
		current, txErr = uow.BoardStates().FindCurrent(ctx, board.ID)
		if txErr != nil {
			if !errors.Is(txErr, repository.ErrBoardStateNotFound) {
				return txErr
			}
			current = &domain.BoardState{BoardID: board.ID, Version: 1, Data: domain.DefaultBoardPayload}
			if txErr := uow.BoardStates().Create(ctx, current); txErr != nil {
				return txErr
			}
			logCtx.WithField("board_id", board.ID).Info("DeleteBoardState: History exhausted, fabricated fresh v1 state")
		}

		board.LastStateID = &current.ID
		if txErr := uow.Boards().Save(ctx, board); txErr != nil {
			return txErr
		}
		if pointerHit {
			room.ActiveBoardStateID = &current.ID
			if txErr := uow.Rooms().Save(ctx, room); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrBoardStateNotFound) {
			logCtx.WithError(err).Warn("DeleteBoardState: State not found")
			return nil, ErrBoardStateNotFound
		}
		logCtx.WithError(err).Error("DeleteBoardState: Transaction failed")
		return nil, ErrInternalServer
	}

	s.invalidateRoomCache(roomID)
	s.publishResync(roomID, current)
	logCtx.WithFields(logrus.Fields{"current_state_id": current.ID, "current_version": current.Version}).
		Info("Board state deleted, pointers repaired")
	return current, nil
}

// ActivatePreviousBoardState 选取房间内 updated_at 最新 (并列取 id 最大)、
// 且不是 excludeBoardID 的画板，把房间激活指针设为该画板的 lastState。
// 房间内没有其他画板时返回 ErrBoardNotFound —— 调用方必须确认至少还有
// 一块画板时才调用。
func (s *BoardService) ActivatePreviousBoardState(ctx context.Context, roomID, excludeBoardID uint) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "exclude_board_id": excludeBoardID})

	var room *domain.Room
	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		var txErr error
		room, txErr = activatePreviousTx(ctx, uow, roomID, excludeBoardID)
		return txErr
	})
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrBoardNotFound) {
			logCtx.WithError(err).Warn("ActivatePreviousBoardState: Rejected")
			return nil, err
		}
		logCtx.WithError(err).Error("ActivatePreviousBoardState: Transaction failed")
		return nil, ErrInternalServer
	}

	s.invalidateRoomCache(roomID)
	logCtx.Info("Previous board state activated")
	return room, nil
}

// GetActivatedRoom 读取房间并在必要时惰性修复其激活指针 (repoint-on-read)。
// 只有当前指针仍等于 previousLastState (即没有更新的状态接管过) 时才修复：
// 房间内已没有其他画板 -> 创建一块新画板；还有其他画板 -> 激活其中最近
// 更新者的 lastState。指针已变则不做任何事。重复调用是幂等的。
func (s *BoardService) GetActivatedRoom(ctx context.Context, roomID, boardID, previousLastState uint) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "board_id": boardID})

	var room *domain.Room
	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		var txErr error
		room, txErr = activateRoomTx(ctx, uow, roomID, boardID, previousLastState)
		return txErr
	})
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			logCtx.WithError(err).Warn("GetActivatedRoom: Room not found")
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("GetActivatedRoom: Transaction failed")
		return nil, ErrInternalServer
	}

	s.invalidateRoomCache(roomID)
	return room, nil
}

// MoveBoard 把画板转移到另一个房间。
// 发送方房间如果正由该画板供给激活指针，则按 repoint-on-read 的规则修复
// (没有剩余画板时创建替代画板)；接收方房间的激活指针设为画板的 lastState。
func (s *BoardService) MoveBoard(ctx context.Context, boardID, targetRoomID uint) (*domain.Board, error) {
	logCtx := logrus.WithFields(logrus.Fields{"board_id": boardID, "target_room_id": targetRoomID})

	var board *domain.Board
	var senderRoomID uint
	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		var txErr error
		board, txErr = uow.Boards().FindByID(ctx, boardID)
		if txErr != nil {
			if errors.Is(txErr, repository.ErrBoardNotFound) {
				return ErrBoardNotFound
			}
			return txErr
		}
		if board.RoomID == targetRoomID {
			return nil // 同房间移动是 no-op
		}
		senderRoomID = board.RoomID

		receiver, txErr := uow.Rooms().FindByID(ctx, targetRoomID)
		if txErr != nil {
			if errors.Is(txErr, repository.ErrRoomNotFound) {
				return ErrRoomNotFound
			}
			return txErr
		}
		sender, txErr := uow.Rooms().FindByID(ctx, board.RoomID)
		if txErr != nil {
			return txErr
		}

		supplying, previousActive, txErr := boardSuppliesActiveState(ctx, uow, sender, board.ID)
		if txErr != nil {
			return txErr
		}

		board.RoomID = targetRoomID
		if txErr := uow.Boards().Save(ctx, board); txErr != nil {
			return txErr
		}

		if supplying {
			if _, txErr := activateRoomTx(ctx, uow, sender.ID, board.ID, previousActive); txErr != nil {
				return txErr
			}
		}

		lastStateID, txErr := resolveLastState(ctx, uow, board)
		if txErr != nil {
			return txErr
		}
		receiver.ActiveBoardStateID = &lastStateID
		return uow.Rooms().Save(ctx, receiver)
	})
	if err != nil {
		if errors.Is(err, ErrBoardNotFound) || errors.Is(err, ErrRoomNotFound) {
			logCtx.WithError(err).Warn("MoveBoard: Rejected")
			return nil, err
		}
		logCtx.WithError(err).Error("MoveBoard: Transaction failed")
		return nil, ErrInternalServer
	}

	if senderRoomID != 0 {
		s.invalidateRoomCache(senderRoomID)
		s.invalidateRoomCache(targetRoomID)
	}
	logCtx.Info("Board moved successfully")
	return board, nil
}

// CopyBoard 把画板复制到另一个房间：克隆全部状态历史 (保留版本号和载荷，
// 分配新 ID)，新画板 lastState 指向克隆出的最高版本，接收方房间激活指针
// 也指向它。源画板与源房间完全不受影响，两份历史之间没有共享行。
func (s *BoardService) CopyBoard(ctx context.Context, boardID, targetRoomID uint) (*domain.Board, error) {
	logCtx := logrus.WithFields(logrus.Fields{"board_id": boardID, "target_room_id": targetRoomID})

	var clone *domain.Board
	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		source, txErr := uow.Boards().FindByID(ctx, boardID)
		if txErr != nil {
			if errors.Is(txErr, repository.ErrBoardNotFound) {
				return ErrBoardNotFound
			}
			return txErr
		}
		receiver, txErr := uow.Rooms().FindByID(ctx, targetRoomID)
		if txErr != nil {
			if errors.Is(txErr, repository.ErrRoomNotFound) {
				return ErrRoomNotFound
			}
			return txErr
		}

		clone = &domain.Board{RoomID: targetRoomID, Name: source.Name}
		if txErr := uow.Boards().Create(ctx, clone); txErr != nil {
			return txErr
		}

		states, txErr := uow.BoardStates().ListByBoard(ctx, source.ID)
		if txErr != nil {
			return txErr
		}

		var newest *domain.BoardState
		for i := range states {
			copied := &domain.BoardState{
				BoardID: clone.ID,
				Version: states[i].Version,
				Data:    states[i].Data,
			}
			if txErr := uow.BoardStates().Create(ctx, copied); txErr != nil {
				return txErr
			}
			if newest == nil || copied.Version > newest.Version {
				newest = copied
			}
		}
		if newest == nil {
			// 源画板没有任何状态违反了不变量；克隆出的画板仍要满足
			// "至少一个状态"，生成空白 v1
			newest = &domain.BoardState{BoardID: clone.ID, Version: 1, Data: domain.DefaultBoardPayload}
			if txErr := uow.BoardStates().Create(ctx, newest); txErr != nil {
				return txErr
			}
			logCtx.Warn("CopyBoard: Source board had no states, fabricated fresh v1 for clone")
		}

		clone.LastStateID = &newest.ID
		if txErr := uow.Boards().Save(ctx, clone); txErr != nil {
			return txErr
		}
		receiver.ActiveBoardStateID = &newest.ID
		return uow.Rooms().Save(ctx, receiver)
	})
	if err != nil {
		if errors.Is(err, ErrBoardNotFound) || errors.Is(err, ErrRoomNotFound) {
			logCtx.WithError(err).Warn("CopyBoard: Rejected")
			return nil, err
		}
		logCtx.WithError(err).Error("CopyBoard: Transaction failed")
		return nil, ErrInternalServer
	}

	s.invalidateRoomCache(targetRoomID)
	logCtx.WithField("clone_id", clone.ID).Info("Board copied successfully")
	return clone, nil
}

// DeleteBoard 删除画板及其全部状态历史。
// 如果该画板正供给房间激活指针，删除后按 repoint-on-read 的规则修复房间
// (这是房间里最后一块画板时会创建一块替代画板)。
func (s *BoardService) DeleteBoard(ctx context.Context, boardID uint) error {
	logCtx := logrus.WithField("board_id", boardID)

	var roomID uint
	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		board, txErr := uow.Boards().FindByID(ctx, boardID)
		if txErr != nil {
			if errors.Is(txErr, repository.ErrBoardNotFound) {
				return ErrBoardNotFound
			}
			return txErr
		}
		room, txErr := uow.Rooms().FindByID(ctx, board.RoomID)
		if txErr != nil {
			return txErr
		}
		roomID = room.ID

		supplying, previousActive, txErr := boardSuppliesActiveState(ctx, uow, room, board.ID)
		if txErr != nil {
			return txErr
		}

		if txErr := uow.BoardStates().DeleteByBoard(ctx, board.ID); txErr != nil {
			return txErr
		}
		if txErr := uow.Boards().Delete(ctx, board.ID); txErr != nil {
			return txErr
		}

		if supplying {
			if _, txErr := activateRoomTx(ctx, uow, room.ID, board.ID, previousActive); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrBoardNotFound) {
			logCtx.WithError(err).Warn("DeleteBoard: Board not found")
			return ErrBoardNotFound
		}
		logCtx.WithError(err).Error("DeleteBoard: Transaction failed")
		return ErrInternalServer
	}

	s.invalidateRoomCache(roomID)
	logCtx.Info("Board deleted, room pointer repaired")
	return nil
}

// GetBoard 返回单块画板。
func (s *BoardService) GetBoard(ctx context.Context, boardID uint) (*domain.Board, error) {
	board, err := s.uow.Boards().FindByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, repository.ErrBoardNotFound) {
			return nil, ErrBoardNotFound
		}
		logrus.WithError(err).WithField("board_id", boardID).Error("GetBoard: Repository error")
		return nil, ErrInternalServer
	}
	return board, nil
}

// ListBoards 分页返回房间内的画板。
func (s *BoardService) ListBoards(ctx context.Context, roomID uint, page, size int) (dto.Page, error) {
	if err := validatePaging(page, size); err != nil {
		return dto.Page{}, err
	}
	boards, total, err := s.uow.Boards().GetPageByRoom(ctx, roomID, page, size)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("ListBoards: Repository error")
		return dto.Page{}, ErrInternalServer
	}
	return dto.NewPage(boards, page, size, total), nil
}

// ListBoardStates 分页返回画板的状态历史 (版本号倒序)。
func (s *BoardService) ListBoardStates(ctx context.Context, boardID uint, page, size int) (dto.Page, error) {
	if err := validatePaging(page, size); err != nil {
		return dto.Page{}, err
	}
	states, total, err := s.uow.BoardStates().GetPageByBoard(ctx, boardID, page, size)
	if err != nil {
		logrus.WithError(err).WithField("board_id", boardID).Error("ListBoardStates: Repository error")
		return dto.Page{}, ErrInternalServer
	}
	return dto.NewPage(states, page, size, total), nil
}

// GetActiveState 返回房间当前激活的状态。
// 实现 "缓存优先，数据库备用，回填缓存" 策略。
func (s *BoardService) GetActiveState(ctx context.Context, roomID uint) (*domain.BoardState, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "operation": "GetActiveState"})

	cached, err := s.live.GetStateCache(ctx, roomID)
	if err == nil && cached != nil {
		logCtx.Debug("Active state cache hit")
		return cached, nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		logCtx.WithError(err).Warn("Failed to get active state from cache")
	}

	room, err := s.uow.Rooms().FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("GetActiveState: Repository error")
		return nil, ErrInternalServer
	}
	if room.ActiveBoardStateID == nil {
		return nil, ErrBoardStateNotFound
	}

	state, err := s.uow.BoardStates().FindByID(ctx, *room.ActiveBoardStateID)
	if err != nil {
		if errors.Is(err, repository.ErrBoardStateNotFound) {
			return nil, ErrBoardStateNotFound
		}
		logCtx.WithError(err).Error("GetActiveState: Repository error")
		return nil, ErrInternalServer
	}

	// 异步回填缓存
	go func(stateToCache *domain.BoardState) {
		cacheCtx := context.Background()
		if cacheErr := s.live.SetStateCache(cacheCtx, roomID, stateToCache, 10*time.Minute); cacheErr != nil {
			logrus.WithFields(logrus.Fields{"room_id": roomID, "state_id": stateToCache.ID}).
				WithError(cacheErr).Warn("Failed to warm active state cache after DB load")
		}
	}(state)

	return state, nil
}

// --- 事务内辅助函数 (接收已有 UnitOfWork，组合进调用方的事务) ---

// createBoardTx 在给定事务作用域内执行画板创建的完整四步流程。
func createBoardTx(ctx context.Context, uow repository.UnitOfWork, roomID uint) (*domain.Board, error) {
	room, err := uow.Rooms().FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	board := &domain.Board{RoomID: room.ID}
	if err := uow.Boards().Create(ctx, board); err != nil {
		return nil, err
	}

	state := &domain.BoardState{BoardID: board.ID, Version: 1, Data: domain.DefaultBoardPayload}
	if err := uow.BoardStates().Create(ctx, state); err != nil {
		return nil, err
	}

	room.ActiveBoardStateID = &state.ID
	if err := uow.Rooms().Save(ctx, room); err != nil {
		return nil, err
	}

	board.LastStateID = &state.ID
	if err := uow.Boards().Save(ctx, board); err != nil {
		return nil, err
	}
	return board, nil
}

// activatePreviousTx 选取房间内最近更新的其他画板并激活其 lastState。
func activatePreviousTx(ctx context.Context, uow repository.UnitOfWork, roomID, excludeBoardID uint) (*domain.Room, error) {
	room, err := uow.Rooms().FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	previous, err := uow.Boards().FindLatestInRoom(ctx, roomID, excludeBoardID)
	if err != nil {
		if errors.Is(err, repository.ErrBoardNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, err
	}

	lastStateID, err := resolveLastState(ctx, uow, previous)
	if err != nil {
		return nil, err
	}
	room.ActiveBoardStateID = &lastStateID
	if err := uow.Rooms().Save(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// activateRoomTx 实现 repoint-on-read：只有激活指针未被更新的状态接管时
// 才修复。boardID 是已被移除/替换的画板；统计剩余画板时把它排除在外。
func activateRoomTx(ctx context.Context, uow repository.UnitOfWork, roomID, boardID, previousLastState uint) (*domain.Room, error) {
	room, err := uow.Rooms().FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	stale := room.ActiveBoardStateID == nil || *room.ActiveBoardStateID == previousLastState
	if !stale {
		return room, nil // 指针已被更新的状态接管，无需修复
	}

	remaining, err := uow.Boards().CountByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	// boardID 可能已删除 (不再计入)，也可能仍在房间里 (例如指针供给方被
	// 替换而画板未动)；两种情况下它都不算 "可接管指针的剩余画板"
	if boardID != 0 {
		if existing, findErr := uow.Boards().FindByID(ctx, boardID); findErr == nil && existing.RoomID == roomID {
			remaining--
		}
	}

	if remaining <= 0 {
		if _, err := createBoardTx(ctx, uow, roomID); err != nil {
			return nil, err
		}
	} else {
		if _, err := activatePreviousTx(ctx, uow, roomID, boardID); err != nil {
			return nil, err
		}
	}

	// 重新读取，返回修复后的房间
	room, err = uow.Rooms().FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// boardSuppliesActiveState 判断房间激活指针当前是否由给定画板的状态供给。
// 返回 (是否供给, 当前激活状态 ID)。
func boardSuppliesActiveState(ctx context.Context, uow repository.UnitOfWork, room *domain.Room, boardID uint) (bool, uint, error) {
	if room.ActiveBoardStateID == nil {
		return false, 0, nil
	}
	active, err := uow.BoardStates().FindByID(ctx, *room.ActiveBoardStateID)
	if err != nil {
		if errors.Is(err, repository.ErrBoardStateNotFound) {
			// 指针悬空：当作由被操作画板供给，强制修复
			return true, *room.ActiveBoardStateID, nil
		}
		return false, 0, err
	}
	return active.BoardID == boardID, *room.ActiveBoardStateID, nil
}

// resolveLastState 返回画板的 lastState ID，缓存缺失时回退到现存最高版本。
func resolveLastState(ctx context.Context, uow repository.UnitOfWork, board *domain.Board) (uint, error) {
	if board.LastStateID != nil {
		return *board.LastStateID, nil
	}
	current, err := uow.BoardStates().FindCurrent(ctx, board.ID)
	if err != nil {
		return 0, err
	}
	return current.ID, nil
}

// --- 缓存失效与广播 (尽力而为，不影响事务结果) ---

func (s *BoardService) invalidateRoomCache(roomID uint) {
	if roomID == 0 {
		return
	}
	go func() {
		if err := s.live.InvalidateStateCache(context.Background(), roomID); err != nil {
			logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to invalidate room state cache")
		}
	}()
}

func (s *BoardService) publishResync(roomID uint, state *domain.BoardState) {
	if roomID == 0 || state == nil {
		return
	}
	go func() {
		payload, err := json.Marshal(map[string]uint{
			"board_id": state.BoardID,
			"state_id": state.ID,
			"version":  state.Version,
		})
		if err != nil {
			return
		}
		event := domain.RoomEvent{Type: "resync", RoomID: roomID, Payload: payload}
		if err := s.live.PublishEvent(context.Background(), event); err != nil {
			logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to publish resync event")
		}
	}()
}
