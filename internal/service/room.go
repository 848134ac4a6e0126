package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/dto"
	"collaborative-whiteboard/internal/repository"
)

// RoomService 负责房间的生命周期管理。
// 房间从诞生起就带有一块画板和激活状态 (绝不处于 "无画板" 状态)，
// 删除时在单个事务内级联清理全部子资源。
type RoomService struct {
	tx  repository.TxManager
	uow repository.UnitOfWork
}

// NewRoomService 创建 RoomService 实例。
func NewRoomService(tx repository.TxManager, uow repository.UnitOfWork) *RoomService {
	if tx == nil {
		panic("TxManager cannot be nil for RoomService")
	}
	if uow == nil {
		panic("UnitOfWork cannot be nil for RoomService")
	}
	return &RoomService{tx: tx, uow: uow}
}

// CreateRoom 创建房间，并在同一事务内为它生成第一块画板和空白的 v1 状态。
// creatorID 不为 0 时同时写入 owner 成员关系。
func (s *RoomService) CreateRoom(ctx context.Context, name string, creatorID uint) (*domain.Room, error) {
	logCtx := logrus.WithField("room_name", name)

	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		logCtx.Warn("CreateRoom: Invalid room name")
		return nil, ErrInvalidInput
	}

	var room *domain.Room
	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		room = &domain.Room{Name: name}
		if txErr := uow.Rooms().Create(ctx, room); txErr != nil {
			if errors.Is(txErr, repository.ErrDuplicateEntry) {
				return ErrRoomNameTaken
			}
			return txErr
		}

		if _, txErr := createBoardTx(ctx, uow, room.ID); txErr != nil {
			return txErr
		}

		if creatorID != 0 {
			membership := &domain.Membership{
				UserID: creatorID,
				RoomID: room.ID,
				Role:   domain.RoleOwner,
				Status: domain.StatusActive,
			}
			if txErr := uow.Memberships().Create(ctx, membership); txErr != nil {
				return txErr
			}
		}

		// 返回刷新后的房间 (带已设置的激活指针)
		var txErr error
		room, txErr = uow.Rooms().FindByID(ctx, room.ID)
		return txErr
	})
	if err != nil {
		if errors.Is(err, ErrRoomNameTaken) {
			logCtx.Warn("CreateRoom: Room name already taken")
			return nil, ErrRoomNameTaken
		}
		logCtx.WithError(err).Error("CreateRoom: Transaction failed")
		return nil, ErrInternalServer
	}

	logCtx.WithField("room_id", room.ID).Info("Room created successfully")
	return room, nil
}

// GetRoom 返回单个房间。
func (s *RoomService) GetRoom(ctx context.Context, roomID uint) (*domain.Room, error) {
	room, err := s.uow.Rooms().FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("GetRoom: Repository error")
		return nil, ErrInternalServer
	}
	return room, nil
}

// ListRooms 分页返回房间列表 (最近更新在前)。
func (s *RoomService) ListRooms(ctx context.Context, page, size int) (dto.Page, error) {
	if err := validatePaging(page, size); err != nil {
		return dto.Page{}, err
	}
	rooms, total, err := s.uow.Rooms().GetPage(ctx, page, size)
	if err != nil {
		logrus.WithError(err).Error("ListRooms: Repository error")
		return dto.Page{}, ErrInternalServer
	}
	return dto.NewPage(rooms, page, size, total), nil
}

// RenameRoom 修改房间名称，名称冲突返回 ErrRoomNameTaken。
func (s *RoomService) RenameRoom(ctx context.Context, roomID uint, name string) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "new_name": name})

	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, ErrInvalidInput
	}

	var room *domain.Room
	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		var txErr error
		room, txErr = uow.Rooms().FindByID(ctx, roomID)
		if txErr != nil {
			if errors.Is(txErr, repository.ErrRoomNotFound) {
				return ErrRoomNotFound
			}
			return txErr
		}
		room.Name = name
		if txErr := uow.Rooms().Save(ctx, room); txErr != nil {
			if errors.Is(txErr, repository.ErrDuplicateEntry) {
				return ErrRoomNameTaken
			}
			return txErr
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrRoomNameTaken) {
			logCtx.WithError(err).Warn("RenameRoom: Rejected")
			return nil, err
		}
		logCtx.WithError(err).Error("RenameRoom: Transaction failed")
		return nil, ErrInternalServer
	}

	logCtx.Info("Room renamed successfully")
	return room, nil
}

// DeleteRoom 删除房间及其全部子资源：消息、成员关系、每块画板及其状态
// 历史，最后删除房间行本身。整个级联在一个事务内完成，失败则整体回滚。
func (s *RoomService) DeleteRoom(ctx context.Context, roomID uint) error {
	logCtx := logrus.WithField("room_id", roomID)

	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		if _, txErr := uow.Rooms().FindByID(ctx, roomID); txErr != nil {
			if errors.Is(txErr, repository.ErrRoomNotFound) {
				return ErrRoomNotFound
			}
			return txErr
		}

		if txErr := uow.Messages().DeleteByRoom(ctx, roomID); txErr != nil {
			return txErr
		}
		if txErr := uow.Memberships().DeleteByRoom(ctx, roomID); txErr != nil {
			return txErr
		}

		boards, txErr := uow.Boards().ListByRoom(ctx, roomID)
		if txErr != nil {
			return txErr
		}
		for _, board := range boards {
			if txErr := uow.BoardStates().DeleteByBoard(ctx, board.ID); txErr != nil {
				return txErr
			}
			if txErr := uow.Boards().Delete(ctx, board.ID); txErr != nil {
				return txErr
			}
		}

		return uow.Rooms().Delete(ctx, roomID)
	})
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			logCtx.Warn("DeleteRoom: Room not found")
			return ErrRoomNotFound
		}
		logCtx.WithError(err).Error("DeleteRoom: Transaction failed")
		return ErrInternalServer
	}

	logCtx.Info("Room and all child resources deleted")
	return nil
}
