package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/dto"
	"collaborative-whiteboard/internal/repository"
)

// MembershipService 负责用户与房间之间的成员关系管理。
type MembershipService struct {
	tx  repository.TxManager
	uow repository.UnitOfWork
}

// NewMembershipService 创建 MembershipService 实例。
func NewMembershipService(tx repository.TxManager, uow repository.UnitOfWork) *MembershipService {
	if tx == nil {
		panic("TxManager cannot be nil for MembershipService")
	}
	if uow == nil {
		panic("UnitOfWork cannot be nil for MembershipService")
	}
	return &MembershipService{tx: tx, uow: uow}
}

// JoinRoom 把用户加入房间。重复加入由 (user_id, room_id) 唯一索引拒绝。
func (s *MembershipService) JoinRoom(ctx context.Context, userID, roomID uint, role domain.Role) (*domain.Membership, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID, "role": role})

	if role == "" {
		role = domain.RoleMember
	}
	if !domain.ValidRole(role) {
		logCtx.Warn("JoinRoom: Invalid role")
		return nil, ErrInvalidInput
	}

	var membership *domain.Membership
	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		if _, txErr := uow.Rooms().FindByID(ctx, roomID); txErr != nil {
			if errors.Is(txErr, repository.ErrRoomNotFound) {
				return ErrRoomNotFound
			}
			return txErr
		}
		if _, txErr := uow.Users().FindByID(ctx, userID); txErr != nil {
			if errors.Is(txErr, repository.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return txErr
		}

		membership = &domain.Membership{
			UserID: userID,
			RoomID: roomID,
			Role:   role,
			Status: domain.StatusActive,
		}
		if txErr := uow.Memberships().Create(ctx, membership); txErr != nil {
			if errors.Is(txErr, repository.ErrDuplicateEntry) {
				return ErrAlreadyMember
			}
			return txErr
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrAlreadyMember) {
			logCtx.WithError(err).Warn("JoinRoom: Rejected")
			return nil, err
		}
		logCtx.WithError(err).Error("JoinRoom: Transaction failed")
		return nil, ErrInternalServer
	}

	logCtx.Info("User joined room")
	return membership, nil
}

// LeaveRoom 把用户移出房间。
func (s *MembershipService) LeaveRoom(ctx context.Context, userID, roomID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID})

	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		membership, txErr := uow.Memberships().FindByUserAndRoom(ctx, userID, roomID)
		if txErr != nil {
			if errors.Is(txErr, repository.ErrMembershipNotFound) {
				return ErrMembershipNotFound
			}
			return txErr
		}
		return uow.Memberships().Delete(ctx, membership.ID)
	})
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			logCtx.Warn("LeaveRoom: Membership not found")
			return ErrMembershipNotFound
		}
		logCtx.WithError(err).Error("LeaveRoom: Transaction failed")
		return ErrInternalServer
	}

	logCtx.Info("User left room")
	return nil
}

// UpdateRole 修改成员在房间内的角色。
func (s *MembershipService) UpdateRole(ctx context.Context, userID, roomID uint, role domain.Role) (*domain.Membership, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID, "role": role})

	if !domain.ValidRole(role) {
		logCtx.Warn("UpdateRole: Invalid role")
		return nil, ErrInvalidInput
	}

	var membership *domain.Membership
	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		var txErr error
		membership, txErr = uow.Memberships().FindByUserAndRoom(ctx, userID, roomID)
		if txErr != nil {
			if errors.Is(txErr, repository.ErrMembershipNotFound) {
				return ErrMembershipNotFound
			}
			return txErr
		}
		membership.Role = role
		return uow.Memberships().Save(ctx, membership)
	})
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			logCtx.Warn("UpdateRole: Membership not found")
			return nil, ErrMembershipNotFound
		}
		logCtx.WithError(err).Error("UpdateRole: Transaction failed")
		return nil, ErrInternalServer
	}

	logCtx.Info("Membership role updated")
	return membership, nil
}

// GetMembership 返回用户在房间内的成员关系，用于权限检查。
func (s *MembershipService) GetMembership(ctx context.Context, userID, roomID uint) (*domain.Membership, error) {
	membership, err := s.uow.Memberships().FindByUserAndRoom(ctx, userID, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			return nil, ErrMembershipNotFound
		}
		logrus.WithError(err).WithFields(logrus.Fields{"user_id": userID, "room_id": roomID}).
			Error("GetMembership: Repository error")
		return nil, ErrInternalServer
	}
	return membership, nil
}

// ListMembers 分页返回房间成员。
func (s *MembershipService) ListMembers(ctx context.Context, roomID uint, page, size int) (dto.Page, error) {
	if err := validatePaging(page, size); err != nil {
		return dto.Page{}, err
	}
	members, total, err := s.uow.Memberships().GetPageByRoom(ctx, roomID, page, size)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("ListMembers: Repository error")
		return dto.Page{}, ErrInternalServer
	}
	return dto.NewPage(members, page, size, total), nil
}
