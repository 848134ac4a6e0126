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

// MessageService 负责房间内聊天消息的持久化与查询。
// 消息行上冗余保存作者名快照 (Author)，作者账号被删除后历史消息仍可读。
type MessageService struct {
	tx  repository.TxManager
	uow repository.UnitOfWork
}

// NewMessageService 创建 MessageService 实例。
func NewMessageService(tx repository.TxManager, uow repository.UnitOfWork) *MessageService {
	if tx == nil {
		panic("TxManager cannot be nil for MessageService")
	}
	if uow == nil {
		panic("UnitOfWork cannot be nil for MessageService")
	}
	return &MessageService{tx: tx, uow: uow}
}

// PostMessage 在房间内发布一条消息。
func (s *MessageService) PostMessage(ctx context.Context, roomID, userID uint, text string) (*domain.Message, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	text = strings.TrimSpace(text)
	if text == "" || len(text) > 2000 {
		logCtx.Warn("PostMessage: Invalid message text")
		return nil, ErrInvalidInput
	}

	var message *domain.Message
	err := s.tx.RunInTransaction(ctx, func(uow repository.UnitOfWork) error {
		if _, txErr := uow.Rooms().FindByID(ctx, roomID); txErr != nil {
			if errors.Is(txErr, repository.ErrRoomNotFound) {
				return ErrRoomNotFound
			}
			return txErr
		}
		user, txErr := uow.Users().FindByID(ctx, userID)
		if txErr != nil {
			if errors.Is(txErr, repository.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return txErr
		}

		message = &domain.Message{
			RoomID: roomID,
			UserID: &user.ID,
			Author: user.Username, // 作者名快照，账号删除后保留
			Text:   text,
		}
		return uow.Messages().Create(ctx, message)
	})
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrUserNotFound) {
			logCtx.WithError(err).Warn("PostMessage: Rejected")
			return nil, err
		}
		logCtx.WithError(err).Error("PostMessage: Transaction failed")
		return nil, ErrInternalServer
	}

	return message, nil
}

// ListMessages 分页返回房间消息 (最新在前)。
func (s *MessageService) ListMessages(ctx context.Context, roomID uint, page, size int) (dto.Page, error) {
	if err := validatePaging(page, size); err != nil {
		return dto.Page{}, err
	}
	messages, total, err := s.uow.Messages().GetPageByRoom(ctx, roomID, page, size)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("ListMessages: Repository error")
		return dto.Page{}, ErrInternalServer
	}
	return dto.NewPage(messages, page, size, total), nil
}
