package service

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrBoardNotFound        = errors.New("board not found")
	ErrBoardStateNotFound   = errors.New("board state not found")
	ErrMembershipNotFound   = errors.New("membership not found")
	ErrRoomNameTaken        = errors.New("room name already taken")
	ErrAlreadyMember        = errors.New("user is already a member of this room")
	ErrVersionConflict      = errors.New("board state version already exists")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInternalServer       = errors.New("internal server error")
)
