package service

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrInvalidRefreshToken  = errors.New("invalid or revoked refresh token")
	ErrInternalServer       = errors.New("internal server error")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrInvalidPayload       = errors.New("invalid event payload")
	// ErrNotInRoom 表示房间级操作在连接绑定到房间之前被调用，
	// 属于调用方的编程错误，只影响该事件本身。
	ErrNotInRoom = errors.New("connection is not bound to a room")
)
