// Package mocks 提供 repository 接口的 testify mock 实现，仅用于测试。
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"collabboard/internal/domain"
)

// UserRepository 是 repository.UserRepository 的 mock。
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *UserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	args := m.Called(ctx, id)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *UserRepository) Save(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// RoomRepository 是 repository.RoomRepository 的 mock。
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) FindByID(ctx context.Context, roomID int64) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	var room *domain.Room
	if args.Get(0) != nil {
		room = args.Get(0).(*domain.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepository) FindAll(ctx context.Context) ([]domain.Room, error) {
	args := m.Called(ctx)
	var rooms []domain.Room
	if args.Get(0) != nil {
		rooms = args.Get(0).([]domain.Room)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepository) Save(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *RoomRepository) Delete(ctx context.Context, roomID int64) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *RoomRepository) SetAdmin(ctx context.Context, roomID int64, adminID uint) error {
	args := m.Called(ctx, roomID, adminID)
	return args.Error(0)
}

// DrawingPointRepository 是 repository.DrawingPointRepository 的 mock。
type DrawingPointRepository struct {
	mock.Mock
}

func (m *DrawingPointRepository) SaveBatch(ctx context.Context, points []domain.DrawingPoint) error {
	args := m.Called(ctx, points)
	return args.Error(0)
}

func (m *DrawingPointRepository) FindByDrawing(ctx context.Context, drawingID int64) ([]domain.DrawingPoint, error) {
	args := m.Called(ctx, drawingID)
	var points []domain.DrawingPoint
	if args.Get(0) != nil {
		points = args.Get(0).([]domain.DrawingPoint)
	}
	return points, args.Error(1)
}

func (m *DrawingPointRepository) FindGroup(ctx context.Context, userID uint, drawingID int64, group int64) ([]domain.DrawingPoint, error) {
	args := m.Called(ctx, userID, drawingID, group)
	var points []domain.DrawingPoint
	if args.Get(0) != nil {
		points = args.Get(0).([]domain.DrawingPoint)
	}
	return points, args.Error(1)
}

func (m *DrawingPointRepository) DeleteGroup(ctx context.Context, userID uint, drawingID int64, group int64) error {
	args := m.Called(ctx, userID, drawingID, group)
	return args.Error(0)
}

func (m *DrawingPointRepository) DeleteByDrawing(ctx context.Context, drawingID int64) error {
	args := m.Called(ctx, drawingID)
	return args.Error(0)
}

// MessageRepository 是 repository.MessageRepository 的 mock。
type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepository) FindGeneral(ctx context.Context) ([]domain.Message, error) {
	args := m.Called(ctx)
	var msgs []domain.Message
	if args.Get(0) != nil {
		msgs = args.Get(0).([]domain.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepository) FindByRoom(ctx context.Context, roomID int64) ([]domain.Message, error) {
	args := m.Called(ctx, roomID)
	var msgs []domain.Message
	if args.Get(0) != nil {
		msgs = args.Get(0).([]domain.Message)
	}
	return msgs, args.Error(1)
}

// InvitationRepository 是 repository.InvitationRepository 的 mock。
type InvitationRepository struct {
	mock.Mock
}

func (m *InvitationRepository) Save(ctx context.Context, inv *domain.Invitation) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *InvitationRepository) FindByReceiver(ctx context.Context, receiverID uint) ([]domain.Invitation, error) {
	args := m.Called(ctx, receiverID)
	var invs []domain.Invitation
	if args.Get(0) != nil {
		invs = args.Get(0).([]domain.Invitation)
	}
	return invs, args.Error(1)
}

// StateRepository 是 repository.StateRepository 的 mock。
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) SetGlobalPresence(ctx context.Context, users domain.PresenceSet) error {
	args := m.Called(ctx, users)
	return args.Error(0)
}

func (m *StateRepository) ClearGlobalPresence(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StateRepository) GetGlobalPresence(ctx context.Context) (domain.PresenceSet, error) {
	args := m.Called(ctx)
	var users domain.PresenceSet
	if args.Get(0) != nil {
		users = args.Get(0).(domain.PresenceSet)
	}
	return users, args.Error(1)
}

func (m *StateRepository) SetActiveDrawing(ctx context.Context, roomID int64, drawingID int64) error {
	args := m.Called(ctx, roomID, drawingID)
	return args.Error(0)
}

func (m *StateRepository) ActiveDrawing(ctx context.Context, roomID int64) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StateRepository) CleanupRoomState(ctx context.Context, roomID int64) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *StateRepository) TokenCount(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StateRepository) IncrementTokenCount(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StateRepository) CacheChannelHistory(ctx context.Context, channel string, msgs []domain.Message, ttl time.Duration) error {
	args := m.Called(ctx, channel, msgs, ttl)
	return args.Error(0)
}

func (m *StateRepository) CachedChannelHistory(ctx context.Context, channel string) ([]domain.Message, error) {
	args := m.Called(ctx, channel)
	var msgs []domain.Message
	if args.Get(0) != nil {
		msgs = args.Get(0).([]domain.Message)
	}
	return msgs, args.Error(1)
}

func (m *StateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}
