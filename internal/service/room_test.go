package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"collabboard/internal/domain"
	"collabboard/internal/repository"
	"collabboard/internal/repository/mocks"
	"collabboard/internal/service"
)

func TestRoomService_ListRooms_StripsPasswordHash(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	svc := service.NewRoomService(mockRoomRepo, new(mocks.StateRepository))
	ctx := context.Background()

	rooms := []domain.Room{
		{RoomID: 100, Name: "open", AdminID: 1},
		{RoomID: 200, Name: "secret", AdminID: 2, IsPrivate: true, PasswordHash: "$2a$10$something"},
	}
	mockRoomRepo.On("FindAll", ctx).Return(rooms, nil).Once()

	directory, err := svc.ListRooms(ctx)

	require.NoError(t, err)
	require.Len(t, directory, 2)
	assert.Equal(t, "open", directory[100].Name)
	// 密码哈希绝不能跨出服务端边界
	assert.Empty(t, directory[200].PasswordHash)
	assert.True(t, directory[200].IsPrivate)
}

func TestRoomService_CreateRoom_Success(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockStateRepo := new(mocks.StateRepository)
	svc := service.NewRoomService(mockRoomRepo, mockStateRepo)
	ctx := context.Background()

	mockRoomRepo.On("Save", ctx, mock.MatchedBy(func(room *domain.Room) bool {
		// RoomID 由当前时间戳派生
		return room.RoomID > 0 && room.Name == "standup" && room.AdminID == uint(5)
	})).Return(nil).Once()
	mockStateRepo.On("SetActiveDrawing", ctx, mock.AnythingOfType("int64"), int64(9001)).Return(nil).Once()

	room, err := svc.CreateRoom(ctx, "standup", 5, false, "", 9001)

	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Positive(t, room.RoomID)
	assert.Empty(t, room.PasswordHash)
	mockRoomRepo.AssertExpectations(t)
	mockStateRepo.AssertExpectations(t)
}

func TestRoomService_CreateRoom_PrivateHashesPassword(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockStateRepo := new(mocks.StateRepository)
	svc := service.NewRoomService(mockRoomRepo, mockStateRepo)
	ctx := context.Background()

	var savedHash string
	mockRoomRepo.On("Save", ctx, mock.MatchedBy(func(room *domain.Room) bool {
		savedHash = room.PasswordHash
		return room.IsPrivate && room.PasswordHash != "" && room.PasswordHash != "hunter2"
	})).Return(nil).Once()
	mockStateRepo.On("SetActiveDrawing", ctx, mock.AnythingOfType("int64"), int64(1)).Return(nil).Once()

	room, err := svc.CreateRoom(ctx, "vault", 5, true, "hunter2", 1)

	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(savedHash), []byte("hunter2")))
	// 返回给调用方的副本不携带哈希
	assert.Empty(t, room.PasswordHash)
}

func TestRoomService_CreateRoom_BumpsIDOnCollision(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockStateRepo := new(mocks.StateRepository)
	svc := service.NewRoomService(mockRoomRepo, mockStateRepo)
	ctx := context.Background()

	// 同一毫秒的两次创建触发唯一约束冲突，第二次保存递增 ID 重试
	var firstID int64
	mockRoomRepo.On("Save", ctx, mock.AnythingOfType("*domain.Room")).
		Return(repository.ErrDuplicateEntry).
		Run(func(args mock.Arguments) { firstID = args.Get(1).(*domain.Room).RoomID }).
		Once()
	mockRoomRepo.On("Save", ctx, mock.AnythingOfType("*domain.Room")).Return(nil).Once()
	mockStateRepo.On("SetActiveDrawing", ctx, mock.AnythingOfType("int64"), int64(0)).Return(nil).Once()

	room, err := svc.CreateRoom(ctx, "busy", 1, false, "", 0)

	require.NoError(t, err)
	assert.Equal(t, firstID+1, room.RoomID)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomService_FindRoom_NotFound(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	svc := service.NewRoomService(mockRoomRepo, new(mocks.StateRepository))
	ctx := context.Background()

	mockRoomRepo.On("FindByID", ctx, int64(404)).Return(nil, repository.ErrRoomNotFound).Once()

	_, err := svc.FindRoom(ctx, 404)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRoomNotFound))
}

func TestRoomService_DeleteRoom_CleanupFailureIsNotFatal(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockStateRepo := new(mocks.StateRepository)
	svc := service.NewRoomService(mockRoomRepo, mockStateRepo)
	ctx := context.Background()

	mockRoomRepo.On("Delete", ctx, int64(100)).Return(nil).Once()
	// 短时 key 清理失败只告警：行已删除，key 会随 TTL 消亡
	mockStateRepo.On("CleanupRoomState", ctx, int64(100)).Return(errors.New("redis down")).Once()

	err := svc.DeleteRoom(ctx, 100)

	require.NoError(t, err)
	mockRoomRepo.AssertExpectations(t)
	mockStateRepo.AssertExpectations(t)
}

func TestRoomService_SetAdmin(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	svc := service.NewRoomService(mockRoomRepo, new(mocks.StateRepository))
	ctx := context.Background()

	mockRoomRepo.On("SetAdmin", ctx, int64(100), uint(9)).Return(nil).Once()

	require.NoError(t, svc.SetAdmin(ctx, 100, 9))
	mockRoomRepo.AssertExpectations(t)
}
