package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"collabboard/internal/domain"
	"collabboard/internal/repository"
)

// RoomService 负责房间目录的管理：创建、列表、删除、管理员变更。
// 房间的占用统计来自实时连接注册表，由调用方（网关）提供；
// 这里只处理持久化和短时状态。
type RoomService struct {
	roomRepo  repository.RoomRepository
	stateRepo repository.StateRepository
}

// NewRoomService 创建 RoomService 实例。
func NewRoomService(roomRepo repository.RoomRepository, stateRepo repository.StateRepository) *RoomService {
	if roomRepo == nil || stateRepo == nil {
		panic("all repositories must be non-nil for RoomService")
	}
	return &RoomService{
		roomRepo:  roomRepo,
		stateRepo: stateRepo,
	}
}

// ListRooms 返回完整的房间目录。
// 密码哈希在这里被剥离，绝不允许跨出服务端边界。
func (s *RoomService) ListRooms(ctx context.Context) (domain.RoomDirectory, error) {
	rooms, err := s.roomRepo.FindAll(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list rooms")
		return nil, ErrStoreUnavailable
	}
	directory := make(domain.RoomDirectory, len(rooms))
	for _, room := range rooms {
		directory[room.RoomID] = room.WithoutPassword()
	}
	return directory, nil
}

// CreateRoom 创建一个新房间并记录其初始画布。
// RoomID 由当前时间戳派生；极端情况下同一毫秒内的两次创建
// 会触发唯一约束冲突，此时递增重试。
func (s *RoomService) CreateRoom(ctx context.Context, name string, adminID uint, isPrivate bool, password string, drawingID int64) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"admin_id": adminID, "room_name": name})

	room := &domain.Room{
		Name:      name,
		AdminID:   adminID,
		IsPrivate: isPrivate,
	}
	if isPrivate && password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			logCtx.WithError(err).Error("Failed to hash room password")
			return nil, ErrStoreUnavailable
		}
		room.PasswordHash = string(hash)
	}

	const maxAttempts = 5
	room.RoomID = time.Now().UnixMilli()
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = s.roomRepo.Save(ctx, room)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateEntry) {
			room.RoomID++
			continue
		}
		logCtx.WithError(err).Error("Failed to save new room")
		return nil, ErrStoreUnavailable
	}
	if err != nil {
		logCtx.Errorf("Failed to allocate unique room id after %d attempts", maxAttempts)
		return nil, ErrStoreUnavailable
	}
	logCtx = logCtx.WithField("room_id", room.RoomID)

	if err := s.stateRepo.SetActiveDrawing(ctx, room.RoomID, drawingID); err != nil {
		logCtx.WithError(err).Error("Failed to record initial drawing for room")
		return nil, ErrStoreUnavailable
	}

	logCtx.Info("Room created successfully")
	created := room.WithoutPassword()
	return &created, nil
}

// FindRoom 根据 ID 查找房间。
func (s *RoomService) FindRoom(ctx context.Context, roomID int64) (*domain.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to find room")
		return nil, ErrStoreUnavailable
	}
	return room, nil
}

// DeleteRoom 删除房间记录及其全部短时状态。
// 在最后一个成员离开房间时由网关调用。
func (s *RoomService) DeleteRoom(ctx context.Context, roomID int64) error {
	logCtx := logrus.WithField("room_id", roomID)

	if err := s.roomRepo.Delete(ctx, roomID); err != nil {
		logCtx.WithError(err).Error("Failed to delete room row")
		return ErrStoreUnavailable
	}
	if err := s.stateRepo.CleanupRoomState(ctx, roomID); err != nil {
		// 行已删除，短时 key 会随 TTL 消亡；记录但不回滚
		logCtx.WithError(err).Warn("Failed to cleanup ephemeral room state")
	}
	logCtx.Info("Room deleted (last member left)")
	return nil
}

// SetAdmin 持久化房间的新管理员。
func (s *RoomService) SetAdmin(ctx context.Context, roomID int64, adminID uint) error {
	err := s.roomRepo.SetAdmin(ctx, roomID, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		logrus.WithError(err).WithFields(logrus.Fields{"room_id": roomID, "admin_id": adminID}).
			Error("Failed to set room admin")
		return ErrStoreUnavailable
	}
	logrus.WithFields(logrus.Fields{"room_id": roomID, "admin_id": adminID}).Info("New room admin set")
	return nil
}
