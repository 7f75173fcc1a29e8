package repository

import (
	"context"

	"collabboard/internal/domain"
)

// RoomRepository 定义了房间数据的存储和检索操作。
type RoomRepository interface {
	// FindByID 根据房间 ID 查找房间。
	// 如果房间不存在，返回 ErrRoomNotFound。
	FindByID(ctx context.Context, roomID int64) (*domain.Room, error)

	// FindAll 返回所有未删除的房间。
	FindAll(ctx context.Context) ([]domain.Room, error)

	// Save 保存房间信息。
	// 如果房间已存在 (基于 RoomID)，则更新；否则创建新房间。
	Save(ctx context.Context, room *domain.Room) error

	// Delete 删除指定房间的记录。
	Delete(ctx context.Context, roomID int64) error

	// SetAdmin 持久化房间的新管理员。
	SetAdmin(ctx context.Context, roomID int64, adminID uint) error
}
