package repository

import (
	"context"

	"collabboard/internal/domain"
)

// MessageRepository 定义了聊天消息的存储和查询。
// 查询必须只基于 isGeneral/roomId 这一个判别条件过滤，
// 一条消息绝不会同时出现在全局频道和房间频道。
type MessageRepository interface {
	// Save 持久化一条消息。
	Save(ctx context.Context, msg *domain.Message) error

	// FindGeneral 返回全局频道的全部消息，按创建顺序。
	FindGeneral(ctx context.Context) ([]domain.Message, error)

	// FindByRoom 返回指定房间频道的全部消息，按创建顺序。
	FindByRoom(ctx context.Context, roomID int64) ([]domain.Message, error)
}

// InvitationRepository 定义了收件箱邀请的存储和查询。
type InvitationRepository interface {
	// Save 持久化一条邀请。
	Save(ctx context.Context, inv *domain.Invitation) error

	// FindByReceiver 返回接收者的全部邀请，最新的排在最前 (id DESC)。
	FindByReceiver(ctx context.Context, receiverID uint) ([]domain.Invitation, error)
}
