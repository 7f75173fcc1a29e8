package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"collabboard/internal/domain"
	"collabboard/internal/repository"
)

// generalChannel 是全局频道在缓存 key 中使用的名字。
// 房间频道使用十进制的 roomId，两者不可能冲突。
const generalChannel = "general"

// historyCacheTTL 是频道历史缓存的生存时间。
const historyCacheTTL = 10 * time.Minute

// MessageService 负责聊天消息的持久化与查询、打字信号和私人收件箱。
// 每次发送都返回过滤后的完整频道历史，调用方整体广播——
// 对有界的频道规模这是可接受的。
type MessageService struct {
	msgRepo   repository.MessageRepository
	invRepo   repository.InvitationRepository
	stateRepo repository.StateRepository
}

// NewMessageService 创建 MessageService 实例。
func NewMessageService(msgRepo repository.MessageRepository, invRepo repository.InvitationRepository, stateRepo repository.StateRepository) *MessageService {
	if msgRepo == nil || invRepo == nil || stateRepo == nil {
		panic("all repositories must be non-nil for MessageService")
	}
	return &MessageService{
		msgRepo:   msgRepo,
		invRepo:   invRepo,
		stateRepo: stateRepo,
	}
}

// GetGeneralMessages 返回全局频道的全部消息，优先走缓存。
func (s *MessageService) GetGeneralMessages(ctx context.Context) ([]domain.Message, error) {
	if cached, err := s.stateRepo.CachedChannelHistory(ctx, generalChannel); err == nil {
		return cached, nil
	}
	msgs, err := s.msgRepo.FindGeneral(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to load general messages")
		return nil, ErrStoreUnavailable
	}
	s.refreshCache(ctx, generalChannel, msgs)
	return msgs, nil
}

// GetRoomMessages 返回房间频道的全部消息，优先走缓存。
func (s *MessageService) GetRoomMessages(ctx context.Context, roomID int64) ([]domain.Message, error) {
	channel := strconv.FormatInt(roomID, 10)
	if cached, err := s.stateRepo.CachedChannelHistory(ctx, channel); err == nil {
		return cached, nil
	}
	msgs, err := s.msgRepo.FindByRoom(ctx, roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to load room messages")
		return nil, ErrStoreUnavailable
	}
	s.refreshCache(ctx, channel, msgs)
	return msgs, nil
}

// SendGeneralMessage 持久化一条全局频道消息并返回该频道的完整历史。
func (s *MessageService) SendGeneralMessage(ctx context.Context, authorID uint, author, text string) ([]domain.Message, error) {
	msg := &domain.Message{
		AuthorID:  authorID,
		Author:    author,
		Text:      text,
		IsGeneral: true,
	}
	if err := s.msgRepo.Save(ctx, msg); err != nil {
		logrus.WithError(err).WithField("author_id", authorID).Error("Failed to save general message")
		return nil, ErrStoreUnavailable
	}
	msgs, err := s.msgRepo.FindGeneral(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to reload general messages after send")
		return nil, ErrStoreUnavailable
	}
	s.refreshCache(ctx, generalChannel, msgs)
	return msgs, nil
}

// SendRoomMessage 持久化一条房间频道消息并返回该频道的完整历史。
func (s *MessageService) SendRoomMessage(ctx context.Context, roomID int64, authorID uint, author, text string) ([]domain.Message, error) {
	msg := &domain.Message{
		AuthorID:  authorID,
		Author:    author,
		Text:      text,
		RoomID:    &roomID,
		IsGeneral: false,
	}
	if err := s.msgRepo.Save(ctx, msg); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"author_id": authorID, "room_id": roomID}).
			Error("Failed to save room message")
		return nil, ErrStoreUnavailable
	}
	msgs, err := s.msgRepo.FindByRoom(ctx, roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to reload room messages after send")
		return nil, ErrStoreUnavailable
	}
	s.refreshCache(ctx, strconv.FormatInt(roomID, 10), msgs)
	return msgs, nil
}

// SaveInvitation 持久化一条收件箱邀请并返回接收者的完整收件箱（最新在前）。
func (s *MessageService) SaveInvitation(ctx context.Context, inv domain.Invitation) ([]domain.Invitation, error) {
	logCtx := logrus.WithFields(logrus.Fields{"sender_id": inv.SenderID, "receiver_id": inv.ReceiverID})

	if err := s.invRepo.Save(ctx, &inv); err != nil {
		logCtx.WithError(err).Error("Failed to save invitation")
		return nil, ErrStoreUnavailable
	}
	inbox, err := s.invRepo.FindByReceiver(ctx, inv.ReceiverID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to reload inbox after invitation")
		return nil, ErrStoreUnavailable
	}
	logCtx.Debug("Invitation delivered to inbox")
	return inbox, nil
}

// Inbox 返回接收者的完整收件箱（最新在前）。
func (s *MessageService) Inbox(ctx context.Context, userID uint) ([]domain.Invitation, error) {
	inbox, err := s.invRepo.FindByReceiver(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to load inbox")
		return nil, ErrStoreUnavailable
	}
	return inbox, nil
}

// refreshCache 更新频道历史缓存；缓存失败只记录，不影响主流程。
func (s *MessageService) refreshCache(ctx context.Context, channel string, msgs []domain.Message) {
	if err := s.stateRepo.CacheChannelHistory(ctx, channel, msgs, historyCacheTTL); err != nil &&
		!errors.Is(err, repository.ErrNotFound) {
		logrus.WithError(err).WithField("channel", channel).Warn("Failed to refresh channel history cache")
	}
}
