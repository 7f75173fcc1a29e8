package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"collabboard/internal/domain"
)

// GormMessageRepository 是 MessageRepository 接口的 GORM 实现
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建 GormMessageRepository 实例
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

// Save 实现持久化一条消息
func (r *GormMessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	err := r.db.WithContext(ctx).Create(msg).Error
	if err != nil {
		return fmt.Errorf("gorm: save message from user %d: %w", msg.AuthorID, err)
	}
	return nil
}

// FindGeneral 实现查询全局频道消息。
// 只按 is_general 过滤，绝不混入任何房间频道的消息。
func (r *GormMessageRepository) FindGeneral(ctx context.Context) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.WithContext(ctx).
		Where("is_general = ?", true).
		Order("id asc").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find general messages: %w", err)
	}
	return msgs, nil
}

// FindByRoom 实现查询房间频道消息
func (r *GormMessageRepository) FindByRoom(ctx context.Context, roomID int64) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.WithContext(ctx).
		Where("is_general = ? AND room_id = ?", false, roomID).
		Order("id asc").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find messages for room %d: %w", roomID, err)
	}
	return msgs, nil
}

// GormInvitationRepository 是 InvitationRepository 接口的 GORM 实现
type GormInvitationRepository struct {
	db *gorm.DB
}

// NewGormInvitationRepository 创建 GormInvitationRepository 实例
func NewGormInvitationRepository(db *gorm.DB) *GormInvitationRepository {
	if db == nil {
		panic("database connection cannot be nil for GormInvitationRepository")
	}
	return &GormInvitationRepository{db: db}
}

// Save 实现持久化一条邀请
func (r *GormInvitationRepository) Save(ctx context.Context, inv *domain.Invitation) error {
	err := r.db.WithContext(ctx).Create(inv).Error
	if err != nil {
		return fmt.Errorf("gorm: save invitation for receiver %d: %w", inv.ReceiverID, err)
	}
	return nil
}

// FindByReceiver 实现查询接收者收件箱，最新的在前
func (r *GormInvitationRepository) FindByReceiver(ctx context.Context, receiverID uint) ([]domain.Invitation, error) {
	var invs []domain.Invitation
	err := r.db.WithContext(ctx).
		Where("receiver_id = ?", receiverID).
		Order("id desc").
		Find(&invs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find inbox for user %d: %w", receiverID, err)
	}
	return invs, nil
}
