package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collabboard/internal/domain"
	"collabboard/internal/repository"
	"collabboard/internal/repository/mocks"
	"collabboard/internal/service"
)

func newMessageService(msgRepo *mocks.MessageRepository, invRepo *mocks.InvitationRepository, stateRepo *mocks.StateRepository) *service.MessageService {
	return service.NewMessageService(msgRepo, invRepo, stateRepo)
}

func TestMessageService_SendGeneralMessage_ReturnsFullHistory(t *testing.T) {
	mockMsgRepo := new(mocks.MessageRepository)
	mockStateRepo := new(mocks.StateRepository)
	svc := newMessageService(mockMsgRepo, new(mocks.InvitationRepository), mockStateRepo)
	ctx := context.Background()

	history := []domain.Message{
		{ID: 1, Author: "alice", Text: "hi", IsGeneral: true},
		{ID: 2, Author: "bob", Text: "hello", IsGeneral: true},
	}

	mockMsgRepo.On("Save", ctx, mock.MatchedBy(func(msg *domain.Message) bool {
		// 全局消息的判别条件：isGeneral 为真且不携带 roomId
		return msg.IsGeneral && msg.RoomID == nil && msg.Text == "hello"
	})).Return(nil).Once()
	mockMsgRepo.On("FindGeneral", ctx).Return(history, nil).Once()
	mockStateRepo.On("CacheChannelHistory", ctx, "general", history, mock.Anything).Return(nil).Once()

	msgs, err := svc.SendGeneralMessage(ctx, 2, "bob", "hello")

	require.NoError(t, err)
	assert.Equal(t, history, msgs)
	mockMsgRepo.AssertExpectations(t)
}

func TestMessageService_SendRoomMessage_NeverGeneral(t *testing.T) {
	mockMsgRepo := new(mocks.MessageRepository)
	mockStateRepo := new(mocks.StateRepository)
	svc := newMessageService(mockMsgRepo, new(mocks.InvitationRepository), mockStateRepo)
	ctx := context.Background()
	roomID := int64(1714000000000)

	mockMsgRepo.On("Save", ctx, mock.MatchedBy(func(msg *domain.Message) bool {
		// 房间消息绝不能落入全局频道
		return !msg.IsGeneral && msg.RoomID != nil && *msg.RoomID == roomID
	})).Return(nil).Once()
	mockMsgRepo.On("FindByRoom", ctx, roomID).Return([]domain.Message{}, nil).Once()
	mockStateRepo.On("CacheChannelHistory", ctx, "1714000000000", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.SendRoomMessage(ctx, roomID, 1, "alice", "room only")

	require.NoError(t, err)
	mockMsgRepo.AssertExpectations(t)
	// 房间消息发送后不应查询全局频道
	mockMsgRepo.AssertNotCalled(t, "FindGeneral", mock.Anything)
}

func TestMessageService_GetGeneralMessages_CacheHit(t *testing.T) {
	mockMsgRepo := new(mocks.MessageRepository)
	mockStateRepo := new(mocks.StateRepository)
	svc := newMessageService(mockMsgRepo, new(mocks.InvitationRepository), mockStateRepo)
	ctx := context.Background()

	cached := []domain.Message{{ID: 1, Text: "cached", IsGeneral: true}}
	mockStateRepo.On("CachedChannelHistory", ctx, "general").Return(cached, nil).Once()

	msgs, err := svc.GetGeneralMessages(ctx)

	require.NoError(t, err)
	assert.Equal(t, cached, msgs)
	mockMsgRepo.AssertNotCalled(t, "FindGeneral", mock.Anything)
}

func TestMessageService_GetGeneralMessages_CacheMissFallsThrough(t *testing.T) {
	mockMsgRepo := new(mocks.MessageRepository)
	mockStateRepo := new(mocks.StateRepository)
	svc := newMessageService(mockMsgRepo, new(mocks.InvitationRepository), mockStateRepo)
	ctx := context.Background()

	stored := []domain.Message{{ID: 1, Text: "db", IsGeneral: true}}
	mockStateRepo.On("CachedChannelHistory", ctx, "general").Return(nil, repository.ErrNotFound).Once()
	mockMsgRepo.On("FindGeneral", ctx).Return(stored, nil).Once()
	mockStateRepo.On("CacheChannelHistory", ctx, "general", stored, mock.Anything).Return(nil).Once()

	msgs, err := svc.GetGeneralMessages(ctx)

	require.NoError(t, err)
	assert.Equal(t, stored, msgs)
	mockMsgRepo.AssertExpectations(t)
}

func TestMessageService_SaveInvitation_ReturnsInboxNewestFirst(t *testing.T) {
	mockInvRepo := new(mocks.InvitationRepository)
	svc := newMessageService(new(mocks.MessageRepository), mockInvRepo, new(mocks.StateRepository))
	ctx := context.Background()

	inbox := []domain.Invitation{
		{ID: 9, SenderName: "bob", ReceiverID: 3},
		{ID: 4, SenderName: "alice", ReceiverID: 3},
	}
	mockInvRepo.On("Save", ctx, mock.MatchedBy(func(inv *domain.Invitation) bool {
		return inv.ReceiverID == 3 && inv.SenderID == 1
	})).Return(nil).Once()
	mockInvRepo.On("FindByReceiver", ctx, uint(3)).Return(inbox, nil).Once()

	got, err := svc.SaveInvitation(ctx, domain.Invitation{SenderID: 1, SenderName: "alice", ReceiverID: 3, RoomID: 77})

	require.NoError(t, err)
	assert.Equal(t, inbox, got)
	mockInvRepo.AssertExpectations(t)
}
