package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabboard/internal/repository/mocks"
	"collabboard/internal/service"
)

func newTokenService(t *testing.T, stateRepo *mocks.StateRepository) *service.TokenService {
	t.Helper()
	svc, err := service.NewTokenService(stateRepo, "test-secret", 1, 24)
	require.NoError(t, err)
	return svc
}

func TestTokenService_RequiresSecret(t *testing.T) {
	_, err := service.NewTokenService(new(mocks.StateRepository), "", 1, 24)
	require.Error(t, err)
}

func TestTokenService_RefreshRoundTrip(t *testing.T) {
	mockStateRepo := new(mocks.StateRepository)
	svc := newTokenService(t, mockStateRepo)
	ctx := context.Background()

	// 签发与校验读取同一个计数
	mockStateRepo.On("TokenCount", ctx, uint(7)).Return(int64(3), nil).Twice()

	refresh, err := svc.IssueRefreshToken(ctx, 7)
	require.NoError(t, err)
	require.NotEmpty(t, refresh)

	userID, err := svc.VerifyRefresh(ctx, refresh)
	require.NoError(t, err)
	assert.Equal(t, uint(7), userID)
	mockStateRepo.AssertExpectations(t)
}

func TestTokenService_RevokedRefreshRejected(t *testing.T) {
	mockStateRepo := new(mocks.StateRepository)
	svc := newTokenService(t, mockStateRepo)
	ctx := context.Background()

	// 签发时计数为 3，校验时已递增到 4（登出后），令牌视为吊销
	mockStateRepo.On("TokenCount", ctx, uint(7)).Return(int64(3), nil).Once()
	refresh, err := svc.IssueRefreshToken(ctx, 7)
	require.NoError(t, err)

	mockStateRepo.On("TokenCount", ctx, uint(7)).Return(int64(4), nil).Once()
	_, err = svc.VerifyRefresh(ctx, refresh)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidRefreshToken))
}

func TestTokenService_GarbageRefreshRejected(t *testing.T) {
	svc := newTokenService(t, new(mocks.StateRepository))

	_, err := svc.VerifyRefresh(context.Background(), "not.a.jwt")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidRefreshToken))
}

func TestTokenService_AccessTokenNotValidAsRefresh(t *testing.T) {
	svc := newTokenService(t, new(mocks.StateRepository))

	access, err := svc.IssueAccessToken(7, "alice")
	require.NoError(t, err)

	// 访问令牌没有 token_count claim，不能当刷新令牌用
	_, err = svc.VerifyRefresh(context.Background(), access)
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidRefreshToken))
}

func TestTokenService_InvalidateRefreshTokens(t *testing.T) {
	mockStateRepo := new(mocks.StateRepository)
	svc := newTokenService(t, mockStateRepo)
	ctx := context.Background()

	mockStateRepo.On("IncrementTokenCount", ctx, uint(7)).Return(int64(5), nil).Once()

	require.NoError(t, svc.InvalidateRefreshTokens(ctx, 7))
	mockStateRepo.AssertExpectations(t)
}
