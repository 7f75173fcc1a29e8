package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"collabboard/internal/repository"
)

// TokenService 负责签发和校验 JWT。
// 访问令牌短期有效；刷新令牌中嵌入了用户在 Redis 里的刷新计数，
// 计数一旦递增（登出、改密），旧的刷新令牌立即全部失效。
type TokenService struct {
	stateRepo     jwtCounterStore
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// jwtCounterStore 是 TokenService 对状态仓库的最小依赖。
type jwtCounterStore interface {
	TokenCount(ctx context.Context, userID uint) (int64, error)
	IncrementTokenCount(ctx context.Context, userID uint) (int64, error)
}

var _ jwtCounterStore = (repository.StateRepository)(nil)

// NewTokenService 创建 TokenService 实例。
func NewTokenService(stateRepo repository.StateRepository, secret string, accessExpiryHours, refreshExpiryHours int) (*TokenService, error) {
	if stateRepo == nil {
		panic("StateRepository cannot be nil for TokenService")
	}
	if secret == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if accessExpiryHours <= 0 {
		accessExpiryHours = 24
	}
	if refreshExpiryHours <= 0 {
		refreshExpiryHours = 24 * 7
	}
	return &TokenService{
		stateRepo:     stateRepo,
		secret:        []byte(secret),
		accessExpiry:  time.Duration(accessExpiryHours) * time.Hour,
		refreshExpiry: time.Duration(refreshExpiryHours) * time.Hour,
	}, nil
}

// IssueAccessToken 为用户签发访问令牌。
func (s *TokenService) IssueAccessToken(userID uint, username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"exp":      now.Add(s.accessExpiry).Unix(),
		"iat":      now.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken 为用户签发刷新令牌，嵌入当前的刷新计数。
func (s *TokenService) IssueRefreshToken(ctx context.Context, userID uint) (string, error) {
	count, err := s.stateRepo.TokenCount(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to read refresh token count")
		return "", ErrStoreUnavailable
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":     userID,
		"token_count": count,
		"exp":         now.Add(s.refreshExpiry).Unix(),
		"iat":         now.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// VerifyRefresh 校验刷新令牌并返回其所属用户。
// 令牌里的计数必须与 Redis 中当前计数一致，否则视为已吊销。
func (s *TokenService) VerifyRefresh(ctx context.Context, tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidRefreshToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidRefreshToken
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, ErrInvalidRefreshToken
	}
	countFloat, ok := claims["token_count"].(float64)
	if !ok {
		return 0, ErrInvalidRefreshToken
	}
	userID := uint(userIDFloat)

	current, err := s.stateRepo.TokenCount(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to read refresh token count")
		return 0, ErrStoreUnavailable
	}
	if int64(countFloat) != current {
		logrus.WithField("user_id", userID).Warn("Refresh token rejected: counter mismatch (revoked)")
		return 0, ErrInvalidRefreshToken
	}
	return userID, nil
}

// InvalidateRefreshTokens 递增用户的刷新计数，吊销其全部存量刷新令牌。
func (s *TokenService) InvalidateRefreshTokens(ctx context.Context, userID uint) error {
	if _, err := s.stateRepo.IncrementTokenCount(ctx, userID); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to increment refresh token count")
		return ErrStoreUnavailable
	}
	return nil
}
