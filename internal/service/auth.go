package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"collabboard/internal/domain"
	"collabboard/internal/repository"
)

// TokenPair 是一次成功认证返回的令牌对。
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthService 负责用户注册与登录。
type AuthService struct {
	userRepo repository.UserRepository
	tokens   *TokenService
}

// NewAuthService 创建 AuthService 实例。
func NewAuthService(userRepo repository.UserRepository, tokens *TokenService) *AuthService {
	if userRepo == nil || tokens == nil {
		panic("UserRepository and TokenService cannot be nil for AuthService")
	}
	return &AuthService{userRepo: userRepo, tokens: tokens}
}

// Register 处理用户注册。
func (s *AuthService) Register(ctx context.Context, username, password, email string) (*domain.User, error) {
	logCtx := logrus.WithFields(logrus.Fields{"username": username, "email": email})

	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidPayload)
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash password during registration")
		return nil, ErrInternalServer
	}

	user := &domain.User{
		Username: username,
		Password: hashedPassword,
		Email:    email,
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Warn("Registration failed: username or email already exists")
			return nil, ErrRegistrationFailed
		}
		logCtx.WithError(err).Error("Database error during user creation")
		return nil, ErrInternalServer
	}

	logCtx.WithField("user_id", user.ID).Info("User registered successfully")
	user.Password = "" // 清除密码哈希再返回
	return user, nil
}

// Login 处理用户登录，成功时返回访问令牌和刷新令牌。
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, *TokenPair, error) {
	logCtx := logrus.WithField("username", username)

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Login attempt failed: user not found")
		} else {
			logCtx.WithError(err).Warn("Login attempt failed: error finding user")
		}
		// 对客户端统一返回认证失败，不泄露用户是否存在
		return nil, nil, ErrAuthenticationFailed
	}
	if user == nil {
		logCtx.Warn("Login attempt failed: repo returned nil user without error")
		return nil, nil, ErrAuthenticationFailed
	}

	if !checkPassword(password, user.Password) {
		logCtx.Warn("Login attempt failed: invalid password")
		return nil, nil, ErrAuthenticationFailed
	}

	access, err := s.tokens.IssueAccessToken(user.ID, user.Username)
	if err != nil {
		logCtx.WithError(err).Error("Failed to issue access token during login")
		return nil, nil, ErrInternalServer
	}
	refresh, err := s.tokens.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to issue refresh token during login")
		return nil, nil, ErrInternalServer
	}

	logCtx.WithField("user_id", user.ID).Info("User logged in successfully")
	user.Password = ""
	return user, &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh 用有效的刷新令牌换取新的令牌对。
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := s.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to load user during token refresh")
		return nil, ErrInternalServer
	}

	access, err := s.tokens.IssueAccessToken(user.ID, user.Username)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to issue access token during refresh")
		return nil, ErrInternalServer
	}
	refresh, err := s.tokens.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to issue refresh token during refresh")
		return nil, ErrInternalServer
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout 吊销用户的全部刷新令牌。
func (s *AuthService) Logout(ctx context.Context, userID uint) error {
	if err := s.tokens.InvalidateRefreshTokens(ctx, userID); err != nil {
		return err
	}
	logrus.WithField("user_id", userID).Info("User logged out, refresh tokens revoked")
	return nil
}

// hashPassword 使用 bcrypt 对密码进行哈希处理
func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate hash from password: %w", err)
	}
	return string(bytes), nil
}

// checkPassword 验证提供的密码是否与存储的哈希匹配
func checkPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
