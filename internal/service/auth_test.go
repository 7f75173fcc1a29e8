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

func newAuthService(t *testing.T, userRepo *mocks.UserRepository, stateRepo *mocks.StateRepository) *service.AuthService {
	t.Helper()
	tokenService, err := service.NewTokenService(stateRepo, "test-secret", 1, 24)
	require.NoError(t, err)
	return service.NewAuthService(userRepo, tokenService)
}

func TestAuthService_Register_Success(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo, new(mocks.StateRepository))
	ctx := context.Background()
	username := "newbie"
	password := "StrongPass123"

	// Register 在 Save 返回后会清空 user.Password，匹配器不能事后
	// 再通过同一个指针断言，这里在 Run 里先把哈希抓出来
	var savedHash string
	mockUserRepo.On("Save", ctx, mock.MatchedBy(func(user *domain.User) bool {
		return user.Username == username
	})).
		Run(func(args mock.Arguments) {
			user := args.Get(1).(*domain.User)
			savedHash = user.Password
			user.ID = 5
		}).
		Return(nil).Once()

	registeredUser, err := authService.Register(ctx, username, password, "newbie@example.com")

	require.NoError(t, err)
	require.NotNil(t, registeredUser)
	assert.Equal(t, uint(5), registeredUser.ID)
	assert.Empty(t, registeredUser.Password, "返回的用户不应携带密码哈希")
	// 落库的必须是明文密码的 bcrypt 哈希
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(savedHash), []byte(password)))
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_DuplicateEntry(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo, new(mocks.StateRepository))
	ctx := context.Background()

	mockUserRepo.On("Save", ctx, mock.AnythingOfType("*domain.User")).
		Return(repository.ErrDuplicateEntry).Once()

	_, err := authService.Register(ctx, "existingUser", "password", "email@test.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRegistrationFailed))
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_Success(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	mockStateRepo := new(mocks.StateRepository)
	authService := newAuthService(t, mockUserRepo, mockStateRepo)
	ctx := context.Background()
	password := "password123"
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	userInDb := &domain.User{ID: 1, Username: "testuser", Password: string(hashedPassword)}

	mockUserRepo.On("FindByUsername", ctx, "testuser").Return(userInDb, nil).Once()
	mockStateRepo.On("TokenCount", ctx, uint(1)).Return(int64(0), nil).Once()

	user, tokens, err := authService.Login(ctx, "testuser", password)

	require.NoError(t, err)
	require.NotNil(t, tokens)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Empty(t, user.Password)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo, new(mocks.StateRepository))
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "nonexistent").
		Return(nil, repository.ErrUserNotFound).Once()

	_, tokens, err := authService.Login(ctx, "nonexistent", "password")

	require.Error(t, err)
	assert.Nil(t, tokens)
	// 对客户端统一返回认证失败，不暴露用户是否存在
	assert.True(t, errors.Is(err, service.ErrAuthenticationFailed))
}

func TestAuthService_Login_IncorrectPassword(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo, new(mocks.StateRepository))
	ctx := context.Background()
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.DefaultCost)
	userInDb := &domain.User{ID: 1, Username: "testuser", Password: string(hashedPassword)}

	mockUserRepo.On("FindByUsername", ctx, "testuser").Return(userInDb, nil).Once()

	_, _, err := authService.Login(ctx, "testuser", "wrongpassword")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrAuthenticationFailed))
}

func TestAuthService_Refresh_RotatesTokens(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	mockStateRepo := new(mocks.StateRepository)
	authService := newAuthService(t, mockUserRepo, mockStateRepo)
	tokenService, err := service.NewTokenService(mockStateRepo, "test-secret", 1, 24)
	require.NoError(t, err)
	ctx := context.Background()

	mockStateRepo.On("TokenCount", ctx, uint(1)).Return(int64(0), nil)
	refresh, err := tokenService.IssueRefreshToken(ctx, 1)
	require.NoError(t, err)

	mockUserRepo.On("FindByID", ctx, uint(1)).
		Return(&domain.User{ID: 1, Username: "testuser"}, nil).Once()

	tokens, err := authService.Refresh(ctx, refresh)

	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
}
