package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/social-api/internal/domain/entity"
	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
)

// ============================================================================
// Моки для тестирования AuthService и UserService
// ============================================================================

// MockUserRepository реализует repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, userID uint, updates map[string]interface{}) error {
	args := m.Called(ctx, userID, updates)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) (*entity.User, error) {
	args := m.Called(ctx, email, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

// MockTokenIssuer реализует AccessTokenIssuer
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) GenerateToken(user *entity.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

func hashedUser(t *testing.T, id uint, email, password string) *entity.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &entity.User{ID: id, Email: email, Password: string(hash), FirstName: "Alice", LastName: "Smith"}
}

// ============================================================================
// Тесты для AuthService
// ============================================================================

func TestAuthService_Login_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockTokens := new(MockTokenIssuer)
	user := hashedUser(t, 7, "alice@example.com", "secret123")

	mockUserRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(user, nil)
	mockTokens.On("GenerateToken", user).Return("access-token", nil)

	authService, err := NewAuthService(mockUserRepo, mockTokens)
	require.NoError(t, err)

	// Act
	result, err := authService.Login(context.Background(), " Alice@Example.com", "secret123")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "access-token", result.Token)
	assert.Equal(t, uint(7), result.UserID)
	mockUserRepo.AssertExpectations(t)
	mockTokens.AssertExpectations(t)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockTokens := new(MockTokenIssuer)
	user := hashedUser(t, 7, "alice@example.com", "secret123")

	mockUserRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(user, nil)

	authService, err := NewAuthService(mockUserRepo, mockTokens)
	require.NoError(t, err)

	result, err := authService.Login(context.Background(), "alice@example.com", "wrong")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, result)
	mockTokens.AssertNotCalled(t, "GenerateToken", mock.Anything)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, apperrors.ErrNotFound)

	authService, err := NewAuthService(mockUserRepo, new(MockTokenIssuer))
	require.NoError(t, err)

	_, err = authService.Login(context.Background(), "ghost@example.com", "secret123")

	assert.ErrorIs(t, err, ErrInvalidCredentials, "неизвестный email неотличим от неверного пароля")
}

func TestAuthService_Login_StorageError(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, errors.New("db down"))

	authService, err := NewAuthService(mockUserRepo, new(MockTokenIssuer))
	require.NoError(t, err)

	_, err = authService.Login(context.Background(), "alice@example.com", "secret123")

	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestNewAuthService_RequiresDependencies(t *testing.T) {
	_, err := NewAuthService(nil, new(MockTokenIssuer))
	assert.Error(t, err)
}

// ============================================================================
// Тесты для UserService
// ============================================================================

func TestUserService_UpdateDetails_Success(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	bio := "Gopher"
	city := "Almaty"
	updated := &entity.User{ID: 3, Bio: bio, CurrentCity: city}

	mockUserRepo.On("UpdateProfile", mock.Anything, uint(3), map[string]interface{}{
		"bio":          bio,
		"current_city": city,
	}).Return(nil)
	mockUserRepo.On("GetByID", mock.Anything, uint(3)).Return(updated, nil)

	userService := NewUserService(mockUserRepo, nil)

	user, err := userService.UpdateDetails(context.Background(), 3, 3, UpdateUserInput{Bio: &bio, CurrentCity: &city})

	require.NoError(t, err)
	assert.Equal(t, bio, user.Bio)
	mockUserRepo.AssertExpectations(t)
}

func TestUserService_UpdateDetails_OtherUser(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	bio := "hacked"

	userService := NewUserService(mockUserRepo, nil)

	_, err := userService.UpdateDetails(context.Background(), 3, 4, UpdateUserInput{Bio: &bio})

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	mockUserRepo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserService_UpdateDetails_NoFields(t *testing.T) {
	userService := NewUserService(new(MockUserRepository), nil)

	_, err := userService.UpdateDetails(context.Background(), 3, 3, UpdateUserInput{})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUserService_GetUser_NotFound(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("GetByID", mock.Anything, uint(99)).Return(nil, apperrors.ErrNotFound)

	userService := NewUserService(mockUserRepo, nil)

	_, err := userService.GetUser(context.Background(), 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
