package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/yourusername/social-api/internal/domain/entity"
	"github.com/yourusername/social-api/internal/domain/repository"
	"github.com/yourusername/social-api/internal/metrics"
	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
)

// AccessTokenIssuer выпускает access-токены
type AccessTokenIssuer interface {
	GenerateToken(user *entity.User) (string, error)
}

// LoginResult - ответ на успешный вход
type LoginResult struct {
	Token  string `json:"token"`
	UserID uint   `json:"userId"`
}

// AuthService отвечает за вход по паролю
type AuthService struct {
	userRepo repository.UserRepository
	tokens   AccessTokenIssuer
}

// NewAuthService создает новый сервис аутентификации
func NewAuthService(userRepo repository.UserRepository, tokens AccessTokenIssuer) (*AuthService, error) {
	if userRepo == nil || tokens == nil {
		return nil, fmt.Errorf("user repository and token issuer are required for AuthService")
	}
	return &AuthService{userRepo: userRepo, tokens: tokens}, nil
}

// Login проверяет пароль и выпускает access-токен.
// Неизвестный email и неверный пароль неразличимы для клиента.
func (s *AuthService) Login(ctx context.Context, email, password string) (result *LoginResult, err error) {
	defer func() {
		metrics.LoginsTotal.WithLabelValues(metrics.Result(err)).Inc()
	}()

	user, err := s.userRepo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if !user.CheckPassword(password) {
		log.Printf("[AuthService] Неверный пароль для пользователя ID=%d", user.ID)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &LoginResult{Token: token, UserID: user.ID}, nil
}
