package repository

import (
	"context"

	"github.com/yourusername/social-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с учетными записями
type UserRepository interface {
	// Create возвращает apperrors.ErrConflict, если email уже занят
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uint) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, userID uint, updates map[string]interface{}) error
	// UpdatePassword записывает готовый bcrypt-хеш; apperrors.ErrNotFound, если email не найден
	UpdatePassword(ctx context.Context, email, passwordHash string) (*entity.User, error)
}
