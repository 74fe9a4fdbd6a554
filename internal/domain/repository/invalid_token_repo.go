package repository

import (
	"context"
	"time"

	"github.com/yourusername/social-api/internal/domain/entity"
)

// InvalidTokenRepository хранит моменты инвалидации access-токенов пользователей
type InvalidTokenRepository interface {
	// AddInvalidToken добавляет или обновляет запись об инвалидации
	AddInvalidToken(ctx context.Context, userID uint, invalidationTime time.Time) error

	// GetAllInvalidTokens возвращает все записи (прогрев кеша JWTService)
	GetAllInvalidTokens(ctx context.Context) ([]entity.InvalidToken, error)

	// CleanupOldInvalidTokens удаляет записи старше срока жизни access-токена
	CleanupOldInvalidTokens(ctx context.Context, cutoffTime time.Time) error
}
