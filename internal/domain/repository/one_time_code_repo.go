package repository

import (
	"context"
	"time"

	"github.com/yourusername/social-api/internal/domain/entity"
)

// OneTimeCodeRepository хранит хеши одноразовых кодов.
// Реализации: postgres (таблица + фоновая очистка) и redis (TTL ключа).
type OneTimeCodeRepository interface {
	// Put сохраняет новый код без дедупликации
	Put(ctx context.Context, code *entity.OneTimeCode) error
	// FindActive ищет код по subject и хешу, срок действия не проверяет.
	// Возвращает apperrors.ErrNotFound, если записи нет.
	FindActive(ctx context.Context, subject, codeHash string) (*entity.OneTimeCode, error)
	// Consume удаляет запись. Возвращает true только тому вызову, который ее действительно удалил.
	Consume(ctx context.Context, code *entity.OneTimeCode) (bool, error)
	// DeleteBySubject удаляет все коды subject
	DeleteBySubject(ctx context.Context, subject string) error
	// DeleteExpired физически удаляет просроченные коды и возвращает их количество
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
