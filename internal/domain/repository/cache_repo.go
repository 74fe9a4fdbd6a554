package repository

import (
	"context"
	"time"
)

// CacheRepository определяет методы для работы с кешем (счетчики попыток, одноразовые метки)
type CacheRepository interface {
	Delete(ctx context.Context, key string) error
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	// SetNX возвращает true, если ключ был установлен, false - если уже существовал
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}
