package repository

import (
	"context"

	"github.com/yourusername/social-api/internal/domain/entity"
)

// FollowRepository определяет методы для графа подписок
type FollowRepository interface {
	Exists(ctx context.Context, followerID, followeeID uint) (bool, error)
	Create(ctx context.Context, followerID, followeeID uint) error
	// Delete возвращает false, если подписки не было
	Delete(ctx context.Context, followerID, followeeID uint) (bool, error)
	CountFollowers(ctx context.Context, userID uint) (int64, error)
	CountFollowing(ctx context.Context, userID uint) (int64, error)
	ListFollowers(ctx context.Context, userID uint) ([]entity.User, error)
	ListFollowing(ctx context.Context, userID uint) ([]entity.User, error)
}
