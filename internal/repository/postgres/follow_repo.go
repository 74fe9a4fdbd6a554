package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/social-api/internal/domain/entity"
)

// FollowRepo реализует repository.FollowRepository поверх таблицы follows
type FollowRepo struct {
	db *gorm.DB
}

func NewFollowRepo(db *gorm.DB) *FollowRepo {
	return &FollowRepo{db: db}
}

func (r *FollowRepo) Exists(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	return count > 0, err
}

func (r *FollowRepo) Create(ctx context.Context, followerID, followeeID uint) error {
	err := r.db.WithContext(ctx).Create(&entity.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
	if err != nil && isUniqueViolation(err) {
		// подписка уже существует
		return nil
	}
	return err
}

func (r *FollowRepo) Delete(ctx context.Context, followerID, followeeID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&entity.Follow{})
	return result.RowsAffected > 0, result.Error
}

func (r *FollowRepo) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Follow{}).Where("followee_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *FollowRepo) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Follow{}).Where("follower_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *FollowRepo) ListFollowers(ctx context.Context, userID uint) ([]entity.User, error) {
	return r.listUsers(ctx, "follows.follower_id", "follows.followee_id", userID)
}

func (r *FollowRepo) ListFollowing(ctx context.Context, userID uint) ([]entity.User, error) {
	return r.listUsers(ctx, "follows.followee_id", "follows.follower_id", userID)
}

func (r *FollowRepo) listUsers(ctx context.Context, joinColumn, filterColumn string, userID uint) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Joins("JOIN follows ON "+joinColumn+" = users.id").
		Where(filterColumn+" = ?", userID).
		Order("follows.created_at ASC").
		Find(&users).Error
	return users, err
}
