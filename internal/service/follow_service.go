package service

import (
	"context"
	"fmt"
	"log"

	"github.com/yourusername/social-api/internal/domain/entity"
	"github.com/yourusername/social-api/internal/domain/repository"
	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
	"github.com/yourusername/social-api/internal/websocket"
)

// FollowCounts - счетчики подписок после изменения
type FollowCounts struct {
	Following      bool  `json:"following"`
	FollowerCount  int64 `json:"followerCount"`
	FollowingCount int64 `json:"followingCount"`
}

// FollowService управляет графом подписок
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	notifier   EventNotifier
}

// NewFollowService создает сервис подписок; notifier может быть nil
func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository, notifier EventNotifier) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		notifier:   notifierOrNoop(notifier),
	}
}

// Toggle подписывает actor на target или отписывает, если подписка уже есть.
// Счетчики в ответе: подписчики target и подписки actor.
func (s *FollowService) Toggle(ctx context.Context, actorID, targetID uint) (*FollowCounts, error) {
	if actorID == targetID {
		return nil, fmt.Errorf("%w: cannot follow yourself", apperrors.ErrValidation)
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	exists, err := s.followRepo.Exists(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	following := !exists
	if exists {
		if _, err := s.followRepo.Delete(ctx, actorID, targetID); err != nil {
			return nil, err
		}
	} else {
		if err := s.followRepo.Create(ctx, actorID, targetID); err != nil {
			return nil, err
		}
	}

	counts, err := s.counts(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	counts.Following = following

	if following {
		s.notifier.NotifyUser(targetID, websocket.FOLLOW_NEW, map[string]interface{}{
			"followerId":    actorID,
			"followerCount": counts.FollowerCount,
		})
	}
	log.Printf("[FollowService] Пользователь %d: подписка на %d = %t", actorID, targetID, following)
	return counts, nil
}

// RemoveFollower удаляет follower из подписчиков owner
func (s *FollowService) RemoveFollower(ctx context.Context, ownerID, followerID uint) (*FollowCounts, error) {
	removed, err := s.followRepo.Delete(ctx, followerID, ownerID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, fmt.Errorf("%w: user %d does not follow you", apperrors.ErrNotFound, followerID)
	}
	return s.counts(ctx, followerID, ownerID)
}

// Followers возвращает подписчиков пользователя
func (s *FollowService) Followers(ctx context.Context, userID uint) ([]entity.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.ListFollowers(ctx, userID)
}

// Following возвращает пользователей, на которых подписан userID
func (s *FollowService) Following(ctx context.Context, userID uint) ([]entity.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.ListFollowing(ctx, userID)
}

func (s *FollowService) counts(ctx context.Context, followerID, followeeID uint) (*FollowCounts, error) {
	followers, err := s.followRepo.CountFollowers(ctx, followeeID)
	if err != nil {
		return nil, err
	}
	following, err := s.followRepo.CountFollowing(ctx, followerID)
	if err != nil {
		return nil, err
	}
	return &FollowCounts{FollowerCount: followers, FollowingCount: following}, nil
}
