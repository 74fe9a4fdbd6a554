package service

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"

	"github.com/yourusername/social-api/internal/domain/entity"
	"github.com/yourusername/social-api/internal/domain/repository"
	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
)

// UpdateUserInput - редактируемые поля профиля. nil означает "не менять".
// Email, пароль и имена здесь не меняются.
type UpdateUserInput struct {
	PhoneNumber    *string `json:"phoneNumber" binding:"omitempty,max=30"`
	FromCity       *string `json:"fromCity" binding:"omitempty,max=100"`
	CurrentCity    *string `json:"currentCity" binding:"omitempty,max=100"`
	FromState      *string `json:"fromState" binding:"omitempty,max=100"`
	CurrentState   *string `json:"currentState" binding:"omitempty,max=100"`
	FromCountry    *string `json:"fromCountry" binding:"omitempty,max=100"`
	CurrentCountry *string `json:"currentCountry" binding:"omitempty,max=100"`
	Profession     *string `json:"profession" binding:"omitempty,max=100"`
	Bio            *string `json:"bio" binding:"omitempty,max=1000"`
	Hobbies        *string `json:"hobbies" binding:"omitempty,max=500"`
}

func (in UpdateUserInput) updates() map[string]interface{} {
	updates := make(map[string]interface{})
	fields := map[string]*string{
		"phone_number":    in.PhoneNumber,
		"from_city":       in.FromCity,
		"current_city":    in.CurrentCity,
		"from_state":      in.FromState,
		"current_state":   in.CurrentState,
		"from_country":    in.FromCountry,
		"current_country": in.CurrentCountry,
		"profession":      in.Profession,
		"bio":             in.Bio,
		"hobbies":         in.Hobbies,
	}
	for column, value := range fields {
		if value != nil {
			updates[column] = *value
		}
	}
	return updates
}

// UserService предоставляет методы для работы с профилями
type UserService struct {
	userRepo repository.UserRepository
	uploads  *UploadService
}

// NewUserService создает новый сервис пользователей
func NewUserService(userRepo repository.UserRepository, uploads *UploadService) *UserService {
	return &UserService{userRepo: userRepo, uploads: uploads}
}

// GetUser возвращает профиль без пароля
func (s *UserService) GetUser(ctx context.Context, userID uint) (*entity.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateDetails обновляет профиль; менять можно только свой
func (s *UserService) UpdateDetails(ctx context.Context, actorID, userID uint, input UpdateUserInput) (*entity.User, error) {
	if actorID != userID {
		return nil, fmt.Errorf("%w: cannot update another user's profile", apperrors.ErrForbidden)
	}

	updates := input.updates()
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", apperrors.ErrValidation)
	}

	if err := s.userRepo.UpdateProfile(ctx, userID, updates); err != nil {
		log.Printf("[UserService] Ошибка обновления профиля пользователя ID=%d: %v", userID, err)
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// SetProfilePicture сохраняет загруженный файл и привязывает его к профилю
func (s *UserService) SetProfilePicture(ctx context.Context, userID uint, file *multipart.FileHeader) (*entity.User, error) {
	return s.setImage(ctx, userID, "profile_picture", file)
}

// SetCoverPhoto сохраняет загруженный файл как обложку профиля
func (s *UserService) SetCoverPhoto(ctx context.Context, userID uint, file *multipart.FileHeader) (*entity.User, error) {
	return s.setImage(ctx, userID, "cover_photo", file)
}

func (s *UserService) setImage(ctx context.Context, userID uint, column string, file *multipart.FileHeader) (*entity.User, error) {
	if s.uploads == nil {
		return nil, fmt.Errorf("uploads are not configured")
	}
	path, err := s.uploads.SaveImage(userID, file)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateProfile(ctx, userID, map[string]interface{}{column: path}); err != nil {
		s.uploads.Remove(path)
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}
