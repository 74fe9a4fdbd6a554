package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/social-api/internal/domain/entity"
	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
)

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create создает нового пользователя.
// Гонка двух регистраций на один email разрешается уникальным индексом.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email %s already registered", apperrors.ErrConflict, user.Email)
		}
		return err
	}
	return nil
}

// GetByID возвращает пользователя по ID
func (r *UserRepo) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail возвращает пользователя по email
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail проверяет, занят ли email
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateProfile обновляет профиль пользователя без изменения учетных данных
func (r *UserRepo) UpdateProfile(ctx context.Context, userID uint, updates map[string]interface{}) error {
	// Учетные данные через этот метод не меняются
	delete(updates, "password")
	delete(updates, "email")

	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdatePassword записывает уже посчитанный bcrypt-хеш.
// UpdateColumn обходит хук BeforeSave, двойного хеширования нет.
func (r *UserRepo) UpdatePassword(ctx context.Context, email, passwordHash string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			return err
		}
		return tx.Model(&entity.User{}).
			Where("id = ?", user.ID).
			UpdateColumns(map[string]interface{}{
				"password":   passwordHash,
				"updated_at": time.Now(),
			}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		log.Printf("[UserRepo.UpdatePassword] Ошибка при обновлении пароля для email=%s: %v", email, err)
		return nil, err
	}

	log.Printf("[UserRepo.UpdatePassword] Пароль обновлён для пользователя ID=%d", user.ID)
	user.Password = passwordHash
	return &user, nil
}
