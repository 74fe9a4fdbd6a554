package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/social-api/internal/domain/entity"
	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
)

// OneTimeCodeRepo хранит одноразовые коды в таблице one_time_codes
type OneTimeCodeRepo struct {
	db *gorm.DB
}

func NewOneTimeCodeRepo(db *gorm.DB) *OneTimeCodeRepo {
	return &OneTimeCodeRepo{db: db}
}

func (r *OneTimeCodeRepo) Put(ctx context.Context, code *entity.OneTimeCode) error {
	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		return fmt.Errorf("failed to store one-time code: %w", err)
	}
	return nil
}

func (r *OneTimeCodeRepo) FindActive(ctx context.Context, subject, codeHash string) (*entity.OneTimeCode, error) {
	var code entity.OneTimeCode
	err := r.db.WithContext(ctx).
		Where("subject = ? AND code_hash = ?", subject, codeHash).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find one-time code: %w", err)
	}
	return &code, nil
}

// Consume удаляет запись по id. Из нескольких конкурентных вызовов
// RowsAffected == 1 увидит только один.
func (r *OneTimeCodeRepo) Consume(ctx context.Context, code *entity.OneTimeCode) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", code.ID).Delete(&entity.OneTimeCode{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to consume one-time code: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *OneTimeCodeRepo) DeleteBySubject(ctx context.Context, subject string) error {
	return r.db.WithContext(ctx).Where("subject = ?", subject).Delete(&entity.OneTimeCode{}).Error
}

func (r *OneTimeCodeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&entity.OneTimeCode{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired one-time codes: %w", result.Error)
	}
	return result.RowsAffected, nil
}
