package postgres

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/social-api/internal/domain/entity"
)

// InvalidTokenRepo реализует repository.InvalidTokenRepository
type InvalidTokenRepo struct {
	db *gorm.DB
}

// NewInvalidTokenRepo создает новый репозиторий инвалидированных токенов
func NewInvalidTokenRepo(db *gorm.DB) *InvalidTokenRepo {
	return &InvalidTokenRepo{db: db}
}

// AddInvalidToken добавляет или обновляет запись (INSERT ... ON CONFLICT DO UPDATE)
func (r *InvalidTokenRepo) AddInvalidToken(ctx context.Context, userID uint, invalidationTime time.Time) error {
	record := entity.InvalidToken{UserID: userID, InvalidationTime: invalidationTime}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"invalidation_time"}),
	}).Create(&record).Error
	if err != nil {
		log.Printf("[InvalidTokenRepo] Ошибка при добавлении записи для пользователя ID=%d: %v", userID, err)
		return err
	}
	return nil
}

// GetAllInvalidTokens возвращает все записи об инвалидированных токенах
func (r *InvalidTokenRepo) GetAllInvalidTokens(ctx context.Context) ([]entity.InvalidToken, error) {
	var tokens []entity.InvalidToken
	if err := r.db.WithContext(ctx).Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// CleanupOldInvalidTokens удаляет записи, которые уже не могут отсечь ни один живой токен
func (r *InvalidTokenRepo) CleanupOldInvalidTokens(ctx context.Context, cutoffTime time.Time) error {
	result := r.db.WithContext(ctx).Where("invalidation_time < ?", cutoffTime).Delete(&entity.InvalidToken{})
	if result.Error != nil {
		log.Printf("[InvalidTokenRepo] Ошибка при очистке устаревших записей: %v", result.Error)
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("[InvalidTokenRepo] Удалено %d устаревших записей", result.RowsAffected)
	}
	return nil
}
