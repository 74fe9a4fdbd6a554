package entity

import (
	"time"
)

// InvalidToken фиксирует момент, до которого все access-токены пользователя недействительны.
// Запись появляется после сброса пароля.
type InvalidToken struct {
	UserID           uint      `gorm:"primaryKey" json:"user_id"`
	InvalidationTime time.Time `gorm:"not null" json:"invalidation_time"`
}

// TableName задает имя таблицы для GORM
func (InvalidToken) TableName() string {
	return "invalid_tokens"
}

// IsTokenInvalidAt проверяет, был ли токен выпущен до инвалидации.
// iat в JWT хранится с точностью до секунды, поэтому сравнение идет по секундам.
func (it *InvalidToken) IsTokenInvalidAt(issuedAt time.Time) bool {
	return issuedAt.Truncate(time.Second).Before(it.InvalidationTime.Truncate(time.Second))
}
