package entity

import "time"

// OneTimeCode хранит хеш одноразового кода, выданного на email (subject).
// Сам код в открытом виде нигде не сохраняется.
type OneTimeCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Subject   string    `gorm:"size:100;not null;index:idx_one_time_codes_lookup" json:"subject"`
	CodeHash  string    `gorm:"size:64;not null;index:idx_one_time_codes_lookup" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (OneTimeCode) TableName() string {
	return "one_time_codes"
}

// IsExpired: код действителен только пока now строго меньше ExpiresAt
func (c *OneTimeCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
