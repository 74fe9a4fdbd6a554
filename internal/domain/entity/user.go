package entity

import (
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// PasswordHashCost - фиксированная стоимость bcrypt для паролей пользователей
const PasswordHashCost = 10

// User представляет учетную запись пользователя социальной сети
type User struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	FirstName      string `gorm:"size:100;not null" json:"firstName"`
	MiddleName     string `gorm:"size:100;not null;default:''" json:"middleName"`
	LastName       string `gorm:"size:100;not null" json:"lastName"`
	Email          string `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Password       string `gorm:"size:100;not null" json:"-"`
	ProfilePicture string `gorm:"size:255;not null;default:''" json:"profilePicture"`
	CoverPhoto     string `gorm:"size:255;not null;default:''" json:"coverPhoto"`
	PhoneNumber    string `gorm:"size:30;not null;default:''" json:"phoneNumber"`
	FromCity       string `gorm:"size:100;not null;default:''" json:"fromCity"`
	CurrentCity    string `gorm:"size:100;not null;default:''" json:"currentCity"`
	FromState      string `gorm:"size:100;not null;default:''" json:"fromState"`
	CurrentState   string `gorm:"size:100;not null;default:''" json:"currentState"`
	FromCountry    string `gorm:"size:100;not null;default:''" json:"fromCountry"`
	CurrentCountry string `gorm:"size:100;not null;default:''" json:"currentCountry"`
	Profession     string `gorm:"size:100;not null;default:''" json:"profession"`
	Bio            string `gorm:"size:1000;not null;default:''" json:"bio"`
	Hobbies        string `gorm:"size:500;not null;default:''" json:"hobbies"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// FullName собирает имя пользователя для писем и выгрузок
func (u *User) FullName() string {
	parts := []string{u.FirstName, u.MiddleName, u.LastName}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// IsPasswordHash сообщает, является ли строка bcrypt-хешем
func IsPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") ||
		strings.HasPrefix(value, "$2b$") ||
		strings.HasPrefix(value, "$2y$")
}

// BeforeSave хеширует пароль перед сохранением, только если он не является bcrypt-хешем
func (u *User) BeforeSave(tx *gorm.DB) error {
	if len(u.Password) > 0 && !IsPasswordHash(u.Password) {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), PasswordHashCost)
		if err != nil {
			log.Printf("[User.BeforeSave] Ошибка при хешировании пароля для email=%s: %v", u.Email, err)
			return err
		}
		u.Password = string(hashedPassword)
	}
	return nil
}

// CheckPassword проверяет, соответствует ли переданный пароль хешу
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}
