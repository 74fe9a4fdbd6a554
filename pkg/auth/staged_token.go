package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// StagedPurpose разделяет токены регистрации и сброса пароля:
// токен одного потока не принимается другим.
type StagedPurpose string

const (
	PurposeRegistration  StagedPurpose = "registration"
	PurposePasswordReset StagedPurpose = "password_reset"
)

var (
	ErrStagedTokenInvalid = errors.New("staged token is invalid")
	ErrStagedTokenExpired = errors.New("staged token is expired")
)

// StagedClaims - утверждения промежуточного токена потока request -> verify -> complete
type StagedClaims struct {
	Email       string        `json:"email"`
	OTPVerified bool          `json:"otp_verified"`
	Purpose     StagedPurpose `json:"purpose"`
	jwt.RegisteredClaims
}

// StagedTokenService подписывает и проверяет промежуточные токены (HS256).
// Ключ отличается от ключа access-токенов.
type StagedTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewStagedTokenService(secret string, ttl time.Duration, now func() time.Time) (*StagedTokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("staged token secret is required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &StagedTokenService{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// Issue выпускает токен для email с указанным назначением и статусом проверки кода
func (s *StagedTokenService) Issue(email string, purpose StagedPurpose, verified bool) (string, error) {
	now := s.now()
	claims := &StagedClaims{
		Email:       email,
		OTPVerified: verified,
		Purpose:     purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse проверяет подпись, срок действия и назначение токена.
// Срок проверяется по собственным часам сервиса, а не по jwt.TimeFunc.
func (s *StagedTokenService) Parse(tokenString string, purpose StagedPurpose) (*StagedClaims, error) {
	claims := &StagedClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrStagedTokenInvalid
	}

	if !claims.VerifyExpiresAt(s.now(), true) {
		return nil, ErrStagedTokenExpired
	}
	if claims.Purpose != purpose || claims.Email == "" || claims.ID == "" {
		return nil, ErrStagedTokenInvalid
	}
	return claims, nil
}

// RemainingLifetime возвращает, сколько еще действует токен
func (s *StagedTokenService) RemainingLifetime(claims *StagedClaims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Time.Sub(s.now())
}
