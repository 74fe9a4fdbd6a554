package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/social-api/internal/domain/entity"
	"github.com/yourusername/social-api/internal/domain/repository"
	"github.com/yourusername/social-api/internal/metrics"
	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
	"github.com/yourusername/social-api/pkg/auth"
)

const (
	attemptsKeyPrefix  = "otp:attempts:"
	usedTokenKeyPrefix = "staged:used:"
)

// TokenInvalidator отзывает ранее выданные access-токены пользователя
type TokenInvalidator interface {
	InvalidateTokensForUser(ctx context.Context, userID uint) error
}

// CredentialFlowConfig - настройки потока
type CredentialFlowConfig struct {
	// SingleUseTokens: подтвержденный токен принимается на завершении только один раз
	SingleUseTokens bool
	// MaxAttempts - лимит проверок кода на subject в окне AttemptWindow (0 - без лимита)
	MaxAttempts   int
	AttemptWindow time.Duration
}

// RegistrationInput - данные завершения регистрации
type RegistrationInput struct {
	VerifiedToken string
	FirstName     string
	MiddleName    string
	LastName      string
	Password      string
}

// CredentialFlowService реализует трехшаговые потоки регистрации и сброса пароля:
// запрос кода -> проверка кода -> завершение. Состояние между шагами
// переносит подписанный промежуточный токен.
type CredentialFlowService struct {
	userRepo    repository.UserRepository
	otp         *OTPService
	email       EmailService
	tokens      *auth.StagedTokenService
	invalidator TokenInvalidator
	cache       repository.CacheRepository
	cfg         CredentialFlowConfig
}

// NewCredentialFlowService создает сервис. cache может быть nil: тогда счетчик попыток
// и одноразовость токенов отключены.
func NewCredentialFlowService(
	userRepo repository.UserRepository,
	otp *OTPService,
	email EmailService,
	tokens *auth.StagedTokenService,
	invalidator TokenInvalidator,
	cache repository.CacheRepository,
	cfg CredentialFlowConfig,
) (*CredentialFlowService, error) {
	if userRepo == nil || otp == nil || email == nil || tokens == nil {
		return nil, fmt.Errorf("user repository, otp service, email service and staged token service are required")
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = 15 * time.Minute
	}
	return &CredentialFlowService{
		userRepo:    userRepo,
		otp:         otp,
		email:       email,
		tokens:      tokens,
		invalidator: invalidator,
		cache:       cache,
		cfg:         cfg,
	}, nil
}

// NormalizeEmail приводит email к виду, в котором он хранится и служит subject кода
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RequestRegistration отправляет код на свободный email и возвращает неподтвержденный токен
func (s *CredentialFlowService) RequestRegistration(ctx context.Context, email string) (string, error) {
	return s.request(ctx, email, auth.PurposeRegistration)
}

// VerifyRegistration проверяет код и возвращает подтвержденный токен
func (s *CredentialFlowService) VerifyRegistration(ctx context.Context, token, code string) (string, error) {
	return s.verify(ctx, token, code, auth.PurposeRegistration)
}

// CompleteRegistration создает учетную запись по подтвержденному токену
func (s *CredentialFlowService) CompleteRegistration(ctx context.Context, input RegistrationInput) (user *entity.User, err error) {
	defer func() {
		metrics.CredentialFlowCompletionsTotal.WithLabelValues(string(auth.PurposeRegistration), metrics.Result(err)).Inc()
	}()

	claims, err := s.verifiedClaims(input.VerifiedToken, auth.PurposeRegistration)
	if err != nil {
		return nil, err
	}

	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" || lastName == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: first name, last name and password are required", apperrors.ErrValidation)
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if exists {
		return nil, ErrDuplicateSubject
	}

	release, err := s.claimToken(ctx, claims)
	if err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(input.Password)
	if err != nil {
		release()
		return nil, err
	}

	user = &entity.User{
		FirstName:  firstName,
		MiddleName: strings.TrimSpace(input.MiddleName),
		LastName:   lastName,
		Email:      claims.Email,
		Password:   passwordHash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		release()
		if errors.Is(err, apperrors.ErrConflict) {
			// параллельная регистрация на тот же email успела раньше
			return nil, ErrDuplicateSubject
		}
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	log.Printf("[CredentialFlow] Зарегистрирован пользователь ID=%d", user.ID)
	return user, nil
}

// RequestPasswordReset отправляет код на существующий email и возвращает неподтвержденный токен
func (s *CredentialFlowService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	return s.request(ctx, email, auth.PurposePasswordReset)
}

// VerifyPasswordReset проверяет код и возвращает подтвержденный токен
func (s *CredentialFlowService) VerifyPasswordReset(ctx context.Context, token, code string) (string, error) {
	return s.verify(ctx, token, code, auth.PurposePasswordReset)
}

// ResetPassword меняет пароль по подтвержденному токену и отзывает выданные access-токены
func (s *CredentialFlowService) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer func() {
		metrics.CredentialFlowCompletionsTotal.WithLabelValues(string(auth.PurposePasswordReset), metrics.Result(err)).Inc()
	}()

	claims, err := s.verifiedClaims(token, auth.PurposePasswordReset)
	if err != nil {
		return err
	}
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", apperrors.ErrValidation)
	}

	release, err := s.claimToken(ctx, claims)
	if err != nil {
		return err
	}

	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		release()
		return err
	}

	user, err := s.userRepo.UpdatePassword(ctx, claims.Email, passwordHash)
	if err != nil {
		release()
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrSubjectNotFound
		}
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if s.invalidator != nil {
		if err := s.invalidator.InvalidateTokensForUser(ctx, user.ID); err != nil {
			log.Printf("[CredentialFlow] Не удалось отозвать токены пользователя ID=%d: %v", user.ID, err)
		}
	}

	log.Printf("[CredentialFlow] Пароль сброшен для пользователя ID=%d", user.ID)
	return nil
}

func (s *CredentialFlowService) request(ctx context.Context, email string, purpose auth.StagedPurpose) (token string, err error) {
	defer func() {
		metrics.OTPIssuedTotal.WithLabelValues(string(purpose), metrics.Result(err)).Inc()
	}()

	email = NormalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	switch {
	case purpose == auth.PurposeRegistration && exists:
		return "", ErrDuplicateSubject
	case purpose == auth.PurposePasswordReset && !exists:
		return "", ErrSubjectNotFound
	}

	code, err := s.otp.Issue(ctx, email)
	if err != nil {
		return "", err
	}

	err = s.email.SendOneTimeCode(ctx, OneTimeCodeEmail{
		To:             email,
		Code:           code,
		Purpose:        string(purpose),
		ExpiresIn:      s.otp.TTL(),
		IdempotencyKey: fmt.Sprintf("otp:%s:%s", purpose, uuid.NewString()),
	})
	if err != nil {
		log.Printf("[CredentialFlow] Ошибка отправки кода (%s): %v", purpose, err)
		return "", fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}

	token, err = s.tokens.Issue(email, purpose, false)
	if err != nil {
		return "", fmt.Errorf("failed to sign staged token: %w", err)
	}
	return token, nil
}

func (s *CredentialFlowService) verify(ctx context.Context, token, code string, purpose auth.StagedPurpose) (verifiedToken string, err error) {
	defer func() {
		metrics.OTPVerificationsTotal.WithLabelValues(string(purpose), metrics.Result(err)).Inc()
	}()

	claims, err := s.tokens.Parse(token, purpose)
	if err != nil {
		return "", ErrTokenExpiredOrInvalid
	}

	if err := s.registerAttempt(ctx, purpose, claims.ID); err != nil {
		return "", err
	}

	ok, err := s.otp.Verify(ctx, claims.Email, strings.TrimSpace(code))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInvalidOrExpiredCode
	}
	s.resetAttempts(ctx, purpose, claims.ID)

	verifiedToken, err = s.tokens.Issue(claims.Email, purpose, true)
	if err != nil {
		return "", fmt.Errorf("failed to sign staged token: %w", err)
	}
	return verifiedToken, nil
}

// verifiedClaims пропускает только действительный токен нужного потока с otp_verified=true
func (s *CredentialFlowService) verifiedClaims(token string, purpose auth.StagedPurpose) (*auth.StagedClaims, error) {
	claims, err := s.tokens.Parse(token, purpose)
	if err != nil {
		return nil, ErrVerificationRequired
	}
	if !claims.OTPVerified {
		return nil, ErrVerificationRequired
	}
	return claims, nil
}

// claimToken помечает jti подтвержденного токена использованным.
// Возвращает функцию, снимающую метку, если завершение не удалось.
func (s *CredentialFlowService) claimToken(ctx context.Context, claims *auth.StagedClaims) (func(), error) {
	noop := func() {}
	if !s.cfg.SingleUseTokens || s.cache == nil {
		return noop, nil
	}

	key := usedTokenKeyPrefix + claims.ID
	ttl := s.tokens.RemainingLifetime(claims)
	if ttl <= 0 {
		return noop, ErrVerificationRequired
	}

	claimed, err := s.cache.SetNX(ctx, key, claims.Email, ttl)
	if err != nil {
		return noop, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if !claimed {
		return noop, ErrVerificationRequired
	}

	return func() {
		if err := s.cache.Delete(context.Background(), key); err != nil {
			log.Printf("[CredentialFlow] Не удалось снять метку использования токена: %v", err)
		}
	}, nil
}

// registerAttempt считает проверки кода на промежуточный токен (jti), а не на email:
// чужие неверные попытки не блокируют владельцу адреса его собственный токен.
// При недоступности Redis лимит не применяется.
func (s *CredentialFlowService) registerAttempt(ctx context.Context, purpose auth.StagedPurpose, tokenID string) error {
	if s.cfg.MaxAttempts <= 0 || s.cache == nil {
		return nil
	}

	key := attemptsKey(purpose, tokenID)
	count, err := s.cache.Increment(ctx, key)
	if err != nil {
		log.Printf("[CredentialFlow] Счетчик попыток недоступен: %v", err)
		return nil
	}
	if count == 1 {
		if err := s.cache.Expire(ctx, key, s.cfg.AttemptWindow); err != nil {
			log.Printf("[CredentialFlow] Не удалось установить TTL счетчика попыток: %v", err)
		}
	}
	if count > int64(s.cfg.MaxAttempts) {
		return ErrTooManyAttempts
	}
	return nil
}

func (s *CredentialFlowService) resetAttempts(ctx context.Context, purpose auth.StagedPurpose, tokenID string) {
	if s.cfg.MaxAttempts <= 0 || s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, attemptsKey(purpose, tokenID)); err != nil {
		log.Printf("[CredentialFlow] Не удалось сбросить счетчик попыток: %v", err)
	}
}

func attemptsKey(purpose auth.StagedPurpose, tokenID string) string {
	return attemptsKeyPrefix + string(purpose) + ":" + tokenID
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), entity.PasswordHashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password is too long", apperrors.ErrValidation)
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
