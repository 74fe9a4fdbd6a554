package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"time"

	"github.com/yourusername/social-api/internal/domain/entity"
	"github.com/yourusername/social-api/internal/domain/repository"
	"github.com/yourusername/social-api/internal/metrics"
	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
)

const (
	otpCodeMin   = 100000
	otpCodeRange = 900000 // [100000, 999999]
	otpCodeLen   = 6
)

// OTPService выпускает и проверяет одноразовые коды.
// Код одноразовый: успешная проверка и проверка просроченного кода удаляют запись.
type OTPService struct {
	repo               repository.OneTimeCodeRepository
	ttl                time.Duration
	pepper             string
	invalidatePrevious bool
	now                func() time.Time
	random             io.Reader
}

// NewOTPService создает сервис одноразовых кодов. now == nil означает time.Now.
func NewOTPService(
	repo repository.OneTimeCodeRepository,
	ttl time.Duration,
	pepper string,
	invalidatePrevious bool,
	now func() time.Time,
) (*OTPService, error) {
	if repo == nil {
		return nil, fmt.Errorf("one-time code repository is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &OTPService{
		repo:               repo,
		ttl:                ttl,
		pepper:             pepper,
		invalidatePrevious: invalidatePrevious,
		now:                now,
		random:             rand.Reader,
	}, nil
}

// TTL возвращает срок действия кода
func (s *OTPService) TTL() time.Duration {
	return s.ttl
}

// GenerateCode возвращает равномерно распределенный код из [100000, 999999]
func (s *OTPService) GenerateCode() (string, error) {
	n, err := rand.Int(s.random, big.NewInt(otpCodeRange))
	if err != nil {
		return "", fmt.Errorf("failed to generate one-time code: %w", err)
	}
	return fmt.Sprintf("%06d", otpCodeMin+n.Int64()), nil
}

// Issue создает и сохраняет новый код для subject, возвращает код в открытом виде
func (s *OTPService) Issue(ctx context.Context, subject string) (string, error) {
	code, err := s.GenerateCode()
	if err != nil {
		return "", err
	}

	if s.invalidatePrevious {
		if err := s.repo.DeleteBySubject(ctx, subject); err != nil {
			return "", fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
	}

	now := s.now()
	record := &entity.OneTimeCode{
		Subject:   subject,
		CodeHash:  s.hashCode(subject, code),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.Put(ctx, record); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return code, nil
}

// Verify возвращает true только если код существует, не истек и именно этот вызов его погасил
func (s *OTPService) Verify(ctx context.Context, subject, code string) (bool, error) {
	if !isOTPFormat(code) {
		return false, nil
	}

	record, err := s.repo.FindActive(ctx, subject, s.hashCode(subject, code))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if record.IsExpired(s.now()) {
		if _, err := s.repo.Consume(ctx, record); err != nil {
			log.Printf("[OTPService] Не удалось удалить просроченный код: %v", err)
		}
		return false, nil
	}

	consumed, err := s.repo.Consume(ctx, record)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	// false: конкурентная проверка того же кода успела раньше
	return consumed, nil
}

// SweepExpired удаляет просроченные коды из хранилища
func (s *OTPService) SweepExpired(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		metrics.OTPExpiredSweptTotal.Add(float64(removed))
	}
	return removed, nil
}

// RunSweeper периодически удаляет просроченные коды, пока не отменен ctx
func (s *OTPService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[OTPService] Очистка просроченных кодов каждые %v", interval)
	for {
		select {
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, interval)
			removed, err := s.SweepExpired(sweepCtx)
			cancel()
			if err != nil {
				log.Printf("[OTPService] Ошибка очистки просроченных кодов: %v", err)
			} else if removed > 0 {
				log.Printf("[OTPService] Удалено просроченных кодов: %d", removed)
			}
		case <-ctx.Done():
			log.Printf("[OTPService] Очистка остановлена")
			return
		}
	}
}

func (s *OTPService) hashCode(subject, code string) string {
	sum := sha256.Sum256([]byte(s.pepper + ":" + subject + ":" + code))
	return hex.EncodeToString(sum[:])
}

func isOTPFormat(code string) bool {
	if len(code) != otpCodeLen {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
