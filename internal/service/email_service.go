package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// OneTimeCodeEmail описывает письмо с одноразовым кодом
type OneTimeCodeEmail struct {
	To             string
	Code           string
	Purpose        string
	ExpiresIn      time.Duration
	IdempotencyKey string
}

// EmailService отправляет транзакционные письма.
// Ошибка означает, что письмо не было принято провайдером.
type EmailService interface {
	SendOneTimeCode(ctx context.Context, msg OneTimeCodeEmail) error
}

// NoopEmailService используется в разработке и тестовых окружениях.
// При LogCodes код пишется в лог, чтобы локально можно было пройти регистрацию
// и сброс пароля без почтового провайдера. В release режиме LogCodes выключен.
type NoopEmailService struct {
	LogCodes bool
}

func (s *NoopEmailService) SendOneTimeCode(ctx context.Context, msg OneTimeCodeEmail) error {
	if s.LogCodes {
		log.Printf("[EmailService] noop send one-time code purpose=%s to=%s code=%s", msg.Purpose, msg.To, msg.Code)
		return nil
	}
	log.Printf("[EmailService] noop send one-time code purpose=%s to=%s", msg.Purpose, msg.To)
	return nil
}

// ResendEmailService sends emails via Resend REST API.
type ResendEmailService struct {
	from   string
	client *resend.Client
}

func NewResendEmailService(apiKey, from string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func oneTimeCodeSubject(purpose string) string {
	if purpose == "password_reset" {
		return "Your password reset code"
	}
	return "Your registration code"
}

func formatExpiry(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

func (s *ResendEmailService) SendOneTimeCode(ctx context.Context, msg OneTimeCodeEmail) error {
	if msg.To == "" || msg.Code == "" {
		return fmt.Errorf("recipient and code are required")
	}

	expiry := formatExpiry(msg.ExpiresIn)
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: oneTimeCodeSubject(msg.Purpose),
		Text:    fmt.Sprintf("Your OTP code is %s. It will expire in %s.", msg.Code, expiry),
		Html:    fmt.Sprintf("<p>Your OTP code is <strong>%s</strong>.</p><p>It will expire in %s.</p>", msg.Code, expiry),
	}

	options := &resend.SendEmailOptions{}
	if key := strings.TrimSpace(msg.IdempotencyKey); key != "" {
		options.IdempotencyKey = key
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

// resendRetryDelay повторяет только rate limit и временные сетевые ошибки
func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
