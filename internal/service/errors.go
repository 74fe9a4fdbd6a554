package service

import "errors"

// Ошибки потоков регистрации/сброса пароля и входа.
// Текст ошибки совпадает с error_type, который видит клиент.
var (
	ErrDuplicateSubject      = errors.New("duplicate_subject")
	ErrSubjectNotFound       = errors.New("subject_not_found")
	ErrInvalidOrExpiredCode  = errors.New("invalid_or_expired_code")
	ErrTokenExpiredOrInvalid = errors.New("token_expired_or_invalid")
	ErrVerificationRequired  = errors.New("verification_required")
	ErrNotificationFailed    = errors.New("notification_failed")
	ErrStorageUnavailable    = errors.New("storage_unavailable")
	ErrTooManyAttempts       = errors.New("too_many_attempts")
	ErrInvalidCredentials    = errors.New("invalid_credentials")
)
