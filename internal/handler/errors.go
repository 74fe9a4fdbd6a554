package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
	"github.com/yourusername/social-api/internal/service"
)

// errorMapping - HTTP-статус и машиночитаемый тип для ошибки сервиса
type errorMapping struct {
	target    error
	status    int
	errorType string
	message   string
}

// Порядок важен: первое совпадение по errors.Is выигрывает
var serviceErrorMappings = []errorMapping{
	{service.ErrDuplicateSubject, http.StatusBadRequest, "duplicate_subject", "An account with this email already exists"},
	{service.ErrInvalidOrExpiredCode, http.StatusBadRequest, "invalid_or_expired_code", "Invalid or expired OTP"},
	{service.ErrTokenExpiredOrInvalid, http.StatusBadRequest, "token_expired_or_invalid", "Token is expired or invalid"},
	{service.ErrVerificationRequired, http.StatusBadRequest, "verification_required", "OTP verification is required"},
	{service.ErrSubjectNotFound, http.StatusNotFound, "subject_not_found", "No account found with this email"},
	{service.ErrInvalidCredentials, http.StatusNotFound, "invalid_credentials", "Invalid email or password"},
	{service.ErrNotificationFailed, http.StatusBadGateway, "notification_failed", "Failed to send OTP email"},
	{service.ErrTooManyAttempts, http.StatusTooManyRequests, "too_many_attempts", "Too many attempts, please request a new code later"},
	{service.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable", "Service temporarily unavailable"},
	{apperrors.ErrValidation, http.StatusBadRequest, "validation", ""},
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden", "You are not allowed to modify this resource"},
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "Resource not found"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "Resource state conflict"},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Unauthorized"},
}

// handleServiceError отвечает клиенту {error, error_type} по ошибке сервиса.
// Внутренние детали (текст ошибок хранилища) наружу не отдаются.
func handleServiceError(c *gin.Context, component string, err error) {
	for _, m := range serviceErrorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		message := m.message
		if message == "" {
			// Ошибки валидации формируются в коде сервиса и безопасны для клиента
			message = err.Error()
		}
		if m.status >= http.StatusInternalServerError || m.status == http.StatusBadGateway {
			log.Printf("[%s] %v", component, err)
		}
		c.JSON(m.status, gin.H{"error": message, "error_type": m.errorType})
		return
	}

	log.Printf("[%s] Internal error: %v", component, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_server_error"})
}

// handleBindError отвечает 400 на некорректное тело запроса
func handleBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation"})
}
