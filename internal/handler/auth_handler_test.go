package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/social-api/internal/domain/entity"
	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
	"github.com/yourusername/social-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubFlow возвращает заранее заданный результат для любого шага
type stubFlow struct {
	token string
	user  *entity.User
	err   error

	lastEmail string
	lastInput service.RegistrationInput
}

func (s *stubFlow) RequestRegistration(_ context.Context, email string) (string, error) {
	s.lastEmail = email
	return s.token, s.err
}

func (s *stubFlow) VerifyRegistration(_ context.Context, _, _ string) (string, error) {
	return s.token, s.err
}

func (s *stubFlow) CompleteRegistration(_ context.Context, input service.RegistrationInput) (*entity.User, error) {
	s.lastInput = input
	return s.user, s.err
}

func (s *stubFlow) RequestPasswordReset(_ context.Context, email string) (string, error) {
	s.lastEmail = email
	return s.token, s.err
}

func (s *stubFlow) VerifyPasswordReset(_ context.Context, _, _ string) (string, error) {
	return s.token, s.err
}

func (s *stubFlow) ResetPassword(_ context.Context, _, _ string) error {
	return s.err
}

type stubAuthenticator struct {
	result *service.LoginResult
	err    error
}

func (s stubAuthenticator) Login(_ context.Context, _, _ string) (*service.LoginResult, error) {
	return s.result, s.err
}

func newAuthTestRouter(flow CredentialFlow, auth Authenticator) *gin.Engine {
	h := NewAuthHandler(flow, auth)
	router := gin.New()
	group := router.Group("/api/auth")
	group.POST("/request-otp", h.RequestOTP)
	group.POST("/verify-otp", h.VerifyOTP)
	group.POST("/register", h.Register)
	group.POST("/login", h.Login)
	group.POST("/password-reset/send-otp", h.SendPasswordResetOTP)
	group.POST("/password-reset/verify-otp", h.VerifyPasswordResetOTP)
	group.POST("/password-reset/reset-password", h.ResetPassword)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Response body should be valid JSON: %s", w.Body.String())
	return w, resp
}

var validRegisterBody = map[string]string{
	"firstName":     "Alice",
	"lastName":      "Smith",
	"password":      "secret123",
	"verifiedToken": "vt",
}

// ============================================================================
// Успешные ответы
// ============================================================================

func TestAuthHandler_RequestOTP_Success(t *testing.T) {
	flow := &stubFlow{token: "staged"}
	router := newAuthTestRouter(flow, stubAuthenticator{})

	w, resp := postJSON(t, router, "/api/auth/request-otp", map[string]string{"email": "alice@example.com"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "staged", resp["token"])
	assert.NotEmpty(t, resp["message"])
	assert.Equal(t, "alice@example.com", flow.lastEmail)
}

func TestAuthHandler_VerifyOTP_Success(t *testing.T) {
	router := newAuthTestRouter(&stubFlow{token: "verified"}, stubAuthenticator{})

	w, resp := postJSON(t, router, "/api/auth/verify-otp", map[string]string{"otp": "123456", "token": "staged"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "verified", resp["verifiedToken"])
}

func TestAuthHandler_Register_Created(t *testing.T) {
	flow := &stubFlow{user: &entity.User{ID: 9}}
	router := newAuthTestRouter(flow, stubAuthenticator{})

	body := map[string]string{"middleName": "J"}
	for k, v := range validRegisterBody {
		body[k] = v
	}
	w, resp := postJSON(t, router, "/api/auth/register", body)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(9), resp["userId"])
	assert.Equal(t, "J", flow.lastInput.MiddleName)
	assert.Equal(t, "vt", flow.lastInput.VerifiedToken)
}

func TestAuthHandler_PasswordReset_Success(t *testing.T) {
	router := newAuthTestRouter(&stubFlow{token: "reset"}, stubAuthenticator{})

	w, resp := postJSON(t, router, "/api/auth/password-reset/verify-otp", map[string]string{"otp": "123456", "token": "staged"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reset", resp["token"])

	w, _ = postJSON(t, router, "/api/auth/password-reset/reset-password", map[string]string{"token": "reset", "newPassword": "newpass1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	router := newAuthTestRouter(&stubFlow{}, stubAuthenticator{result: &service.LoginResult{Token: "jwt", UserID: 3}})

	w, resp := postJSON(t, router, "/api/auth/login", map[string]string{"email": "a@example.com", "password": "x"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jwt", resp["token"])
	assert.Equal(t, float64(3), resp["userId"])
}

// ============================================================================
// Ошибки валидации - до вызова сервиса
// ============================================================================

func TestAuthHandler_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{"request-otp empty body", "/api/auth/request-otp", nil},
		{"request-otp bad email", "/api/auth/request-otp", map[string]string{"email": "not-an-email"}},
		{"verify-otp missing token", "/api/auth/verify-otp", map[string]string{"otp": "123456"}},
		{"register missing names", "/api/auth/register", map[string]string{"password": "secret123", "verifiedToken": "vt"}},
		{"register short password", "/api/auth/register", map[string]string{"firstName": "A", "lastName": "B", "password": "123", "verifiedToken": "vt"}},
		{"reset missing password", "/api/auth/password-reset/reset-password", map[string]string{"token": "t"}},
		{"login missing password", "/api/auth/login", map[string]string{"email": "a@example.com"}},
	}

	// nil-сервисы: обработчик должен ответить 400 до обращения к ним
	router := newAuthTestRouter(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := postJSON(t, router, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "validation", resp["error_type"])
		})
	}
}

// ============================================================================
// Отображение ошибок сервиса
// ============================================================================

func TestAuthHandler_ServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       interface{}
		err        error
		wantStatus int
		wantType   string
	}{
		{"duplicate subject", "/api/auth/request-otp", map[string]string{"email": "a@example.com"}, service.ErrDuplicateSubject, http.StatusBadRequest, "duplicate_subject"},
		{"notification failed", "/api/auth/request-otp", map[string]string{"email": "a@example.com"}, fmt.Errorf("%w: smtp", service.ErrNotificationFailed), http.StatusBadGateway, "notification_failed"},
		{"storage unavailable", "/api/auth/request-otp", map[string]string{"email": "a@example.com"}, fmt.Errorf("%w: dial tcp", service.ErrStorageUnavailable), http.StatusServiceUnavailable, "storage_unavailable"},
		{"invalid code", "/api/auth/verify-otp", map[string]string{"otp": "123456", "token": "t"}, service.ErrInvalidOrExpiredCode, http.StatusBadRequest, "invalid_or_expired_code"},
		{"bad token", "/api/auth/verify-otp", map[string]string{"otp": "123456", "token": "t"}, service.ErrTokenExpiredOrInvalid, http.StatusBadRequest, "token_expired_or_invalid"},
		{"too many attempts", "/api/auth/verify-otp", map[string]string{"otp": "123456", "token": "t"}, service.ErrTooManyAttempts, http.StatusTooManyRequests, "too_many_attempts"},
		{"verification required", "/api/auth/register", validRegisterBody, service.ErrVerificationRequired, http.StatusBadRequest, "verification_required"},
		{"duplicate on register", "/api/auth/register", validRegisterBody, service.ErrDuplicateSubject, http.StatusBadRequest, "duplicate_subject"},
		{"validation from service", "/api/auth/register", validRegisterBody, fmt.Errorf("%w: password is too long", apperrors.ErrValidation), http.StatusBadRequest, "validation"},
		{"subject not found", "/api/auth/password-reset/send-otp", map[string]string{"email": "a@example.com"}, service.ErrSubjectNotFound, http.StatusNotFound, "subject_not_found"},
		{"reset unverified", "/api/auth/password-reset/reset-password", map[string]string{"token": "t", "newPassword": "newpass1"}, service.ErrVerificationRequired, http.StatusBadRequest, "verification_required"},
		{"unexpected error", "/api/auth/request-otp", map[string]string{"email": "a@example.com"}, errors.New("boom"), http.StatusInternalServerError, "internal_server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAuthTestRouter(&stubFlow{err: tt.err}, stubAuthenticator{})

			w, resp := postJSON(t, router, tt.path, tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantType, resp["error_type"])
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	router := newAuthTestRouter(&stubFlow{}, stubAuthenticator{err: service.ErrInvalidCredentials})

	w, resp := postJSON(t, router, "/api/auth/login", map[string]string{"email": "a@example.com", "password": "x"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "invalid_credentials", resp["error_type"])
}

func TestHandleServiceError_HidesStorageDetails(t *testing.T) {
	router := newAuthTestRouter(&stubFlow{err: fmt.Errorf("%w: password=secret host=db", service.ErrStorageUnavailable)}, stubAuthenticator{})

	_, resp := postJSON(t, router, "/api/auth/request-otp", map[string]string{"email": "a@example.com"})

	assert.NotContains(t, resp["error"], "password=secret")
}
