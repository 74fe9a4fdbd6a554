package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/social-api/internal/domain/entity"
	"github.com/yourusername/social-api/internal/handler/dto"
	"github.com/yourusername/social-api/internal/service"
)

// CredentialFlow - потоки регистрации и сброса пароля (реализуется service.CredentialFlowService)
type CredentialFlow interface {
	RequestRegistration(ctx context.Context, email string) (string, error)
	VerifyRegistration(ctx context.Context, token, code string) (string, error)
	CompleteRegistration(ctx context.Context, input service.RegistrationInput) (*entity.User, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	VerifyPasswordReset(ctx context.Context, token, code string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Authenticator - вход по паролю (реализуется service.AuthService)
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
}

// AuthHandler обрабатывает запросы, связанные с аутентификацией
type AuthHandler struct {
	flow CredentialFlow
	auth Authenticator
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(flow CredentialFlow, auth Authenticator) *AuthHandler {
	return &AuthHandler{flow: flow, auth: auth}
}

// RequestOTP отправляет код подтверждения на свободный email
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req dto.RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	token, err := h.flow.RequestRegistration(c.Request.Context(), req.Email)
	if err != nil {
		handleServiceError(c, "AuthHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.StagedTokenResponse{Message: "OTP sent to your email", Token: token})
}

// VerifyOTP проверяет код регистрации
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	verified, err := h.flow.VerifyRegistration(c.Request.Context(), req.Token, req.OTP)
	if err != nil {
		handleServiceError(c, "AuthHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.VerifiedTokenResponse{Message: "OTP verified", VerifiedToken: verified})
}

// Register завершает регистрацию по подтвержденному токену
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	user, err := h.flow.CompleteRegistration(c.Request.Context(), service.RegistrationInput{
		VerifiedToken: req.VerifiedToken,
		FirstName:     req.FirstName,
		MiddleName:    req.MiddleName,
		LastName:      req.LastName,
		Password:      req.Password,
	})
	if err != nil {
		handleServiceError(c, "AuthHandler", err)
		return
	}

	log.Printf("[AuthHandler] Пользователь ID=%d успешно зарегистрирован", user.ID)
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "userId": user.ID})
}

// SendPasswordResetOTP отправляет код сброса пароля на существующий email
func (h *AuthHandler) SendPasswordResetOTP(c *gin.Context) {
	var req dto.RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	token, err := h.flow.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		handleServiceError(c, "AuthHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.StagedTokenResponse{Message: "OTP sent to your email", Token: token})
}

// VerifyPasswordResetOTP проверяет код сброса пароля
func (h *AuthHandler) VerifyPasswordResetOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	verified, err := h.flow.VerifyPasswordReset(c.Request.Context(), req.Token, req.OTP)
	if err != nil {
		handleServiceError(c, "AuthHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.StagedTokenResponse{Message: "OTP verified", Token: verified})
}

// ResetPassword устанавливает новый пароль
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	if err := h.flow.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		handleServiceError(c, "AuthHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// Login обрабатывает вход по email и паролю
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(c, "AuthHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}
