package dto

// RequestOTPRequest - запрос кода на email
type RequestOTPRequest struct {
	Email string `json:"email" binding:"required,email,max=100"`
}

// VerifyOTPRequest - проверка кода по промежуточному токену
type VerifyOTPRequest struct {
	OTP   string `json:"otp" binding:"required,max=16"`
	Token string `json:"token" binding:"required"`
}

// RegisterRequest - завершение регистрации
type RegisterRequest struct {
	FirstName     string `json:"firstName" binding:"required,max=100"`
	MiddleName    string `json:"middleName" binding:"omitempty,max=100"`
	LastName      string `json:"lastName" binding:"required,max=100"`
	Password      string `json:"password" binding:"required,min=6,max=72"`
	VerifiedToken string `json:"verifiedToken" binding:"required"`
}

// ResetPasswordRequest - установка нового пароля по подтвержденному токену
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6,max=72"`
}

// LoginRequest - вход по паролю
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// StagedTokenResponse - ответ шагов потока с промежуточным токеном
type StagedTokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// VerifiedTokenResponse - ответ шага проверки кода при регистрации
type VerifiedTokenResponse struct {
	Message       string `json:"message"`
	VerifiedToken string `json:"verifiedToken"`
}
