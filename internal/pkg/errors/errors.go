package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда пользователь пытается изменить чужой ресурс.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken используется, когда access-токен истек.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict используется для нарушений уникальности (например, email уже занят).
	ErrConflict = errors.New("resource state conflict")
)
