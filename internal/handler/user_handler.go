package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/social-api/internal/middleware"
	"github.com/yourusername/social-api/internal/service"
)

// UserHandler обрабатывает запросы, связанные с профилями
type UserHandler struct {
	userService *service.UserService
	maxUpload   int64
}

// NewUserHandler создает новый обработчик профилей; maxUpload - лимит тела multipart-запроса
func NewUserHandler(userService *service.UserService, maxUpload int64) *UserHandler {
	return &UserHandler{userService: userService, maxUpload: maxUpload}
}

// GetUser возвращает профиль пользователя (без пароля)
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), middleware.UintParam(c, "userID"))
	if err != nil {
		handleServiceError(c, "UserHandler", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser обновляет профиль; менять можно только свой
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actorID, _ := middleware.UserID(c)

	var req service.UpdateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	user, err := h.userService.UpdateDetails(c.Request.Context(), actorID, middleware.UintParam(c, "userID"), req)
	if err != nil {
		handleServiceError(c, "UserHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
}

// UploadProfilePicture загружает аватар текущего пользователя
func (h *UserHandler) UploadProfilePicture(c *gin.Context) {
	h.uploadImage(c, h.userService.SetProfilePicture)
}

// UploadCoverPhoto загружает обложку профиля текущего пользователя
func (h *UserHandler) UploadCoverPhoto(c *gin.Context) {
	h.uploadImage(c, h.userService.SetCoverPhoto)
}

func (h *UserHandler) uploadImage(c *gin.Context, save imageSetter) {
	userID, _ := middleware.UserID(c)

	file, ok := formImage(c, h.maxUpload, true)
	if !ok {
		return
	}

	user, err := save(c.Request.Context(), userID, file)
	if err != nil {
		handleServiceError(c, "UserHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image uploaded", "user": user})
}
