package handler

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/social-api/internal/domain/entity"
	"github.com/yourusername/social-api/internal/handler/dto"
	"github.com/yourusername/social-api/internal/handler/helper"
	"github.com/yourusername/social-api/internal/middleware"
	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
	"github.com/yourusername/social-api/internal/service"
)

// FollowHandler обрабатывает запросы графа подписок
type FollowHandler struct {
	followService *service.FollowService
}

// NewFollowHandler создает новый обработчик подписок
func NewFollowHandler(followService *service.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

// ToggleFollow подписывает текущего пользователя на :userId или отписывает
func (h *FollowHandler) ToggleFollow(c *gin.Context) {
	actorID, _ := middleware.UserID(c)

	counts, err := h.followService.Toggle(c.Request.Context(), actorID, middleware.UintParam(c, "userID"))
	if err != nil {
		handleServiceError(c, "FollowHandler", err)
		return
	}

	message := "Unfollowed successfully"
	if counts.Following {
		message = "Followed successfully"
	}
	c.JSON(http.StatusOK, dto.FollowToggleResponse{
		Message:        message,
		Following:      counts.Following,
		FollowerCount:  counts.FollowerCount,
		FollowingCount: counts.FollowingCount,
	})
}

// GetFollowers возвращает подписчиков пользователя
func (h *FollowHandler) GetFollowers(c *gin.Context) {
	users, err := h.followService.Followers(c.Request.Context(), middleware.UintParam(c, "userID"))
	if err != nil {
		handleServiceError(c, "FollowHandler", err)
		return
	}
	c.JSON(http.StatusOK, helper.ToUserList(users))
}

// GetFollowing возвращает подписки пользователя
func (h *FollowHandler) GetFollowing(c *gin.Context) {
	users, err := h.followService.Following(c.Request.Context(), middleware.UintParam(c, "userID"))
	if err != nil {
		handleServiceError(c, "FollowHandler", err)
		return
	}
	c.JSON(http.StatusOK, helper.ToUserList(users))
}

// RemoveFollower удаляет :followerId из подписчиков текущего пользователя
func (h *FollowHandler) RemoveFollower(c *gin.Context) {
	ownerID, _ := middleware.UserID(c)

	counts, err := h.followService.RemoveFollower(c.Request.Context(), ownerID, middleware.UintParam(c, "followerID"))
	if err != nil {
		handleServiceError(c, "FollowHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Follower removed", "followerCount": counts.FollowerCount})
}

// ExportFollowers выгружает подписчиков в Excel; выгрузка содержит email, поэтому только свои
func (h *FollowHandler) ExportFollowers(c *gin.Context) {
	userID := middleware.UintParam(c, "userID")
	if actorID, _ := middleware.UserID(c); actorID != userID {
		handleServiceError(c, "FollowHandler", fmt.Errorf("%w: can only export your own followers", apperrors.ErrForbidden))
		return
	}

	users, err := h.followService.Followers(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, "FollowHandler", err)
		return
	}
	h.exportXLSX(c, users, fmt.Sprintf("followers_%d", userID))
}

// exportXLSX пишет список пользователей в Excel через StreamWriter
func (h *FollowHandler) exportXLSX(c *gin.Context, users []entity.User, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Followers"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		log.Printf("[FollowHandler] Ошибка переименования листа: %v", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[FollowHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file", "error_type": "internal_server_error"})
		return
	}

	headers := []interface{}{"ID", "Name", "Email", "Current city", "Profession"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[FollowHandler] Ошибка записи заголовков: %v", err)
	}

	for i, u := range users {
		cell := fmt.Sprintf("A%d", i+2) // 1 - заголовки
		row := []interface{}{
			u.ID,
			sanitizeForExcel(u.FullName()),
			sanitizeForExcel(u.Email),
			sanitizeForExcel(u.CurrentCity),
			sanitizeForExcel(u.Profession),
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[FollowHandler] Ошибка записи строки %d: %v", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[FollowHandler] Ошибка при Flush: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file", "error_type": "internal_server_error"})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[FollowHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
