package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/social-api/internal/handler/dto"
	"github.com/yourusername/social-api/internal/handler/helper"
	"github.com/yourusername/social-api/internal/middleware"
	"github.com/yourusername/social-api/internal/service"
)

// Ключи контекста для параметров маршрутов публикаций
const (
	ctxPostID    = "postID"
	ctxCommentID = "commentID"
	ctxReplyID   = "replyID"
)

// PostHandler обрабатывает запросы публикаций, комментариев и ответов
type PostHandler struct {
	postService *service.PostService
	maxUpload   int64
}

// NewPostHandler создает новый обработчик публикаций
func NewPostHandler(postService *service.PostService, maxUpload int64) *PostHandler {
	return &PostHandler{postService: postService, maxUpload: maxUpload}
}

// CreatePost создает публикацию из multipart-формы (content + необязательный image)
func (h *PostHandler) CreatePost(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	image, ok := formImage(c, h.maxUpload, false)
	if !ok {
		return
	}

	post, err := h.postService.CreatePost(c.Request.Context(), userID, c.PostForm("content"), image)
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// ListPosts возвращает ленту (?limit=&offset=)
func (h *PostHandler) ListPosts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	posts, err := h.postService.ListPosts(c.Request.Context(), limit, offset)
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "limit": limit, "offset": offset})
}

// GetPost возвращает одну публикацию
func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.postService.GetPost(c.Request.Context(), middleware.UintParam(c, ctxPostID))
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// UpdatePost меняет текст публикации
func (h *PostHandler) UpdatePost(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	var req dto.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	post, err := h.postService.UpdatePost(c.Request.Context(), userID, middleware.UintParam(c, ctxPostID), req.Content)
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost удаляет публикацию
func (h *PostHandler) DeletePost(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	if err := h.postService.DeletePost(c.Request.Context(), userID, middleware.UintParam(c, ctxPostID)); err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// TogglePostLike ставит или снимает лайк публикации
func (h *PostHandler) TogglePostLike(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	result, err := h.postService.TogglePostLike(c.Request.Context(), userID, middleware.UintParam(c, ctxPostID))
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListPostLikes возвращает лайкнувших публикацию
func (h *PostHandler) ListPostLikes(c *gin.Context) {
	users, err := h.postService.ListPostLikes(c.Request.Context(), middleware.UintParam(c, ctxPostID))
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, helper.ToUserList(users))
}

// AddComment добавляет комментарий
func (h *PostHandler) AddComment(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	var req dto.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	comment, err := h.postService.AddComment(c.Request.Context(), userID, middleware.UintParam(c, ctxPostID), req.Content)
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// ListComments возвращает комментарии публикации
func (h *PostHandler) ListComments(c *gin.Context) {
	comments, err := h.postService.ListComments(c.Request.Context(), middleware.UintParam(c, ctxPostID))
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// UpdateComment меняет текст комментария
func (h *PostHandler) UpdateComment(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	var req dto.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	comment, err := h.postService.UpdateComment(c.Request.Context(), userID,
		middleware.UintParam(c, ctxPostID), middleware.UintParam(c, ctxCommentID), req.Content)
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// DeleteComment удаляет комментарий
func (h *PostHandler) DeleteComment(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	err := h.postService.DeleteComment(c.Request.Context(), userID,
		middleware.UintParam(c, ctxPostID), middleware.UintParam(c, ctxCommentID))
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

// ToggleCommentLike ставит или снимает лайк комментария
func (h *PostHandler) ToggleCommentLike(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	result, err := h.postService.ToggleCommentLike(c.Request.Context(), userID,
		middleware.UintParam(c, ctxPostID), middleware.UintParam(c, ctxCommentID))
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListCommentLikes возвращает лайкнувших комментарий
func (h *PostHandler) ListCommentLikes(c *gin.Context) {
	users, err := h.postService.ListCommentLikes(c.Request.Context(),
		middleware.UintParam(c, ctxPostID), middleware.UintParam(c, ctxCommentID))
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, helper.ToUserList(users))
}

// AddReply добавляет ответ на комментарий
func (h *PostHandler) AddReply(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	var req dto.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	reply, err := h.postService.AddReply(c.Request.Context(), userID,
		middleware.UintParam(c, ctxPostID), middleware.UintParam(c, ctxCommentID), req.Content)
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

// ListReplies возвращает ответы на комментарий
func (h *PostHandler) ListReplies(c *gin.Context) {
	replies, err := h.postService.ListReplies(c.Request.Context(),
		middleware.UintParam(c, ctxPostID), middleware.UintParam(c, ctxCommentID))
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}

// UpdateReply меняет текст ответа
func (h *PostHandler) UpdateReply(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	var req dto.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	reply, err := h.postService.UpdateReply(c.Request.Context(), userID,
		middleware.UintParam(c, ctxPostID), middleware.UintParam(c, ctxCommentID), middleware.UintParam(c, ctxReplyID), req.Content)
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// DeleteReply удаляет ответ
func (h *PostHandler) DeleteReply(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	err := h.postService.DeleteReply(c.Request.Context(), userID,
		middleware.UintParam(c, ctxPostID), middleware.UintParam(c, ctxCommentID), middleware.UintParam(c, ctxReplyID))
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reply deleted"})
}

// ToggleReplyLike ставит или снимает лайк ответа
func (h *PostHandler) ToggleReplyLike(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	result, err := h.postService.ToggleReplyLike(c.Request.Context(), userID,
		middleware.UintParam(c, ctxPostID), middleware.UintParam(c, ctxCommentID), middleware.UintParam(c, ctxReplyID))
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListReplyLikes возвращает лайкнувших ответ
func (h *PostHandler) ListReplyLikes(c *gin.Context) {
	users, err := h.postService.ListReplyLikes(c.Request.Context(),
		middleware.UintParam(c, ctxPostID), middleware.UintParam(c, ctxCommentID), middleware.UintParam(c, ctxReplyID))
	if err != nil {
		handleServiceError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, helper.ToUserList(users))
}
