package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/social-api/internal/domain/entity"
)

const imageFormField = "image"

type imageSetter func(ctx context.Context, userID uint, file *multipart.FileHeader) (*entity.User, error)

// formImage читает файл из поля "image" multipart-формы.
// При required=false отсутствие файла не ошибка (возвращается nil, true).
func formImage(c *gin.Context, maxBytes int64, required bool) (*multipart.FileHeader, bool) {
	if maxBytes > 0 {
		// запас на остальные поля формы
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)
	}

	file, err := c.FormFile(imageFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File is too large", "error_type": "validation"})
			return nil, false
		case !required && (errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart)):
			return nil, true
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Image file is required", "error_type": "validation"})
			return nil, false
		}
	}
	return file, true
}
