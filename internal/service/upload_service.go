package service

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
)

// URLPrefix - публичный префикс, под которым раздаются загруженные файлы
const URLPrefix = "/uploads"

// допустимые расширения и соответствующие им MIME-типы
var allowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// UploadService сохраняет изображения пользователей на диск
type UploadService struct {
	uploadDir string
	maxBytes  int64
}

// NewUploadService создает сервис загрузки; maxSizeMB <= 0 означает 4 МБ
func NewUploadService(uploadDir string, maxSizeMB int) *UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 4
	}
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		log.Printf("[UploadService] WARNING: не удалось создать директорию %s: %v", uploadDir, err)
	}
	return &UploadService{
		uploadDir: uploadDir,
		maxBytes:  int64(maxSizeMB) << 20,
	}
}

// MaxBytes возвращает лимит размера файла
func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// SaveImage проверяет файл (расширение, MIME, размер) и сохраняет его в каталог пользователя.
// Возвращает публичный путь вида /uploads/<userID>/<имя>.
func (s *UploadService) SaveImage(userID uint, file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", fmt.Errorf("%w: file is required", apperrors.ErrValidation)
	}
	if file.Size > s.maxBytes {
		return "", fmt.Errorf("%w: file exceeds %d bytes", apperrors.ErrValidation, s.maxBytes)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	expectedMIME, ok := allowedImageTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: only jpeg, jpg, png and gif images are allowed", apperrors.ErrValidation)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("не удалось открыть загруженный файл: %w", err)
	}
	defer src.Close()

	// По содержимому, а не по заголовку клиента
	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("не удалось прочитать загруженный файл: %w", err)
	}
	if http.DetectContentType(head[:n]) != expectedMIME {
		return "", fmt.Errorf("%w: file content does not match %s", apperrors.ErrValidation, ext)
	}

	userDir := strconv.FormatUint(uint64(userID), 10)
	if err := os.MkdirAll(filepath.Join(s.uploadDir, userDir), 0755); err != nil {
		return "", fmt.Errorf("не удалось создать директорию: %w", err)
	}

	filename := uuid.NewString() + ext
	filePath := filepath.Join(s.uploadDir, userDir, filename)

	dst, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("не удалось создать файл: %w", err)
	}
	defer dst.Close()

	// Лимит повторно на случай, если Size в заголовке занижен
	written, err := io.Copy(dst, io.LimitReader(io.MultiReader(bytes.NewReader(head[:n]), src), s.maxBytes+1))
	if err != nil {
		os.Remove(filePath) // Удаляем частично записанный файл
		return "", fmt.Errorf("не удалось сохранить файл: %w", err)
	}
	if written > s.maxBytes {
		os.Remove(filePath)
		return "", fmt.Errorf("%w: file exceeds %d bytes", apperrors.ErrValidation, s.maxBytes)
	}

	url := path.Join(URLPrefix, userDir, filename)
	log.Printf("[UploadService] Сохранен файл %s (%d байт)", url, written)
	return url, nil
}

// Remove удаляет ранее сохраненный файл по публичному пути. Ошибки только логируются.
func (s *UploadService) Remove(url string) {
	rel := strings.TrimPrefix(url, URLPrefix+"/")
	if rel == url || rel == "" {
		return
	}
	filePath := filepath.Join(s.uploadDir, filepath.FromSlash(path.Clean("/"+rel)))
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		log.Printf("[UploadService] Не удалось удалить файл %s: %v", filePath, err)
	}
}
