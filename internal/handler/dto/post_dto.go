package dto

// ContentRequest - текст комментария, ответа или правки публикации
type ContentRequest struct {
	Content string `json:"content" binding:"required,max=5000"`
}
