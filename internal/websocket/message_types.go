package websocket

import "time"

// Типы событий ленты уведомлений
const (
	// FOLLOW_NEW - на пользователя подписались
	FOLLOW_NEW = "FOLLOW_NEW"

	// POST_LIKED - публикацию пользователя лайкнули
	POST_LIKED = "POST_LIKED"

	// COMMENT_ADDED - к публикации пользователя добавлен комментарий
	COMMENT_ADDED = "COMMENT_ADDED"

	// COMMENT_LIKED - комментарий пользователя лайкнули
	COMMENT_LIKED = "COMMENT_LIKED"

	// REPLY_ADDED - на комментарий пользователя ответили
	REPLY_ADDED = "REPLY_ADDED"

	// REPLY_LIKED - ответ пользователя лайкнули
	REPLY_LIKED = "REPLY_LIKED"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
