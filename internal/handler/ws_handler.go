package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/social-api/internal/middleware"
	"github.com/yourusername/social-api/internal/websocket"
)

// WSHandler обрабатывает WebSocket соединения ленты уведомлений
type WSHandler struct {
	hub        *websocket.Hub
	tokens     middleware.TokenParser
	sendBuffer int
	upgrader   gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket; allowedOrigins синхронизирован с CORS
func NewWSHandler(hub *websocket.Hub, tokens middleware.TokenParser, allowedOrigins []string, sendBuffer int) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return &WSHandler{
		hub:        hub,
		tokens:     tokens,
		sendBuffer: sendBuffer,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Пустой Origin - не браузерный клиент (мобильное приложение, curl)
				if origin == "" {
					return true
				}
				if _, ok := allowed[origin]; ok {
					return true
				}
				log.Printf("[WSHandler] Отклонен origin: %s", origin)
				return false
			},
			EnableCompression: true,
		},
	}
}

// HandleConnection аутентифицирует по ?token= (access-токен) и подключает клиента к хабу
func (h *WSHandler) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	// НЕ логируем токен - это секретные данные аутентификации
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token parameter", "error_type": "token_missing"})
		return
	}

	claims, err := h.tokens.ParseToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		log.Printf("[WSHandler] Ошибка upgrade для UserID=%d: %v", claims.UserID, err)
		return
	}

	client := websocket.NewClient(h.hub, conn, strconv.FormatUint(uint64(claims.UserID), 10), h.sendBuffer)
	h.hub.Register(client)
	client.StartPumps()
	log.Printf("[WSHandler] Подключен UserID=%d", claims.UserID)
}
