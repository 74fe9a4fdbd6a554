package websocket

import (
	"log"
	"sync"
)

// Hub хранит локальные соединения, сгруппированные по пользователю.
// У одного пользователя может быть несколько вкладок/устройств.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}

	// onChange вызывается с текущим числом соединений (метрики)
	onChange func(total int)
}

func NewHub(onChange func(total int)) *Hub {
	return &Hub{
		clients:  make(map[string]map[*Client]struct{}),
		onChange: onChange,
	}
}

// Register добавляет клиента
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	conns, ok := h.clients[c.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[c.UserID] = conns
	}
	conns[c] = struct{}{}
	total := h.countLocked()
	h.mu.Unlock()

	log.Printf("[Hub] Клиент подключен: UserID=%s, ConnID=%s", c.UserID, c.ConnectionID)
	h.notifyChange(total)
}

// Unregister удаляет клиента и закрывает его канал отправки. Повторный вызов безопасен.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if conns, ok := h.clients[c.UserID]; ok {
		if _, exists := conns[c]; exists {
			delete(conns, c)
			c.closeSend()
		}
		if len(conns) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	total := h.countLocked()
	h.mu.Unlock()

	h.notifyChange(total)
}

// SendToUser кладет сообщение во все локальные соединения пользователя.
// Возвращает число соединений, принявших сообщение; переполненные буферы пропускаются.
func (h *Hub) SendToUser(userID string, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients[userID] {
		select {
		case c.send <- message:
			delivered++
		default:
			log.Printf("[Hub] Буфер клиента переполнен, сообщение пропущено: UserID=%s, ConnID=%s", userID, c.ConnectionID)
		}
	}
	return delivered
}

// ClientCount возвращает число локальных соединений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked()
}

func (h *Hub) countLocked() int {
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}

func (h *Hub) notifyChange(total int) {
	if h.onChange != nil {
		h.onChange(total)
	}
}
