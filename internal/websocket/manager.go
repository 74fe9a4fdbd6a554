package websocket

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"
)

// clusterMessage - адресное сообщение, передаваемое между экземплярами
type clusterMessage struct {
	RecipientID string          `json:"recipient_id"`
	Payload     json.RawMessage `json:"payload"`
}

// Manager доставляет события пользователям.
// В кластерном режиме событие уходит в Pub/Sub и каждый экземпляр,
// включая отправителя, доставляет его своим локальным соединениям.
type Manager struct {
	hub       *Hub
	pubsub    PubSubProvider
	channel   string
	clustered bool
	now       func() time.Time
}

// NewManager создает менеджер событий
func NewManager(hub *Hub, pubsub PubSubProvider, channel string, clustered bool) *Manager {
	if pubsub == nil {
		pubsub = &NoOpPubSub{}
		clustered = false
	}
	return &Manager{
		hub:       hub,
		pubsub:    pubsub,
		channel:   channel,
		clustered: clustered,
		now:       time.Now,
	}
}

// Start подписывается на кластерный канал; без кластера ничего не делает
func (m *Manager) Start(ctx context.Context) error {
	if !m.clustered {
		return nil
	}

	messages, err := m.pubsub.Subscribe(ctx, m.channel)
	if err != nil {
		return err
	}

	go func() {
		for data := range messages {
			var msg clusterMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Printf("[WebSocketManager] Некорректное кластерное сообщение: %v", err)
				continue
			}
			m.hub.SendToUser(msg.RecipientID, msg.Payload)
		}
		log.Printf("[WebSocketManager] Подписка на канал %s завершена", m.channel)
	}()
	return nil
}

// NotifyUser отправляет событие пользователю. Ошибки доставки только логируются:
// лента уведомлений не влияет на результат основной операции.
func (m *Manager) NotifyUser(userID uint, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data, Timestamp: m.now()})
	if err != nil {
		log.Printf("[WebSocketManager] Ошибка сериализации события %s: %v", eventType, err)
		return
	}
	recipient := strconv.FormatUint(uint64(userID), 10)

	if !m.clustered {
		m.hub.SendToUser(recipient, payload)
		return
	}

	msg, err := json.Marshal(clusterMessage{RecipientID: recipient, Payload: payload})
	if err != nil {
		log.Printf("[WebSocketManager] Ошибка сериализации кластерного сообщения: %v", err)
		return
	}
	if err := m.pubsub.Publish(m.channel, msg); err != nil {
		// Redis недоступен: доставляем хотя бы локальным соединениям
		m.hub.SendToUser(recipient, payload)
	}
}
