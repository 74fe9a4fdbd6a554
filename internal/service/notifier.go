package service

// EventNotifier доставляет событие пользователю (реализуется websocket.Manager)
type EventNotifier interface {
	NotifyUser(userID uint, eventType string, data interface{})
}

type noopNotifier struct{}

func (noopNotifier) NotifyUser(uint, string, interface{}) {}

func notifierOrNoop(n EventNotifier) EventNotifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
