package kafka

import "time"

// EventType определяет тип события витрины
type EventType string

const (
	// Order события
	EventTypeOrderPlaced     EventType = "order.placed"
	EventTypeOrderProcessing EventType = "order.processing"
	EventTypeOrderAccepted   EventType = "order.accepted"
	EventTypeOrderRefused    EventType = "order.refused"
	EventTypeOrderDelivered  EventType = "order.delivered"

	// Notification события
	EventTypeNotification EventType = "notification"
)

// Topics для Kafka
const (
	TopicOrderEvents   = "storefront.order.events"
	TopicNotifications = "storefront.notifications"
)

// OrderEvent представляет событие смены статуса заказа
type OrderEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	OwnerID   string                 `json:"owner_id,omitempty"`
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, ownerID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		OwnerID:   ownerID,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NotificationEvent — конверт уведомления в topic уведомлений
type NotificationEvent struct {
	EventType   EventType `json:"event_type"`
	ID          string    `json:"id"`
	Level       string    `json:"level"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at"`
}
