package kafka

import (
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// OrderTopicPublisher публикует события жизненного цикла заказа в Kafka topic.
type OrderTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOrderEventPublisher создаёт Kafka-паблишер событий заказов.
func NewOrderEventPublisher(producer *Producer, topic string) domain.OrderEventPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OrderTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

// PublishStatusChange отправляет событие нового статуса, ключ — id заказа,
// поэтому события одного заказа попадают в одну partition по порядку.
func (p *OrderTopicPublisher) PublishStatusChange(order domain.Order, from domain.OrderStatus) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka order event publisher is not initialized")
	}

	event := NewOrderEvent(
		eventTypeFor(order.Status),
		order.ID,
		order.OwnerID,
		string(order.Status),
		map[string]interface{}{"from": string(from)},
	)
	return p.producer.PublishEvent(p.topic, order.ID, event)
}

// eventTypeFor сопоставляет статус заказа типу события топика.
func eventTypeFor(status domain.OrderStatus) EventType {
	switch status {
	case domain.OrderStatusProcessing:
		return EventTypeOrderProcessing
	case domain.OrderStatusAccepted:
		return EventTypeOrderAccepted
	case domain.OrderStatusRefused:
		return EventTypeOrderRefused
	case domain.OrderStatusDelivered:
		return EventTypeOrderDelivered
	default:
		return EventTypeOrderPlaced
	}
}

var _ domain.OrderEventPublisher = (*OrderTopicPublisher)(nil)
