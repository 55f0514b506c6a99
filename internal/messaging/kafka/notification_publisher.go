package kafka

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// NotificationTopicPublisher публикует уведомления движка в Kafka topic.
type NotificationTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewNotificationPublisher создаёт Kafka-паблишер для очереди уведомлений.
func NewNotificationPublisher(producer *Producer, topic string) domain.NotificationPublisher {
	if topic == "" {
		topic = TopicNotifications
	}
	return &NotificationTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *NotificationTopicPublisher) Publish(msg domain.NotificationMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka notification publisher is not initialized")
	}

	event := NotificationEvent{
		EventType:   EventTypeNotification,
		ID:          msg.ID,
		Level:       string(msg.Level),
		Message:     msg.Message,
		CreatedAt:   msg.CreatedAt,
		PublishedAt: time.Now().UTC(),
	}

	return p.producer.PublishEvent(p.topic, msg.ID, event)
}

var _ domain.NotificationPublisher = (*NotificationTopicPublisher)(nil)
