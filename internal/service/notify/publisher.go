package notify

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// LogPublisher печатает уведомления в лог. Используется, когда Kafka не
// сконфигурирован: dispatcher работает одинаково в обоих режимах.
type LogPublisher struct {
	logger *log.Entry
}

// NewLogPublisher создаёт publisher, пишущий уведомления в лог.
func NewLogPublisher(logger *log.Entry) *LogPublisher {
	if logger == nil {
		logger = log.WithField("component", "notify-publisher")
	}
	return &LogPublisher{logger: logger}
}

// Publish пишет уведомление в лог и никогда не возвращает ошибку.
func (p *LogPublisher) Publish(msg domain.NotificationMessage) error {
	entry := p.logger.WithFields(log.Fields{
		"notification_id": msg.ID,
		"level":           msg.Level,
	})
	switch msg.Level {
	case domain.NotificationError:
		entry.Error(msg.Message)
	case domain.NotificationWarning:
		entry.Warn(msg.Message)
	default:
		entry.Info(msg.Message)
	}
	return nil
}

var _ domain.NotificationPublisher = (*LogPublisher)(nil)
