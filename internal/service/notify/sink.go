package notify

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// QueueSink кладёт уведомления в очередь на асинхронную публикацию.
// Сбои очереди проглатываются и логируются: sink по контракту не может
// повлиять на control flow вызывающего.
type QueueSink struct {
	queue  domain.NotificationQueue
	logger *log.Entry
}

// NewQueueSink создаёт sink поверх очереди уведомлений.
func NewQueueSink(queue domain.NotificationQueue, logger *log.Entry) *QueueSink {
	if logger == nil {
		logger = log.WithField("component", "notify-sink")
	}
	return &QueueSink{queue: queue, logger: logger}
}

// Success ставит в очередь уведомление об успешной операции.
func (s *QueueSink) Success(message string) {
	s.enqueue(domain.NotificationSuccess, message)
}

// Info ставит в очередь информационное уведомление.
func (s *QueueSink) Info(message string) {
	s.enqueue(domain.NotificationInfo, message)
}

// Warning ставит в очередь предупреждение для операторов.
func (s *QueueSink) Warning(message string) {
	s.enqueue(domain.NotificationWarning, message)
}

// Error ставит в очередь уведомление об ошибке.
func (s *QueueSink) Error(message string) {
	s.enqueue(domain.NotificationError, message)
}

func (s *QueueSink) enqueue(level domain.NotificationLevel, message string) {
	_, err := s.queue.Enqueue(domain.NotificationMessage{
		Level:   level,
		Message: message,
	})
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"level":   level,
			"message": message,
		}).Warn("failed to enqueue notification")
	}
}

var _ domain.NotificationSink = (*QueueSink)(nil)

// LogSink пишет уведомления напрямую в лог. Используется в тестах и в
// конфигурациях без очереди.
type LogSink struct {
	logger *log.Entry
}

// NewLogSink создаёт sink, пишущий уведомления в лог.
func NewLogSink(logger *log.Entry) *LogSink {
	if logger == nil {
		logger = log.WithField("component", "notifications")
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Success(message string) { s.logger.WithField("level", "success").Info(message) }
func (s *LogSink) Info(message string)    { s.logger.WithField("level", "info").Info(message) }
func (s *LogSink) Warning(message string) { s.logger.WithField("level", "warning").Warn(message) }
func (s *LogSink) Error(message string)   { s.logger.WithField("level", "error").Error(message) }

var _ domain.NotificationSink = (*LogSink)(nil)
