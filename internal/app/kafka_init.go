package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/notify"
)

// initNotificationPublisher выбирает publisher уведомлений: Kafka при
// непустом списке брокеров, иначе публикация в лог. Возвращённый producer
// равен nil, когда Kafka не используется — тогда закрывать нечего.
// Недоступность брокеров не фатальна: движок стартует с лог-публикацией.
func initNotificationPublisher(brokers string, logger *log.Entry) (domain.NotificationPublisher, *kafka.Producer) {
	fallback := notify.NewLogPublisher(logger.WithField("component", "notify-publisher"))

	trimmed := strings.TrimSpace(brokers)
	if trimmed == "" {
		return fallback, nil
	}

	list := strings.Split(trimmed, ",")
	for i := range list {
		list[i] = strings.TrimSpace(list[i])
	}

	producer, err := kafka.NewProducer(list)
	if err != nil {
		logger.WithError(err).Warn("kafka unavailable, notifications will be logged instead")
		return fallback, nil
	}

	logger.WithField("brokers", list).Info("notifications will be published to kafka")
	return kafka.NewNotificationPublisher(producer, kafka.TopicNotifications), producer
}

// closeKafka закрывает producer, когда он был создан.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("kafka producer closed with error")
		return
	}
	logger.Info("kafka producer closed")
}
