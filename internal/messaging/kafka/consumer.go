package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// MessageHandler обрабатывает одно сообщение из топика. Ошибка означает, что
// offset не будет помечен и сообщение придёт снова.
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

// Consumer читает топики витрины в составе consumer group.
type Consumer struct {
	group  sarama.ConsumerGroup
	topics []string
	claims *claimRunner
	logger *log.Entry
	wg     sync.WaitGroup
}

// NewConsumer подключается к брокерам и собирает consumer для topics.
func NewConsumer(brokers []string, groupID string, topics []string, handler MessageHandler) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group %q: %w", groupID, err)
	}

	logger := log.WithField("component", "kafka-consumer")
	return &Consumer{
		group:  group,
		topics: topics,
		claims: &claimRunner{handler: handler, logger: logger},
		logger: logger,
	}, nil
}

// Start запускает циклы потребления и дренажа ошибок. Оба живут до Stop.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(2)

	go func() {
		defer c.wg.Done()
		for {
			// Consume возвращается на каждом rebalance, отсюда цикл.
			if err := c.group.Consume(ctx, c.topics, c.claims); err != nil {
				c.logger.WithError(err).Error("consume loop failed")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			c.logger.WithError(err).Error("consumer group error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// Stop закрывает группу и дожидается завершения циклов.
func (c *Consumer) Stop() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("close kafka consumer group: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// claimRunner реализует sarama.ConsumerGroupHandler поверх MessageHandler.
type claimRunner struct {
	handler MessageHandler
	logger  *log.Entry
}

func (r *claimRunner) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (r *claimRunner) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim прокачивает partition через handler. Необработанные сообщения
// не помечаются и будут доставлены повторно.
func (r *claimRunner) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := r.handler(session.Context(), message); err != nil {
			r.logger.WithError(err).WithFields(log.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
			}).Error("message processing failed")
			continue
		}
		session.MarkMessage(message, "")
	}
	return nil
}

// ParseNotificationEvent декодирует NotificationEvent из сообщения топика.
func ParseNotificationEvent(message *sarama.ConsumerMessage) (*NotificationEvent, error) {
	var event NotificationEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("unmarshal notification event: %w", err)
	}
	return &event, nil
}

// ParseOrderEvent декодирует OrderEvent из сообщения топика.
func ParseOrderEvent(message *sarama.ConsumerMessage) (*OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("unmarshal order event: %w", err)
	}
	return &event, nil
}
