package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

// notify-tail подписывается на topic уведомлений или событий заказов и
// печатает их в stdout. Удобен для наблюдения за движком в dev-окружении.
func main() {
	var (
		brokers string
		topic   string
		groupID string
	)

	flag.StringVar(&brokers, "brokers", "", "Kafka brokers, comma-separated (fallback: KAFKA_BROKERS)")
	flag.StringVar(&topic, "topic", kafka.TopicNotifications, "topic to tail (notifications or order events)")
	flag.StringVar(&groupID, "group", "storefront-notify-tail", "consumer group id")
	flag.Parse()

	if strings.TrimSpace(brokers) == "" {
		brokers = strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))
	}
	if brokers == "" {
		_, _ = fmt.Fprintln(os.Stderr, "KAFKA_BROKERS (or -brokers) is required")
		os.Exit(1)
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	handler := func(_ context.Context, message *sarama.ConsumerMessage) error {
		if message.Topic == kafka.TopicOrderEvents {
			event, err := kafka.ParseOrderEvent(message)
			if err != nil {
				return err
			}
			fmt.Printf("%s [%s] order %s -> %s\n", event.Timestamp.Format("15:04:05"), event.EventType, event.OrderID, event.Status)
			return nil
		}

		event, err := kafka.ParseNotificationEvent(message)
		if err != nil {
			return err
		}
		fmt.Printf("%s [%s] %s\n", event.CreatedAt.Format("15:04:05"), event.Level, event.Message)
		return nil
	}

	consumer, err := kafka.NewConsumer(strings.Split(brokers, ","), groupID, []string{topic}, handler)
	if err != nil {
		log.WithError(err).Fatal("failed to create consumer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start consumer")
	}

	<-ctx.Done()
	if err := consumer.Stop(); err != nil {
		log.WithError(err).Warn("consumer stopped with error")
	}
}
