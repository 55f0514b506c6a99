package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultPollInterval   = 1 * time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
)

var (
	notifyPublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_notify_publish_attempts_total",
		Help: "Total number of notification publish attempts grouped by result.",
	}, []string{"result"})
	notifyPendingRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_notify_pending_records",
		Help: "Current number of pending notifications in the queue.",
	})
	notifyOldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_notify_oldest_pending_age_seconds",
		Help: "Age in seconds of the oldest pending notification.",
	})
)

// DispatcherOptions задаёт параметры dispatcher уведомлений.
type DispatcherOptions struct {
	Logger         *log.Entry
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// DispatcherOption настраивает Dispatcher.
type DispatcherOption func(*DispatcherOptions)

// WithDispatcherLogger задаёт logger для dispatcher.
func WithDispatcherLogger(logger *log.Entry) DispatcherOption {
	return func(opts *DispatcherOptions) {
		opts.Logger = logger
	}
}

// WithPollInterval задаёт частоту опроса очереди.
func WithPollInterval(interval time.Duration) DispatcherOption {
	return func(opts *DispatcherOptions) {
		opts.PollInterval = interval
	}
}

// WithBatchSize задаёт размер батча из очереди.
func WithBatchSize(batchSize int) DispatcherOption {
	return func(opts *DispatcherOptions) {
		opts.BatchSize = batchSize
	}
}

// WithMaxAttempts задаёт число попыток публикации перед failed.
func WithMaxAttempts(maxAttempts int) DispatcherOption {
	return func(opts *DispatcherOptions) {
		opts.MaxAttempts = maxAttempts
	}
}

// WithRetryBaseDelay задаёт базовый delay для exponential backoff.
func WithRetryBaseDelay(delay time.Duration) DispatcherOption {
	return func(opts *DispatcherOptions) {
		opts.RetryBaseDelay = delay
	}
}

// Dispatcher публикует pending-уведомления из очереди во внешний канал.
type Dispatcher struct {
	queue          domain.NotificationQueue
	publisher      domain.NotificationPublisher
	logger         *log.Entry
	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
}

// NewDispatcher создаёт dispatcher уведомлений.
func NewDispatcher(queue domain.NotificationQueue, publisher domain.NotificationPublisher, options ...DispatcherOption) *Dispatcher {
	opts := DispatcherOptions{
		PollInterval:   defaultPollInterval,
		BatchSize:      defaultBatchSize,
		MaxAttempts:    defaultMaxAttempts,
		RetryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "notify-dispatcher")
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	}

	return &Dispatcher{
		queue:          queue,
		publisher:      publisher,
		logger:         logger,
		pollInterval:   opts.PollInterval,
		batchSize:      opts.BatchSize,
		maxAttempts:    opts.MaxAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
	}
}

// Run запускает периодический polling очереди до отмены ctx.
func (d *Dispatcher) Run(ctx context.Context) {
	if d.queue == nil || d.publisher == nil {
		d.logger.Warn("notification dispatcher is disabled: queue or publisher is nil")
		return
	}

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	d.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один polling-цикл.
func (d *Dispatcher) ProcessOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	d.refreshBacklogMetrics()

	messages, err := d.queue.PullPending(d.batchSize)
	if err != nil {
		d.logger.WithError(err).Warn("failed to pull pending notifications")
		return
	}
	if len(messages) == 0 {
		return
	}

	for _, msg := range messages {
		if ctx.Err() != nil {
			return
		}

		if err := d.publishWithRetry(ctx, msg); err != nil {
			d.logger.WithError(err).WithFields(log.Fields{
				"notification_id": msg.ID,
				"level":           msg.Level,
			}).Error("notification publish failed after retries")
			notifyPublishAttempts.WithLabelValues("failed").Inc()

			if markErr := d.queue.MarkFailed(msg.ID); markErr != nil {
				d.logger.WithError(markErr).WithField("notification_id", msg.ID).Warn("failed to mark notification as failed")
			}
			continue
		}

		if err := d.queue.MarkSent(msg.ID); err != nil {
			d.logger.WithError(err).WithField("notification_id", msg.ID).Warn("failed to mark notification as sent")
		}
	}

	d.refreshBacklogMetrics()
}

func (d *Dispatcher) publishWithRetry(ctx context.Context, msg domain.NotificationMessage) error {
	var lastErr error

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err := d.publisher.Publish(msg)
		if err == nil {
			notifyPublishAttempts.WithLabelValues("sent").Inc()
			return nil
		}
		lastErr = err
		notifyPublishAttempts.WithLabelValues("retry_error").Inc()

		if attempt >= d.maxAttempts {
			break
		}

		delay := d.retryBackoff(attempt)
		if delay <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("publish failed after %d attempts: %w", d.maxAttempts, lastErr)
}

func (d *Dispatcher) refreshBacklogMetrics() {
	stats, err := d.queue.Stats()
	if err != nil {
		d.logger.WithError(err).Warn("failed to collect notification backlog stats")
		return
	}

	notifyPendingRecords.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		notifyOldestPendingAge.Set(0)
		return
	}

	age := time.Since(stats.OldestPendingAt).Seconds()
	if age < 0 {
		age = 0
	}
	notifyOldestPendingAge.Set(age)
}

func (d *Dispatcher) retryBackoff(attempt int) time.Duration {
	if d.retryBaseDelay <= 0 {
		return 0
	}
	if attempt <= 1 {
		return d.retryBaseDelay
	}

	const maxDuration = time.Duration(1<<63 - 1)
	delay := d.retryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > maxDuration/2 {
			return maxDuration
		}
		delay *= 2
	}
	return delay
}
