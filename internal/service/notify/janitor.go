package notify

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultJanitorInterval  = 10 * time.Minute
	defaultJanitorRetention = 24 * time.Hour
	defaultJanitorBatchSize = 500
)

var (
	notifyJanitorRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_notify_janitor_runs_total",
		Help: "Total number of notification janitor runs grouped by result.",
	}, []string{"result"})
	notifyJanitorDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_notify_janitor_deleted_total",
		Help: "Total number of deleted finished notifications.",
	})
	notifyJanitorLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_notify_janitor_last_deleted",
		Help: "Number of deleted notifications during the last janitor run.",
	})
)

// JanitorOptions задаёт параметры воркера очистки очереди уведомлений.
type JanitorOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	Retention time.Duration
	BatchSize int
}

// JanitorOption настраивает Janitor.
type JanitorOption func(*JanitorOptions)

// WithJanitorLogger задаёт logger для воркера.
func WithJanitorLogger(logger *log.Entry) JanitorOption {
	return func(opts *JanitorOptions) {
		opts.Logger = logger
	}
}

// WithJanitorInterval задаёт интервал между циклами очистки.
func WithJanitorInterval(interval time.Duration) JanitorOption {
	return func(opts *JanitorOptions) {
		opts.Interval = interval
	}
}

// WithRetention задаёт, сколько хранить отправленные и проваленные уведомления.
func WithRetention(retention time.Duration) JanitorOption {
	return func(opts *JanitorOptions) {
		opts.Retention = retention
	}
}

// WithJanitorBatchSize задаёт размер batch для одного удаления.
func WithJanitorBatchSize(batchSize int) JanitorOption {
	return func(opts *JanitorOptions) {
		opts.BatchSize = batchSize
	}
}

// Janitor периодически удаляет отработанные уведомления из очереди.
type Janitor struct {
	queue     domain.NotificationQueue
	logger    *log.Entry
	interval  time.Duration
	retention time.Duration
	batchSize int
}

// NewJanitor создаёт воркер очистки очереди уведомлений.
func NewJanitor(queue domain.NotificationQueue, options ...JanitorOption) *Janitor {
	opts := JanitorOptions{
		Interval:  defaultJanitorInterval,
		Retention: defaultJanitorRetention,
		BatchSize: defaultJanitorBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "notify-janitor")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultJanitorInterval
	}
	if opts.Retention < 0 {
		opts.Retention = defaultJanitorRetention
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultJanitorBatchSize
	}

	return &Janitor{
		queue:     queue,
		logger:    logger,
		interval:  opts.Interval,
		retention: opts.Retention,
		batchSize: opts.BatchSize,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (j *Janitor) Run(ctx context.Context) {
	if j.queue == nil {
		j.logger.Warn("notification janitor is disabled: queue is nil")
		return
	}

	j.sweep(ctx, time.Now().UTC().Add(-j.retention))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx, time.Now().UTC().Add(-j.retention))
		}
	}
}

func (j *Janitor) sweep(ctx context.Context, before time.Time) {
	deleted, err := j.DeleteFinished(ctx, before)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		notifyJanitorRunsTotal.WithLabelValues("error").Inc()
		j.logger.WithError(err).Warn("notification janitor run failed")
		return
	}

	notifyJanitorRunsTotal.WithLabelValues("ok").Inc()
	notifyJanitorLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		j.logger.WithField("deleted", deleted).Info("notification cleanup completed")
	}
}

// DeleteFinished удаляет все отработанные записи старше before порциями batchSize.
func (j *Janitor) DeleteFinished(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := j.queue.DeleteFinished(before, j.batchSize)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted > 0 {
			notifyJanitorDeletedTotal.Add(float64(deleted))
		}

		if deleted < j.batchSize {
			break
		}
	}

	return totalDeleted, nil
}
