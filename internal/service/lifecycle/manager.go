package lifecycle

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/stock"
)

// Manager реализует машину статусов заказа. Он решает, какие побочные
// эффекты сопровождают переход (списание стока, возврат стока, начисление
// лояльности), делегирует их и завершает переход единственной записью
// нового статуса в репозиторий.
type Manager struct {
	orders   domain.OrderRepository
	stock    *stock.Reconciler
	loyalty  domain.LoyaltyService
	timeline domain.TimelineRepository
	notifier domain.NotificationSink
	events   domain.OrderEventPublisher
	logger   *log.Entry
	metrics  *metrics.EngineMetrics
}

// NewManager создаёт рабочий экземпляр менеджера.
func NewManager(
	orders domain.OrderRepository,
	reconciler *stock.Reconciler,
	loyalty domain.LoyaltyService,
	timeline domain.TimelineRepository,
	notifier domain.NotificationSink,
	logger *log.Entry,
) *Manager {
	if logger == nil {
		logger = log.New().WithField("component", "lifecycle")
	}
	return &Manager{
		orders:   orders,
		stock:    reconciler,
		loyalty:  loyalty,
		timeline: timeline,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics.NewEngineMetrics(),
	}
}

// NewManagerWithoutMetrics создаёт менеджер без метрик (для тестов).
func NewManagerWithoutMetrics(
	orders domain.OrderRepository,
	reconciler *stock.Reconciler,
	loyalty domain.LoyaltyService,
	timeline domain.TimelineRepository,
	notifier domain.NotificationSink,
	logger *log.Entry,
) *Manager {
	m := NewManager(orders, reconciler, loyalty, timeline, notifier, logger)
	m.metrics = nil
	return m
}

// SetEventPublisher подключает публикацию событий статусов во внешнюю шину.
// Без паблишера переходы просто не публикуются.
func (m *Manager) SetEventPublisher(events domain.OrderEventPublisher) {
	m.events = events
}

// Transition переводит заказ в желаемый статус. Повторный перевод в текущий
// статус — тихий no-op без обращений к складу и без записи в хранилище.
func (m *Manager) Transition(orderID string, desired domain.OrderStatus) (domain.Order, error) {
	if !domain.KnownStatus(desired) {
		return domain.Order{}, fmt.Errorf("%w: %q", domain.ErrUnknownStatus, desired)
	}

	order, err := m.orders.Get(orderID)
	if err != nil {
		m.logger.WithError(err).WithField("order_id", orderID).Warn("order not found for transition")
		return domain.Order{}, err
	}

	if order.Status == desired {
		if m.metrics != nil {
			m.metrics.RecordTransitionNoop()
		}
		return order, nil
	}

	start := time.Now()
	if m.metrics != nil {
		m.metrics.RecordTransitionStarted()
	}
	defer func() {
		if m.metrics != nil {
			m.metrics.RecordTransitionDuration(time.Since(start))
			m.metrics.RecordTransitionFinished()
		}
	}()

	switch {
	case isDebit(order.Status, desired):
		if err := m.stock.ValidateAndCommit(order.Items); err != nil {
			if m.metrics != nil {
				m.metrics.RecordTransitionFailed()
			}
			m.logger.WithError(err).WithField("order_id", order.ID).Warn("stock debit failed")
			return domain.Order{}, err
		}
		// Лояльность best-effort: её провал структурно не может откатить списание.
		m.earnLoyalty(&order)

	case isRestore(order.Status, desired):
		m.stock.Restore(order.Items)
	}

	updated, err := m.orders.UpdateStatus(order.ID, desired)
	if err != nil {
		if m.metrics != nil {
			m.metrics.RecordTransitionFailed()
		}
		m.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"to":       desired,
		}).Error("failed to persist status")
		return domain.Order{}, err
	}

	m.appendTimeline(order.Status, updated)
	m.publishEvent(order.Status, updated)
	if m.metrics != nil {
		m.metrics.RecordTransitionApplied(string(desired))
	}
	if m.notifier != nil {
		m.notifier.Success(fmt.Sprintf("order %s moved from %s to %s", order.ID, order.Status, desired))
	}
	return updated, nil
}

// isDebit сообщает, является ли переход списанием стока.
func isDebit(from, to domain.OrderStatus) bool {
	return from == domain.OrderStatusPending && to == domain.OrderStatusProcessing
}

// isRestore сообщает, является ли переход возвратом стока на склад.
func isRestore(from, to domain.OrderStatus) bool {
	if to != domain.OrderStatusRefused {
		return false
	}
	return from == domain.OrderStatusProcessing || from == domain.OrderStatusAccepted
}

func (m *Manager) earnLoyalty(order *domain.Order) {
	if m.loyalty == nil {
		return
	}
	// Гостевым заказам баллы начислять некому.
	if order.OwnerID == "" {
		return
	}

	points, err := m.loyalty.EarnPoints(order.OwnerID, domain.LoyaltyAccrual{
		OrderID:     order.ID,
		AmountMinor: order.TotalMinor,
		Items:       order.Items,
	})
	if err != nil {
		m.logger.WithError(err).WithField("order_id", order.ID).Warn("loyalty accrual failed")
		if m.notifier != nil {
			m.notifier.Warning(fmt.Sprintf("loyalty accrual failed for order %s: %v", order.ID, err))
		}
		return
	}
	m.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"points":   points,
	}).Info("loyalty points earned")
}

// publishEvent best-effort отдаёт применённый переход во внешнюю шину.
func (m *Manager) publishEvent(from domain.OrderStatus, order domain.Order) {
	if m.events == nil {
		return
	}
	if err := m.events.PublishStatusChange(order, from); err != nil {
		m.logger.WithError(err).WithField("order_id", order.ID).Warn("publish order event failed")
	}
}

func (m *Manager) appendTimeline(from domain.OrderStatus, order domain.Order) {
	if m.timeline == nil {
		return
	}
	event := domain.TimelineEvent{
		OrderID:  order.ID,
		From:     from,
		To:       order.Status,
		Occurred: order.UpdatedAt,
	}
	if err := m.timeline.Append(event); err != nil {
		m.logger.WithError(err).WithField("order_id", order.ID).Warn("append timeline event failed")
	}
}
