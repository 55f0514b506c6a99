package checkout

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/stock"
)

// PlaceOrderInput — входные данные оформления заказа. Позиции и налоги
// приходят снапшотом корзины; subtotal фабрика пересчитывает сама.
type PlaceOrderInput struct {
	OwnerID       string
	Customer      domain.CustomerInfo
	Payment       domain.PaymentInfo
	ShippingMinor int64
	Cart          domain.CartSnapshot
}

// Factory оформляет заказы: валидирует сток без списания, собирает
// денежные поля и сохраняет заказ в статусе pending. Списание стока
// происходит позже, при переводе заказа в processing.
type Factory struct {
	orders   domain.OrderRepository
	stock    *stock.Reconciler
	cart     domain.CartService
	notifier domain.NotificationSink
	events   domain.OrderEventPublisher
	logger   *log.Entry
	metrics  *metrics.EngineMetrics

	now func() time.Time
}

// NewFactory создаёт фабрику заказов с метриками по умолчанию.
func NewFactory(
	orders domain.OrderRepository,
	reconciler *stock.Reconciler,
	cart domain.CartService,
	notifier domain.NotificationSink,
	logger *log.Entry,
) *Factory {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &Factory{
		orders:   orders,
		stock:    reconciler,
		cart:     cart,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics.NewEngineMetrics(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewFactoryWithoutMetrics создаёт фабрику без метрик (для тестов).
func NewFactoryWithoutMetrics(
	orders domain.OrderRepository,
	reconciler *stock.Reconciler,
	cart domain.CartService,
	notifier domain.NotificationSink,
	logger *log.Entry,
) *Factory {
	f := NewFactory(orders, reconciler, cart, notifier, logger)
	f.metrics = nil
	return f
}

// SetEventPublisher подключает публикацию события размещения заказа.
// Без паблишера размещения просто не публикуются.
func (f *Factory) SetEventPublisher(events domain.OrderEventPublisher) {
	f.events = events
}

// PlaceOrder оформляет заказ из снапшота корзины. Сток только проверяется:
// при нехватке возвращается *domain.InsufficientStockError со всеми
// позициями сразу, и ничего не сохраняется.
func (f *Factory) PlaceOrder(in PlaceOrderInput) (domain.Order, error) {
	if len(in.Cart.Items) == 0 {
		f.recordRejected()
		return domain.Order{}, domain.ErrEmptyCart
	}

	if err := f.stock.Validate(in.Cart.Items); err != nil {
		f.recordRejected()
		f.logger.WithError(err).Warn("order rejected on stock validation")
		return domain.Order{}, err
	}

	now := f.now()
	order := domain.Order{
		ID:            uuid.New().String(),
		OwnerID:       in.OwnerID,
		Status:        domain.OrderStatusPending,
		Items:         append([]domain.OrderItem(nil), in.Cart.Items...),
		SubtotalMinor: domain.ItemsSubtotalMinor(in.Cart.Items),
		TaxesMinor:    in.Cart.TaxesMinor,
		ShippingMinor: in.ShippingMinor,
		Customer:      in.Customer,
		Payment:       in.Payment,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	order.TotalMinor = order.SubtotalMinor + order.TaxesMinor + order.ShippingMinor

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		f.recordRejected()
		return domain.Order{}, fmt.Errorf("invalid order: %w", errs[0])
	}

	if err := f.orders.Create(order); err != nil {
		f.recordRejected()
		f.logger.WithError(err).WithField("order_id", order.ID).Error("failed to persist order")
		return domain.Order{}, err
	}

	// Корзина обновляется best-effort: заказ уже сохранён, сбои корзины
	// не должны его откатывать.
	if err := f.cart.ReduceStockCeilings(order.Items); err != nil {
		f.logger.WithError(err).Warn("failed to reduce cart stock ceilings")
	}
	if err := f.cart.Clear(); err != nil {
		f.logger.WithError(err).Warn("failed to clear cart")
	}

	if f.metrics != nil {
		f.metrics.RecordOrderCreated()
	}
	if f.events != nil {
		// Prior статуса у нового заказа нет.
		if err := f.events.PublishStatusChange(order, ""); err != nil {
			f.logger.WithError(err).WithField("order_id", order.ID).Warn("publish order event failed")
		}
	}
	if f.notifier != nil {
		f.notifier.Success(fmt.Sprintf("order %s placed, total %d", order.ID, order.TotalMinor))
	}
	f.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"owner_id":    order.OwnerID,
		"total_minor": order.TotalMinor,
		"items":       len(order.Items),
	}).Info("order placed")

	return order, nil
}

func (f *Factory) recordRejected() {
	if f.metrics != nil {
		f.metrics.RecordOrderRejected()
	}
}
