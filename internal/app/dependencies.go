package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/inventory"
	"github.com/vladislavdragonenkov/storefront/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/storefront/internal/service/loyalty"
	"github.com/vladislavdragonenkov/storefront/internal/service/notify"
	"github.com/vladislavdragonenkov/storefront/internal/service/stock"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/orders"
)

// Dependencies содержит все зависимости движка заказов.
type Dependencies struct {
	Repo       *orders.Repository
	Timeline   domain.TimelineRepository
	Queue      domain.NotificationQueue
	Sink       domain.NotificationSink
	Gateway    domain.InventoryGateway
	Loyalty    domain.LoyaltyService
	Cart       domain.CartService
	Reconciler *stock.Reconciler
	Lifecycle  *lifecycle.Manager
	Checkout   *checkout.Factory
	Logger     *log.Entry
}

// NewDependencies собирает движок поверх заданного бэкенда заказов.
// NOTE: склад, лояльность и корзина — in-memory реализации; в production
// их место занимают клиенты реальных сервисов витрины.
func NewDependencies(backend orders.Backend, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	if backend == nil {
		backend = memory.NewKV()
	}

	repo, err := orders.NewRepository(backend, logger.WithField("component", "order-repository"))
	if err != nil {
		return nil, err
	}

	queue := memory.NewNotificationQueue()
	sink := notify.NewQueueSink(queue, logger.WithField("component", "notify-sink"))
	gateway := inventory.NewMemoryGateway()
	loyaltySvc := loyalty.NewMockService()
	cartSvc := cart.NewMockService()
	timeline := memory.NewTimelineRepository()

	reconciler := stock.NewReconciler(gateway, sink, logger.WithField("component", "stock-reconciler"))
	manager := lifecycle.NewManager(repo, reconciler, loyaltySvc, timeline, sink, logger.WithField("component", "lifecycle"))
	factory := checkout.NewFactory(repo, reconciler, cartSvc, sink, logger.WithField("component", "checkout"))

	return &Dependencies{
		Repo:       repo,
		Timeline:   timeline,
		Queue:      queue,
		Sink:       sink,
		Gateway:    gateway,
		Loyalty:    loyaltySvc,
		Cart:       cartSvc,
		Reconciler: reconciler,
		Lifecycle:  manager,
		Checkout:   factory,
		Logger:     logger,
	}, nil
}
