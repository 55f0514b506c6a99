package lifecycle

import (
	"errors"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/inventory"
	"github.com/vladislavdragonenkov/storefront/internal/service/loyalty"
	"github.com/vladislavdragonenkov/storefront/internal/service/stock"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/orders"
)

type stubSink struct {
	mu        sync.Mutex
	successes []string
	warnings  []string
	errs      []string
}

func (s *stubSink) Success(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes = append(s.successes, message)
}

func (s *stubSink) Info(message string) {}

func (s *stubSink) Warning(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, message)
}

func (s *stubSink) Error(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, message)
}

type fixture struct {
	manager  *Manager
	repo     *orders.Repository
	gateway  *inventory.MemoryGateway
	loyalty  *loyalty.MockService
	timeline domain.TimelineRepository
	sink     *stubSink
}

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger.WithField("component", "test")
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo, err := orders.NewRepository(memory.NewKV(), testLogger())
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	gateway := inventory.NewMemoryGateway()
	gateway.Seed(domain.Product{ID: "prod-a", Title: "Laptop", Stock: 5})
	gateway.Seed(domain.Product{ID: "prod-b", Title: "Keyboard", Stock: 10})
	gateway.Seed(domain.Product{
		ID:       "prod-c",
		Title:    "T-Shirt",
		Stock:    20,
		Variants: []domain.Variant{{ID: "var-m", Label: "M", Stock: 4}},
	})

	sink := &stubSink{}
	loyaltySvc := loyalty.NewMockService()
	timeline := memory.NewTimelineRepository()
	reconciler := stock.NewReconcilerWithoutMetrics(gateway, sink, testLogger())
	manager := NewManagerWithoutMetrics(repo, reconciler, loyaltySvc, timeline, sink, testLogger())

	return &fixture{
		manager:  manager,
		repo:     repo,
		gateway:  gateway,
		loyalty:  loyaltySvc,
		timeline: timeline,
		sink:     sink,
	}
}

func (f *fixture) seedOrder(t *testing.T, status domain.OrderStatus, items ...domain.OrderItem) domain.Order {
	t.Helper()

	if len(items) == 0 {
		items = []domain.OrderItem{{ProductID: "prod-a", Title: "Laptop", Qty: 3, UnitPriceMinor: 199900}}
	}
	now := time.Now().UTC()
	order := domain.Order{
		ID:            "order-1",
		OwnerID:       "user-1",
		Status:        status,
		Items:         items,
		SubtotalMinor: domain.ItemsSubtotalMinor(items),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	order.TotalMinor = order.SubtotalMinor + order.TaxesMinor + order.ShippingMinor
	if err := f.repo.Create(order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestTransition_UnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Transition("missing", domain.OrderStatusProcessing)
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestTransition_UnknownStatus(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, domain.OrderStatusPending)

	_, err := f.manager.Transition("order-1", "shipped")
	if !errors.Is(err, domain.ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestTransition_IdempotentNoop(t *testing.T) {
	f := newFixture(t)
	seeded := f.seedOrder(t, domain.OrderStatusPending)

	got, err := f.manager.Transition("order-1", domain.OrderStatusPending)
	if err != nil {
		t.Fatalf("noop transition failed: %v", err)
	}
	if got.Status != domain.OrderStatusPending || !got.UpdatedAt.Equal(seeded.UpdatedAt) {
		t.Fatalf("noop must return the order unchanged: %+v", got)
	}
	if f.gateway.Calls() != 0 {
		t.Fatalf("noop must not touch the gateway, saw %d calls", f.gateway.Calls())
	}
}

func TestTransition_DebitSuccess(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, domain.OrderStatusPending,
		domain.OrderItem{ProductID: "prod-a", Title: "Laptop", Qty: 3, UnitPriceMinor: 199900},
		domain.OrderItem{ProductID: "prod-c", VariantID: "var-m", Title: "T-Shirt", Qty: 2, UnitPriceMinor: 1500},
	)

	got, err := f.manager.Transition("order-1", domain.OrderStatusProcessing)
	if err != nil {
		t.Fatalf("debit transition failed: %v", err)
	}
	if got.Status != domain.OrderStatusProcessing {
		t.Fatalf("status = %s, want processing", got.Status)
	}
	if stock, _ := f.gateway.StockOf("prod-a", ""); stock != 2 {
		t.Fatalf("prod-a stock = %d, want 2", stock)
	}
	if stock, _ := f.gateway.StockOf("prod-c", "var-m"); stock != 2 {
		t.Fatalf("var-m stock = %d, want 2", stock)
	}
	if f.loyalty.EarnCalls != 1 || f.loyalty.LastOwner != "user-1" {
		t.Fatalf("loyalty should be triggered once for the owner: %+v", f.loyalty)
	}
	if len(f.sink.successes) != 1 {
		t.Fatalf("expected one success notification, got %d", len(f.sink.successes))
	}

	events, _ := f.timeline.List("order-1")
	if len(events) != 1 || events[0].From != domain.OrderStatusPending || events[0].To != domain.OrderStatusProcessing {
		t.Fatalf("unexpected timeline: %+v", events)
	}
}

func TestTransition_DebitAtomicOnShortfall(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, domain.OrderStatusPending,
		domain.OrderItem{ProductID: "prod-a", Title: "Laptop", Qty: 1, UnitPriceMinor: 199900},
		domain.OrderItem{ProductID: "prod-b", Title: "Keyboard", Qty: 5, UnitPriceMinor: 4999},
	)

	// Внешний актор обнуляет сток первой позиции после создания заказа.
	if _, err := f.gateway.SetProductStock("prod-a", 0); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	f.gateway.SetCalls = 0

	_, err := f.manager.Transition("order-1", domain.OrderStatusProcessing)
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	shortfalls := domain.ShortfallsOf(err)
	if len(shortfalls) != 1 || shortfalls[0].ProductID != "prod-a" {
		t.Fatalf("unexpected shortfalls: %+v", shortfalls)
	}

	// Ни одна позиция не списана, статус не изменился.
	if f.gateway.SetCalls != 0 {
		t.Fatalf("no writes allowed on shortfall, saw %d", f.gateway.SetCalls)
	}
	if stock, _ := f.gateway.StockOf("prod-b", ""); stock != 10 {
		t.Fatalf("prod-b stock must stay 10, got %d", stock)
	}
	stored, _ := f.repo.Get("order-1")
	if stored.Status != domain.OrderStatusPending {
		t.Fatalf("status must stay pending, got %s", stored.Status)
	}
	if f.loyalty.EarnCalls != 0 {
		t.Fatal("loyalty must not fire on failed debit")
	}
}

func TestTransition_LoyaltyFailureDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, domain.OrderStatusPending)
	f.loyalty.EarnErr = errors.New("loyalty down")

	got, err := f.manager.Transition("order-1", domain.OrderStatusProcessing)
	if err != nil {
		t.Fatalf("transition must survive loyalty failure: %v", err)
	}
	if got.Status != domain.OrderStatusProcessing {
		t.Fatalf("status = %s, want processing", got.Status)
	}
	if len(f.sink.warnings) != 1 {
		t.Fatalf("loyalty failure should produce a warning, got %d", len(f.sink.warnings))
	}
}

func TestTransition_GuestOrderSkipsLoyalty(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	order := domain.Order{
		ID:     "order-guest",
		Status: domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ProductID: "prod-a", Title: "Laptop", Qty: 1, UnitPriceMinor: 199900},
		},
		SubtotalMinor: 199900,
		TotalMinor:    199900,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.repo.Create(order); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	if _, err := f.manager.Transition("order-guest", domain.OrderStatusProcessing); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if f.loyalty.EarnCalls != 0 {
		t.Fatal("guest orders must not trigger loyalty accrual")
	}
}

func TestTransition_RestoreFromProcessing(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, domain.OrderStatusPending,
		domain.OrderItem{ProductID: "prod-a", Title: "Laptop", Qty: 2, UnitPriceMinor: 199900},
	)

	if _, err := f.manager.Transition("order-1", domain.OrderStatusProcessing); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if stock, _ := f.gateway.StockOf("prod-a", ""); stock != 3 {
		t.Fatalf("prod-a stock = %d, want 3 after debit", stock)
	}

	got, err := f.manager.Transition("order-1", domain.OrderStatusRefused)
	if err != nil {
		t.Fatalf("restore transition failed: %v", err)
	}
	if got.Status != domain.OrderStatusRefused {
		t.Fatalf("status = %s, want refused", got.Status)
	}
	if stock, _ := f.gateway.StockOf("prod-a", ""); stock != 5 {
		t.Fatalf("prod-a stock = %d, want pre-debit 5", stock)
	}
}

func TestTransition_RestoreFromAccepted(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, domain.OrderStatusPending,
		domain.OrderItem{ProductID: "prod-a", Title: "Laptop", Qty: 2, UnitPriceMinor: 199900},
	)

	for _, status := range []domain.OrderStatus{domain.OrderStatusProcessing, domain.OrderStatusAccepted} {
		if _, err := f.manager.Transition("order-1", status); err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
	}

	if _, err := f.manager.Transition("order-1", domain.OrderStatusRefused); err != nil {
		t.Fatalf("restore transition failed: %v", err)
	}
	if stock, _ := f.gateway.StockOf("prod-a", ""); stock != 5 {
		t.Fatalf("prod-a stock = %d, want 5", stock)
	}
}

func TestTransition_PlainHasNoStockEffect(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, domain.OrderStatusProcessing)

	got, err := f.manager.Transition("order-1", domain.OrderStatusAccepted)
	if err != nil {
		t.Fatalf("plain transition failed: %v", err)
	}
	if got.Status != domain.OrderStatusAccepted {
		t.Fatalf("status = %s, want accepted", got.Status)
	}
	if f.gateway.Calls() != 0 {
		t.Fatalf("plain transition must not touch the gateway, saw %d calls", f.gateway.Calls())
	}

	got, err = f.manager.Transition("order-1", domain.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("plain transition failed: %v", err)
	}
	if got.Status != domain.OrderStatusDelivered {
		t.Fatalf("status = %s, want delivered", got.Status)
	}
	if f.loyalty.EarnCalls != 0 {
		t.Fatal("plain transitions must not trigger loyalty")
	}
}

func TestTransition_RestoreBestEffortStillRefuses(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, domain.OrderStatusPending,
		domain.OrderItem{ProductID: "prod-a", Title: "Laptop", Qty: 1, UnitPriceMinor: 199900},
		domain.OrderItem{ProductID: "prod-b", Title: "Keyboard", Qty: 2, UnitPriceMinor: 4999},
	)
	if _, err := f.manager.Transition("order-1", domain.OrderStatusProcessing); err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	// Первая позиция исчезает со склада: restore по ней провалится.
	f.gateway.Remove("prod-a")

	got, err := f.manager.Transition("order-1", domain.OrderStatusRefused)
	if err != nil {
		t.Fatalf("refusal must succeed despite restore failures: %v", err)
	}
	if got.Status != domain.OrderStatusRefused {
		t.Fatalf("status = %s, want refused", got.Status)
	}
	if stock, _ := f.gateway.StockOf("prod-b", ""); stock != 10 {
		t.Fatalf("prod-b should be restored to 10, got %d", stock)
	}
	if len(f.sink.warnings) == 0 {
		t.Fatal("swallowed restore failure should be flagged to operators")
	}
}

type stubEventPublisher struct {
	mu    sync.Mutex
	err   error
	calls []struct {
		From domain.OrderStatus
		To   domain.OrderStatus
		ID   string
	}
}

func (s *stubEventPublisher) PublishStatusChange(order domain.Order, from domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, struct {
		From domain.OrderStatus
		To   domain.OrderStatus
		ID   string
	}{From: from, To: order.Status, ID: order.ID})
	return s.err
}

func TestTransition_PublishesOrderEvent(t *testing.T) {
	f := newFixture(t)
	events := &stubEventPublisher{}
	f.manager.SetEventPublisher(events)
	order := f.seedOrder(t, domain.OrderStatusPending)

	if _, err := f.manager.Transition(order.ID, domain.OrderStatusProcessing); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	if len(events.calls) != 1 {
		t.Fatalf("expected one published event, got %d", len(events.calls))
	}
	got := events.calls[0]
	if got.ID != order.ID || got.From != domain.OrderStatusPending || got.To != domain.OrderStatusProcessing {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestTransition_NoopDoesNotPublish(t *testing.T) {
	f := newFixture(t)
	events := &stubEventPublisher{}
	f.manager.SetEventPublisher(events)
	order := f.seedOrder(t, domain.OrderStatusProcessing)

	if _, err := f.manager.Transition(order.ID, domain.OrderStatusProcessing); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if len(events.calls) != 0 {
		t.Fatalf("no-op must not publish events, got %d", len(events.calls))
	}
}

func TestTransition_EventPublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	events := &stubEventPublisher{err: errors.New("broker down")}
	f.manager.SetEventPublisher(events)
	order := f.seedOrder(t, domain.OrderStatusProcessing)

	got, err := f.manager.Transition(order.ID, domain.OrderStatusAccepted)
	if err != nil {
		t.Fatalf("publish failure must not fail the transition: %v", err)
	}
	if got.Status != domain.OrderStatusAccepted {
		t.Fatalf("status = %s, want accepted", got.Status)
	}
}
