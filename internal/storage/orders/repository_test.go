package orders_test

import (
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/orders"
)

// failingBackend имитирует сбой записи в хранилище.
type failingBackend struct {
	inner    *memory.KV
	storeErr error
}

func (b *failingBackend) Load(key string) ([]byte, error) {
	return b.inner.Load(key)
}

func (b *failingBackend) Store(key string, payload []byte) error {
	if b.storeErr != nil {
		return b.storeErr
	}
	return b.inner.Store(key, payload)
}

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger.WithField("component", "test")
}

func newOrder(id string) domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:      id,
		OwnerID: "user-1",
		Status:  domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ProductID: "prod-1", Title: "Laptop", Qty: 1, UnitPriceMinor: 199900},
		},
		SubtotalMinor: 199900,
		TaxesMinor:    9995,
		TotalMinor:    209895,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func newRepo(t *testing.T) (*orders.Repository, *memory.KV) {
	t.Helper()

	kv := memory.NewKV()
	repo, err := orders.NewRepository(kv, testLogger())
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	return repo, kv
}

func TestRepository_CreateGet(t *testing.T) {
	repo, _ := newRepo(t)
	order := newOrder("order-1")

	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.ID != order.ID || stored.Status != domain.OrderStatusPending {
		t.Fatalf("unexpected stored order: %+v", stored)
	}

	if err := repo.Create(order); !errors.Is(err, domain.ErrOrderExists) {
		t.Fatalf("duplicate create should fail with ErrOrderExists, got %v", err)
	}
}

func TestRepository_ListNewestFirst(t *testing.T) {
	repo, _ := newRepo(t)

	if err := repo.Create(newOrder("order-1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(newOrder("order-2")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(list))
	}
	if list[0].ID != "order-2" || list[1].ID != "order-1" {
		t.Fatalf("list should be newest first, got %s, %s", list[0].ID, list[1].ID)
	}
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo, _ := newRepo(t)
	if err := repo.Create(newOrder("order-1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := repo.UpdateStatus("order-1", domain.OrderStatusProcessing)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != domain.OrderStatusProcessing {
		t.Fatalf("status = %s, want processing", updated.Status)
	}

	if _, err := repo.UpdateStatus("missing", domain.OrderStatusProcessing); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestRepository_UpdateNotes(t *testing.T) {
	repo, _ := newRepo(t)
	if err := repo.Create(newOrder("order-1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := repo.UpdateNotes("order-1", "leave at the door")
	if err != nil {
		t.Fatalf("update notes failed: %v", err)
	}
	if updated.Notes != "leave at the door" {
		t.Fatalf("notes = %q", updated.Notes)
	}
	if updated.Status != domain.OrderStatusPending {
		t.Fatal("notes update must not touch status")
	}
}

func TestRepository_Remove(t *testing.T) {
	repo, _ := newRepo(t)
	if err := repo.Create(newOrder("order-1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.Remove("order-1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := repo.Get("order-1"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound after remove, got %v", err)
	}
	if err := repo.Remove("order-1"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("second remove should fail, got %v", err)
	}
}

func TestRepository_OwnerScoping(t *testing.T) {
	repo, _ := newRepo(t)

	// Гостевой заказ.
	guest := newOrder("order-guest")
	guest.OwnerID = ""
	if err := repo.Create(guest); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Переключаемся на пользователя: его список пуст.
	if err := repo.SwitchOwner("user-1"); err != nil {
		t.Fatalf("switch owner failed: %v", err)
	}
	list, _ := repo.List()
	if len(list) != 0 {
		t.Fatalf("user list should be empty, got %d orders", len(list))
	}

	if err := repo.Create(newOrder("order-user")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Возврат к гостю восстанавливает его документ.
	if err := repo.SwitchOwner(""); err != nil {
		t.Fatalf("switch owner failed: %v", err)
	}
	list, _ = repo.List()
	if len(list) != 1 || list[0].ID != "order-guest" {
		t.Fatalf("guest document should survive owner switches: %+v", list)
	}
}

func TestRepository_PersistsAcrossReload(t *testing.T) {
	kv := memory.NewKV()
	repo, err := orders.NewRepository(kv, testLogger())
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	if err := repo.SwitchOwner("user-1"); err != nil {
		t.Fatalf("switch owner failed: %v", err)
	}
	if err := repo.Create(newOrder("order-1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Второй репозиторий над тем же backend видит документ.
	fresh, err := orders.NewRepository(kv, testLogger())
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	if err := fresh.SwitchOwner("user-1"); err != nil {
		t.Fatalf("switch owner failed: %v", err)
	}
	stored, err := fresh.Get("order-1")
	if err != nil {
		t.Fatalf("get after reload failed: %v", err)
	}
	if stored.Items[0].Title != "Laptop" {
		t.Fatalf("unexpected reloaded order: %+v", stored)
	}
}

func TestRepository_LegacyVariantLabelNormalization(t *testing.T) {
	kv := memory.NewKV()
	legacy := []byte(`[{
		"id": "order-legacy",
		"status": "pending",
		"items": [{
			"product_id": "prod-1",
			"title": "T-Shirt",
			"unit_price_minor": 1500,
			"qty": 1,
			"variant_title": "Size M"
		}],
		"subtotal_minor": 1500,
		"taxes_minor": 0,
		"shipping_minor": 0,
		"total_minor": 1500,
		"customer": {},
		"payment": {},
		"created_at": "2024-01-02T03:04:05Z",
		"updated_at": "2024-01-02T03:04:05Z"
	}]`)
	if err := kv.Store(orders.OwnerKey(""), legacy); err != nil {
		t.Fatalf("seed legacy document: %v", err)
	}

	repo, err := orders.NewRepository(kv, testLogger())
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	stored, err := repo.Get("order-legacy")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Items[0].VariantLabel != "Size M" {
		t.Fatalf("legacy variant_title should fold into VariantLabel, got %q", stored.Items[0].VariantLabel)
	}
}

func TestRepository_StoreFailureWrapsPersistence(t *testing.T) {
	backend := &failingBackend{inner: memory.NewKV()}
	repo, err := orders.NewRepository(backend, testLogger())
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}

	backend.storeErr = errors.New("disk full")
	if err := repo.Create(newOrder("order-1")); !errors.Is(err, domain.ErrPersistenceFailure) {
		t.Fatalf("expected persistence failure, got %v", err)
	}

	// Список не должен содержать непперсистентный заказ.
	list, _ := repo.List()
	if len(list) != 0 {
		t.Fatalf("failed create must not mutate the list, got %d orders", len(list))
	}
}
