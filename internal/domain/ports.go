package domain

import "time"

// Variant описывает вариант товара с собственным счётчиком стока.
type Variant struct {
	ID    string
	Label string
	Stock int32
}

// Product — представление товара на складе, как его отдаёт Inventory Gateway.
type Product struct {
	ID          string
	Title       string
	Stock       int32
	IsAvailable bool
	Variants    []Variant
}

// FindVariant возвращает вариант по идентификатору.
func (p *Product) FindVariant(variantID string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == variantID {
			return v, true
		}
	}
	return Variant{}, false
}

// InventoryGateway описывает взаимодействие со складским сервисом.
// Все мутации стока идут через Stock Reconciler — это единственный путь записи.
type InventoryGateway interface {
	// GetProduct возвращает товар или ErrProductNotFound.
	GetProduct(productID string) (Product, error)
	// SetProductStock записывает новый сток товара и пересчитывает
	// доступность как newStock > 0.
	SetProductStock(productID string, newStock int32) (Product, error)
	// SetVariantStock записывает новый сток конкретного варианта товара.
	SetVariantStock(productID, variantID string, newStock int32) (Product, error)
}

// LoyaltyAccrual несёт данные для начисления баллов лояльности по заказу.
type LoyaltyAccrual struct {
	OrderID     string
	AmountMinor int64
	Items       []OrderItem
}

// LoyaltyService описывает взаимодействие с сервисом лояльности.
// Вызов best-effort: его провал никогда не откатывает списание стока.
type LoyaltyService interface {
	// EarnPoints начисляет баллы владельцу заказа и возвращает их количество.
	EarnPoints(ownerID string, accrual LoyaltyAccrual) (int32, error)
}

// CartService описывает обратную связь движка с корзиной после оформления заказа.
type CartService interface {
	// ReduceStockCeilings уменьшает закэшированные корзиной потолки стока.
	ReduceStockCeilings(items []OrderItem) error
	// Clear очищает корзину после успешного создания заказа.
	Clear() error
}

// NotificationLevel задаёт уровень уведомления для операторов.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationInfo    NotificationLevel = "info"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// NotificationSink — fire-and-forget канал уведомлений. Реализации не
// блокируют вызывающего и не влияют на control flow движка.
type NotificationSink interface {
	Success(message string)
	Info(message string)
	Warning(message string)
	Error(message string)
}

// NotificationMessage — запись уведомления в очереди на публикацию.
type NotificationMessage struct {
	ID        string
	Level     NotificationLevel
	Message   string
	Payload   []byte
	CreatedAt time.Time
}

// QueueStats описывает текущее состояние backlog очереди уведомлений.
type QueueStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// NotificationQueue хранит уведомления до асинхронной публикации.
type NotificationQueue interface {
	Enqueue(msg NotificationMessage) (NotificationMessage, error)
	PullPending(limit int) ([]NotificationMessage, error)
	Stats() (QueueStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
	// DeleteFinished удаляет до limit отправленных/проваленных записей старше before.
	DeleteFinished(before time.Time, limit int) (int, error)
}

// NotificationPublisher доставляет уведомление во внешний канал (Kafka, лог).
type NotificationPublisher interface {
	// Publish должен быть идемпотентным: dispatcher может повторить доставку.
	Publish(msg NotificationMessage) error
}

// OrderEventPublisher отдаёт смену статуса заказа во внешнюю шину событий.
// Публикация best-effort: её провал не отменяет уже применённый переход.
type OrderEventPublisher interface {
	PublishStatusChange(order Order, from OrderStatus) error
}
