package domain

import "time"

// OrderStatus описывает жизненный цикл заказа в витрине магазина.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, сток проверен, но ещё не списан.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing — сток списан, заказ взят в обработку.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusAccepted — заказ подтверждён магазином.
	OrderStatusAccepted OrderStatus = "accepted"
	// OrderStatusRefused — заказ отклонён; списанный сток возвращается на склад.
	OrderStatusRefused OrderStatus = "refused"
	// OrderStatusDelivered — заказ доставлен покупателю; терминальный статус.
	OrderStatusDelivered OrderStatus = "delivered"
)

// KnownStatus сообщает, относится ли значение к известным статусам заказа.
func KnownStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusAccepted,
		OrderStatusRefused, OrderStatusDelivered:
		return true
	}
	return false
}

// OrderItem представляет одну позицию заказа. Количество фиксируется при
// создании заказа и движком никогда не меняется — меняются только счётчики
// стока на стороне склада.
type OrderItem struct {
	// ProductID — внешний идентификатор товара на складе.
	ProductID string
	// VariantID — идентификатор варианта товара (размер, цвет); пустой, если вариант не выбран.
	VariantID string
	// Title — название товара на момент оформления.
	Title string
	// UnitPriceMinor — цена за единицу в минимальных денежных единицах.
	UnitPriceMinor int64
	// Qty — количество единиц товара.
	Qty int32
	// ImageURL — снапшот картинки товара для истории заказов.
	ImageURL string
	// VariantLabel — человекочитаемое описание варианта.
	VariantLabel string
}

// CustomerInfo — непрозрачный снапшот данных покупателя на момент оформления.
type CustomerInfo struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// PaymentInfo — непрозрачный снапшот платёжных метаданных. Движок не
// взаимодействует с платёжным шлюзом, снапшот хранится как есть.
type PaymentInfo struct {
	Method    string
	Reference string
}

// CartSnapshot — снимок корзины, из которого фабрика собирает заказ.
// Позиции и налоги считает корзина; subtotal движок пересчитывает сам.
type CartSnapshot struct {
	Items      []OrderItem
	TaxesMinor int64
}

// Order агрегирует состояние заказа. После создания мутируют только Status и Notes.
type Order struct {
	ID            string
	OwnerID       string
	Status        OrderStatus
	Items         []OrderItem
	SubtotalMinor int64
	TaxesMinor    int64
	ShippingMinor int64
	TotalMinor    int64
	Customer      CustomerInfo
	Payment       PaymentInfo
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ItemsSubtotalMinor возвращает сумму позиций: qty * unitPrice.
func ItemsSubtotalMinor(items []OrderItem) int64 {
	var sum int64
	for _, item := range items {
		sum += int64(item.Qty) * item.UnitPriceMinor
	}
	return sum
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if !KnownStatus(o.Status) {
		errs = append(errs, ErrUnknownStatus)
	}
	if o.ShippingMinor < 0 {
		errs = append(errs, ErrShippingNegative)
	}

	for _, item := range o.Items {
		if item.ProductID == "" {
			errs = append(errs, ErrItemProductRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	// Сверяем денежные поля: subtotal с суммой позиций, total с составляющими.
	if o.SubtotalMinor != ItemsSubtotalMinor(o.Items) {
		errs = append(errs, ErrSubtotalMismatch)
	}
	if o.TotalMinor != o.SubtotalMinor+o.TaxesMinor+o.ShippingMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
