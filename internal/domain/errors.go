package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists возвращается при попытке создать заказ с занятым ID.
	ErrOrderExists = errors.New("order already exists")
	// ErrEmptyCart — попытка оформить заказ из пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrUnknownStatus — целевой статус не входит в жизненный цикл заказа.
	ErrUnknownStatus = errors.New("unknown order status")
	// ErrPersistenceFailure — запись на склад или в хранилище заказов не удалась.
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrProductNotFound — склад не знает такой товар.
	ErrProductNotFound = errors.New("product not found")
	// ErrNotificationNotFound — уведомление отсутствует в очереди.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrVariantNotFound — у товара нет варианта с таким идентификатором.
	ErrVariantNotFound = errors.New("product variant not found")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отсутствующего идентификатора товара в позиции.
	ErrItemProductRequired = errors.New("item product_id is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка отрицательной стоимости доставки.
	ErrShippingNegative = errors.New("shipping must be non-negative")
	// Ошибка несоответствия subtotal и суммы позиций.
	ErrSubtotalMismatch = errors.New("order subtotal does not match items sum")
	// Ошибка несоответствия total и его составляющих.
	ErrTotalMismatch = errors.New("order total does not match subtotal + taxes + shipping")
)

// Shortfall описывает позицию, по которой запрошенное количество превышает доступный сток.
type Shortfall struct {
	ProductID string
	VariantID string
	Title     string
	Requested int32
	Available int32
}

// InsufficientStockError агрегирует все нехватки стока, найденные в фазе
// валидации. Ошибка всегда несёт полный список, а не первую попавшуюся позицию.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	if len(e.Shortfalls) == 0 {
		return "insufficient stock"
	}
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		title := s.Title
		if title == "" {
			title = s.ProductID
		}
		parts = append(parts, fmt.Sprintf("%s: requested %d, available %d", title, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// IsInsufficientStock проверяет, является ли ошибка нехваткой стока.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

// ShortfallsOf извлекает список нехваток из ошибки, если она их несёт.
func ShortfallsOf(err error) []Shortfall {
	var target *InsufficientStockError
	if errors.As(err, &target) {
		return target.Shortfalls
	}
	return nil
}
