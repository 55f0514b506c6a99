package orders

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// itemRecord — JSON-представление позиции заказа. Поле variant_title —
// устаревшее имя variant_label; при чтении оно сворачивается в новое поле.
type itemRecord struct {
	ProductID      string `json:"product_id"`
	VariantID      string `json:"variant_id,omitempty"`
	Title          string `json:"title"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	Qty            int32  `json:"qty"`
	ImageURL       string `json:"image_url,omitempty"`
	VariantLabel   string `json:"variant_label,omitempty"`
	LegacyLabel    string `json:"variant_title,omitempty"`
}

type customerRecord struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type paymentRecord struct {
	Method    string `json:"method,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// orderRecord — JSON-представление заказа в документе владельца.
type orderRecord struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"owner_id,omitempty"`
	Status        string         `json:"status"`
	Items         []itemRecord   `json:"items"`
	SubtotalMinor int64          `json:"subtotal_minor"`
	TaxesMinor    int64          `json:"taxes_minor"`
	ShippingMinor int64          `json:"shipping_minor"`
	TotalMinor    int64          `json:"total_minor"`
	Customer      customerRecord `json:"customer"`
	Payment       paymentRecord  `json:"payment"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// encodeOrders сериализует список заказов в JSON-массив, новые первыми.
func encodeOrders(list []domain.Order) ([]byte, error) {
	records := make([]orderRecord, 0, len(list))
	for _, order := range list {
		records = append(records, toRecord(order))
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal orders: %w", err)
	}
	return payload, nil
}

// decodeOrders разбирает документ владельца. Пустой payload — пустой список.
func decodeOrders(payload []byte) ([]domain.Order, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	var records []orderRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("unmarshal orders: %w", err)
	}

	list := make([]domain.Order, 0, len(records))
	for _, record := range records {
		list = append(list, fromRecord(record))
	}
	return list, nil
}

func toRecord(order domain.Order) orderRecord {
	items := make([]itemRecord, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, itemRecord{
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Title:          item.Title,
			UnitPriceMinor: item.UnitPriceMinor,
			Qty:            item.Qty,
			ImageURL:       item.ImageURL,
			VariantLabel:   item.VariantLabel,
		})
	}
	return orderRecord{
		ID:            order.ID,
		OwnerID:       order.OwnerID,
		Status:        string(order.Status),
		Items:         items,
		SubtotalMinor: order.SubtotalMinor,
		TaxesMinor:    order.TaxesMinor,
		ShippingMinor: order.ShippingMinor,
		TotalMinor:    order.TotalMinor,
		Customer: customerRecord{
			Name:    order.Customer.Name,
			Email:   order.Customer.Email,
			Phone:   order.Customer.Phone,
			Address: order.Customer.Address,
		},
		Payment: paymentRecord{
			Method:    order.Payment.Method,
			Reference: order.Payment.Reference,
		},
		Notes:     order.Notes,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}

func fromRecord(record orderRecord) domain.Order {
	items := make([]domain.OrderItem, 0, len(record.Items))
	for _, item := range record.Items {
		label := item.VariantLabel
		// Одноразовая гигиена данных: старые записи хранили label в variant_title.
		if label == "" && item.LegacyLabel != "" {
			label = item.LegacyLabel
		}
		items = append(items, domain.OrderItem{
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Title:          item.Title,
			UnitPriceMinor: item.UnitPriceMinor,
			Qty:            item.Qty,
			ImageURL:       item.ImageURL,
			VariantLabel:   label,
		})
	}
	return domain.Order{
		ID:            record.ID,
		OwnerID:       record.OwnerID,
		Status:        domain.OrderStatus(record.Status),
		Items:         items,
		SubtotalMinor: record.SubtotalMinor,
		TaxesMinor:    record.TaxesMinor,
		ShippingMinor: record.ShippingMinor,
		TotalMinor:    record.TotalMinor,
		Customer: domain.CustomerInfo{
			Name:    record.Customer.Name,
			Email:   record.Customer.Email,
			Phone:   record.Customer.Phone,
			Address: record.Customer.Address,
		},
		Payment: domain.PaymentInfo{
			Method:    record.Payment.Method,
			Reference: record.Payment.Reference,
		},
		Notes:     record.Notes,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
