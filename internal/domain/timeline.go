package domain

import "time"

// TimelineEvent фиксирует один переход статуса заказа для истории поддержки.
type TimelineEvent struct {
	OrderID  string
	From     OrderStatus
	To       OrderStatus
	Reason   string
	Occurred time.Time
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}
