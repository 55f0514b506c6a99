package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// timelineStore держит хронику переходов статусов в памяти, по заказу.
type timelineStore struct {
	mu     sync.RWMutex
	events map[string][]domain.TimelineEvent
}

// NewTimelineRepository возвращает in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineStore{events: make(map[string][]domain.TimelineEvent)}
}

// Append добавляет событие в хронику заказа.
func (r *timelineStore) Append(event domain.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.OrderID] = append(r.events[event.OrderID], event)
	return nil
}

// List возвращает события заказа в порядке добавления.
func (r *timelineStore) List(orderID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.TimelineEvent(nil), r.events[orderID]...), nil
}

var _ domain.TimelineRepository = (*timelineStore)(nil)
