package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	statusPending = "pending"
	statusSent    = "sent"
	statusFailed  = "failed"
)

// notificationRecord хранит уведомление и служебные поля.
type notificationRecord struct {
	msg       domain.NotificationMessage
	status    string
	updatedAt time.Time
}

// notificationQueueInMemory — in-memory очередь уведомлений на публикацию.
type notificationQueueInMemory struct {
	mu      sync.RWMutex
	records map[string]*notificationRecord
}

// NewNotificationQueue создаёт in-memory реализацию NotificationQueue.
func NewNotificationQueue() domain.NotificationQueue {
	return &notificationQueueInMemory{records: make(map[string]*notificationRecord)}
}

// Enqueue сохраняет уведомление со статусом `pending` и присваивает ему ID.
func (q *notificationQueueInMemory) Enqueue(msg domain.NotificationMessage) (domain.NotificationMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	q.records[msg.ID] = &notificationRecord{
		msg:       msg,
		status:    statusPending,
		updatedAt: msg.CreatedAt,
	}
	return msg, nil
}

// PullPending возвращает до limit pending-уведомлений, старые первыми.
func (q *notificationQueueInMemory) PullPending(limit int) ([]domain.NotificationMessage, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	pending := make([]domain.NotificationMessage, 0, limit)
	for _, record := range q.records {
		if record.status == statusPending {
			pending = append(pending, record.msg)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID < pending[j].ID
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// Stats возвращает размер backlog и возраст самой старой pending-записи.
func (q *notificationQueueInMemory) Stats() (domain.QueueStats, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := domain.QueueStats{}
	for _, record := range q.records {
		if record.status != statusPending {
			continue
		}
		stats.PendingCount++
		if stats.OldestPendingAt.IsZero() || record.msg.CreatedAt.Before(stats.OldestPendingAt) {
			stats.OldestPendingAt = record.msg.CreatedAt
		}
	}
	return stats, nil
}

// MarkSent помечает уведомление доставленным.
func (q *notificationQueueInMemory) MarkSent(id string) error {
	return q.mark(id, statusSent)
}

// MarkFailed помечает уведомление окончательно не доставленным.
func (q *notificationQueueInMemory) MarkFailed(id string) error {
	return q.mark(id, statusFailed)
}

func (q *notificationQueueInMemory) mark(id, status string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	record, ok := q.records[id]
	if !ok {
		return domain.ErrNotificationNotFound
	}
	record.status = status
	record.updatedAt = time.Now().UTC()
	return nil
}

// DeleteFinished удаляет до limit завершённых записей старше before.
func (q *notificationQueueInMemory) DeleteFinished(before time.Time, limit int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}

	deleted := 0
	for id, record := range q.records {
		if deleted >= limit {
			break
		}
		if record.status == statusPending {
			continue
		}
		if record.updatedAt.After(before) {
			continue
		}
		delete(q.records, id)
		deleted++
	}
	return deleted, nil
}

var _ domain.NotificationQueue = (*notificationQueueInMemory)(nil)
