package orders

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Backend — key-value контракт, под которым живёт репозиторий заказов.
// Load возвращает nil payload без ошибки, если ключа нет.
type Backend interface {
	Load(key string) ([]byte, error)
	Store(key string, payload []byte) error
}

// OwnerKey строит ключ документа заказов для владельца. Пустой ownerID — гость.
func OwnerKey(ownerID string) string {
	if ownerID == "" {
		return "orders:guest"
	}
	return "orders:user:" + ownerID
}

// Repository хранит канонический список заказов активного владельца.
// Весь список персистится одним JSON-документом на ключ владельца,
// новые заказы первыми. Смена владельца перечитывает документ.
type Repository struct {
	backend Backend
	logger  *log.Entry

	mu       sync.RWMutex
	ownerKey string
	orders   []domain.Order
}

// NewRepository создаёт репозиторий, скоупленный на гостя.
func NewRepository(backend Backend, logger *log.Entry) (*Repository, error) {
	if logger == nil {
		logger = log.New().WithField("component", "order-repository")
	}
	repo := &Repository{
		backend: backend,
		logger:  logger,
	}
	if err := repo.SwitchOwner(""); err != nil {
		return nil, err
	}
	return repo, nil
}

// SwitchOwner переключает активного владельца и перечитывает его заказы.
func (r *Repository) SwitchOwner(ownerID string) error {
	key := OwnerKey(ownerID)

	payload, err := r.backend.Load(key)
	if err != nil {
		return fmt.Errorf("%w: load %s: %v", domain.ErrPersistenceFailure, key, err)
	}
	list, err := decodeOrders(payload)
	if err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrPersistenceFailure, key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ownerKey = key
	r.orders = list
	return nil
}

// List возвращает копию списка заказов, новые первыми.
func (r *Repository) List() ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Order(nil), r.orders...), nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *Repository) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.ID == id {
			return order, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

// Create сохраняет новый заказ в начало списка, если ID ещё не занят.
func (r *Repository) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.orders {
		if existing.ID == order.ID {
			return domain.ErrOrderExists
		}
	}

	next := append([]domain.Order{order}, r.orders...)
	if err := r.flush(next); err != nil {
		return err
	}
	r.orders = next
	return nil
}

// UpdateStatus меняет статус заказа одной персистентной записью.
func (r *Repository) UpdateStatus(id string, status domain.OrderStatus) (domain.Order, error) {
	return r.mutate(id, func(order *domain.Order) {
		order.Status = status
	})
}

// UpdateNotes меняет заметки заказа независимо от статуса.
func (r *Repository) UpdateNotes(id, notes string) (domain.Order, error) {
	return r.mutate(id, func(order *domain.Order) {
		order.Notes = notes
	})
}

// Remove удаляет заказ из списка владельца.
func (r *Repository) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, order := range r.orders {
		if order.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrOrderNotFound
	}

	next := make([]domain.Order, 0, len(r.orders)-1)
	next = append(next, r.orders[:idx]...)
	next = append(next, r.orders[idx+1:]...)
	if err := r.flush(next); err != nil {
		return err
	}
	r.orders = next
	return nil
}

func (r *Repository) mutate(id string, fn func(*domain.Order)) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, order := range r.orders {
		if order.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	next := append([]domain.Order(nil), r.orders...)
	fn(&next[idx])
	next[idx].UpdatedAt = time.Now().UTC()

	if err := r.flush(next); err != nil {
		return domain.Order{}, err
	}
	r.orders = next
	return next[idx], nil
}

// flush персистит весь документ владельца. Вызывается под mu.
func (r *Repository) flush(list []domain.Order) error {
	payload, err := encodeOrders(list)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	if err := r.backend.Store(r.ownerKey, payload); err != nil {
		r.logger.WithError(err).WithField("key", r.ownerKey).Error("failed to persist order document")
		return fmt.Errorf("%w: store %s: %v", domain.ErrPersistenceFailure, r.ownerKey, err)
	}
	return nil
}

var _ domain.OrderRepository = (*Repository)(nil)
