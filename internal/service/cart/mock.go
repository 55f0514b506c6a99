package cart

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MockService — конфигурируемая заглушка CartService для тестов.
type MockService struct {
	mu sync.Mutex

	ReduceErr error
	ClearErr  error

	ReduceCalls int
	ClearCalls  int
	LastItems   []domain.OrderItem
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{}
}

// ReduceStockCeilings запоминает позиции и возвращает настроенную ошибку.
func (m *MockService) ReduceStockCeilings(items []domain.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReduceCalls++
	m.LastItems = append([]domain.OrderItem(nil), items...)
	return m.ReduceErr
}

// Clear считает вызовы и возвращает настроенную ошибку.
func (m *MockService) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ClearCalls++
	return m.ClearErr
}

var _ domain.CartService = (*MockService)(nil)
