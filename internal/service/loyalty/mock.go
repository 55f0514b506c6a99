package loyalty

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MockService — конфигурируемая заглушка LoyaltyService для тестов и
// локальной разработки. Начисляет один балл за каждые 100 минорных единиц.
type MockService struct {
	mu sync.Mutex

	EarnErr error

	EarnCalls  int
	LastOwner  string
	LastOrder  string
	TotalEarns int32
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{}
}

// EarnPoints считает вызовы и возвращает заранее настроенную ошибку либо баллы.
func (m *MockService) EarnPoints(ownerID string, accrual domain.LoyaltyAccrual) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EarnCalls++
	m.LastOwner = ownerID
	m.LastOrder = accrual.OrderID
	if m.EarnErr != nil {
		return 0, m.EarnErr
	}

	points := int32(accrual.AmountMinor / 100)
	m.TotalEarns += points
	return points, nil
}

var _ domain.LoyaltyService = (*MockService)(nil)
