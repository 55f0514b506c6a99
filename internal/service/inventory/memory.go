package inventory

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MemoryGateway — in-memory реализация InventoryGateway для локальной
// разработки и тестов. Считает обращения, чтобы тесты могли проверять
// отсутствие лишних вызовов склада.
type MemoryGateway struct {
	mu       sync.RWMutex
	products map[string]domain.Product

	// Настраиваемые ошибки для имитации сбоев склада.
	GetErr error
	SetErr error

	GetCalls int
	SetCalls int
}

// NewMemoryGateway возвращает пустой склад.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{products: make(map[string]domain.Product)}
}

// Seed кладёт товар на склад, перезаписывая существующий.
func (g *MemoryGateway) Seed(product domain.Product) {
	g.mu.Lock()
	defer g.mu.Unlock()

	product.IsAvailable = product.Stock > 0
	g.products[product.ID] = cloneProduct(product)
}

// GetProduct возвращает товар или ErrProductNotFound.
func (g *MemoryGateway) GetProduct(productID string) (domain.Product, error) {
	g.mu.Lock()
	g.GetCalls++
	err := g.GetErr
	g.mu.Unlock()
	if err != nil {
		return domain.Product{}, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	product, ok := g.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return cloneProduct(product), nil
}

// SetProductStock записывает новый сток товара и пересчитывает доступность.
func (g *MemoryGateway) SetProductStock(productID string, newStock int32) (domain.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.SetCalls++
	if g.SetErr != nil {
		return domain.Product{}, g.SetErr
	}

	product, ok := g.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	product.Stock = newStock
	product.IsAvailable = newStock > 0
	g.products[productID] = product
	return cloneProduct(product), nil
}

// SetVariantStock записывает новый сток варианта товара.
func (g *MemoryGateway) SetVariantStock(productID, variantID string, newStock int32) (domain.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.SetCalls++
	if g.SetErr != nil {
		return domain.Product{}, g.SetErr
	}

	product, ok := g.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	for i := range product.Variants {
		if product.Variants[i].ID == variantID {
			product.Variants[i].Stock = newStock
			g.products[productID] = product
			return cloneProduct(product), nil
		}
	}
	return domain.Product{}, domain.ErrVariantNotFound
}

// Remove убирает товар со склада, имитируя его исчезновение из каталога.
func (g *MemoryGateway) Remove(productID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.products, productID)
}

// StockOf возвращает текущий сток товара (или варианта) — helper для тестов.
func (g *MemoryGateway) StockOf(productID, variantID string) (int32, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	product, ok := g.products[productID]
	if !ok {
		return 0, false
	}
	if variantID == "" {
		return product.Stock, true
	}
	for _, v := range product.Variants {
		if v.ID == variantID {
			return v.Stock, true
		}
	}
	return 0, false
}

// Calls возвращает суммарное количество обращений к складу.
func (g *MemoryGateway) Calls() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.GetCalls + g.SetCalls
}

func cloneProduct(p domain.Product) domain.Product {
	clone := p
	clone.Variants = append([]domain.Variant(nil), p.Variants...)
	return clone
}

var _ domain.InventoryGateway = (*MemoryGateway)(nil)
