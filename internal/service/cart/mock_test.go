package cart

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestMockService_ReduceStockCeilings(t *testing.T) {
	svc := NewMockService()

	items := []domain.OrderItem{{ProductID: "prod-a", Qty: 2}}
	if err := svc.ReduceStockCeilings(items); err != nil {
		t.Fatalf("reduce failed: %v", err)
	}
	if svc.ReduceCalls != 1 || len(svc.LastItems) != 1 || svc.LastItems[0].ProductID != "prod-a" {
		t.Fatalf("unexpected call bookkeeping: %+v", svc)
	}

	// Mock хранит копию: мутация исходного среза её не трогает.
	items[0].ProductID = "mutated"
	if svc.LastItems[0].ProductID != "prod-a" {
		t.Fatalf("LastItems should be a copy, got %+v", svc.LastItems)
	}
}

func TestMockService_ConfiguredErrors(t *testing.T) {
	svc := NewMockService()
	svc.ReduceErr = errors.New("cart down")
	svc.ClearErr = errors.New("cart down")

	if err := svc.ReduceStockCeilings(nil); err == nil {
		t.Fatal("expected configured reduce error")
	}
	if err := svc.Clear(); err == nil {
		t.Fatal("expected configured clear error")
	}
	if svc.ReduceCalls != 1 || svc.ClearCalls != 1 {
		t.Fatalf("calls should still be counted: %+v", svc)
	}
}
