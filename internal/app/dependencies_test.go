package app

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestNewDependencies(t *testing.T) {
	logger := log.WithField("test", "dependencies")
	deps, err := NewDependencies(memory.NewKV(), logger)
	if err != nil {
		t.Fatalf("NewDependencies failed: %v", err)
	}

	if deps.Repo == nil {
		t.Error("Repo should not be nil")
	}
	if deps.Timeline == nil {
		t.Error("Timeline should not be nil")
	}
	if deps.Queue == nil {
		t.Error("Queue should not be nil")
	}
	if deps.Sink == nil {
		t.Error("Sink should not be nil")
	}
	if deps.Gateway == nil {
		t.Error("Gateway should not be nil")
	}
	if deps.Reconciler == nil {
		t.Error("Reconciler should not be nil")
	}
	if deps.Lifecycle == nil {
		t.Error("Lifecycle should not be nil")
	}
	if deps.Checkout == nil {
		t.Error("Checkout should not be nil")
	}
	if deps.Logger == nil {
		t.Error("Logger should not be nil")
	}
}

func TestNewDependencies_NilArguments(t *testing.T) {
	deps, err := NewDependencies(nil, nil)
	if err != nil {
		t.Fatalf("NewDependencies failed: %v", err)
	}

	if deps.Logger == nil {
		t.Error("Logger should be initialized even when nil is passed")
	}
	if deps.Repo == nil {
		t.Error("Repo should fall back to in-memory backend")
	}
}

func TestNewDependencies_RepoWorks(t *testing.T) {
	deps, err := NewDependencies(memory.NewKV(), nil)
	if err != nil {
		t.Fatalf("NewDependencies failed: %v", err)
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:     "order-deps-1",
		Status: domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ProductID: "prod-a", Title: "Laptop", Qty: 1, UnitPriceMinor: 199900},
		},
		SubtotalMinor: 199900,
		TotalMinor:    199900,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := deps.Repo.Create(order); err != nil {
		t.Errorf("Repo.Create failed: %v", err)
	}
}

func TestNewDependencies_IndependentInstances(t *testing.T) {
	deps1, err := NewDependencies(memory.NewKV(), nil)
	if err != nil {
		t.Fatalf("NewDependencies failed: %v", err)
	}
	deps2, err := NewDependencies(memory.NewKV(), nil)
	if err != nil {
		t.Fatalf("NewDependencies failed: %v", err)
	}

	if deps1 == deps2 {
		t.Error("NewDependencies should create independent instances")
	}
	if deps1.Repo == deps2.Repo {
		t.Error("Repo instances should be independent")
	}
}
