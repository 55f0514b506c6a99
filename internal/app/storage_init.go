package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/orders"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// initOrderBackend выбирает бэкенд документов заказов: PostgreSQL при
// заданном DSN, иначе in-memory KV. Возвращает также Store для health check
// и закрытия (nil для памяти).
func initOrderBackend(ctx context.Context, dsn string, logger *log.Entry) (orders.Backend, *postgres.Store, error) {
	if dsn == "" {
		logger.Info("using in-memory order storage")
		return memory.NewKV(), nil, nil
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	logger.Info("using postgres order storage")
	return postgres.NewKV(store), store, nil
}
