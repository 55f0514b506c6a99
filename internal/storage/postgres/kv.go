package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/storage/orders"
)

const kvQueryTimeout = 5 * time.Second

// KV хранит документы заказов в таблице order_documents: один JSONB-документ
// на владельца. Реализует контракт бэкенда репозитория заказов.
type KV struct {
	store *Store
}

// NewKV создаёт бэкенд поверх открытого Store.
func NewKV(store *Store) *KV {
	return &KV{store: store}
}

// Load возвращает документ по ключу владельца или nil, если документа ещё нет.
func (kv *KV) Load(key string) ([]byte, error) {
	if kv == nil || kv.store == nil || kv.store.db == nil {
		return nil, fmt.Errorf("postgres kv backend is not initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), kvQueryTimeout)
	defer cancel()

	var payload []byte
	err := kv.store.db.QueryRowContext(ctx, `
		SELECT payload
		FROM order_documents
		WHERE owner_key = $1
	`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load order document %q: %w", key, err)
	}
	return payload, nil
}

// Store записывает документ по ключу владельца (upsert).
func (kv *KV) Store(key string, payload []byte) error {
	if kv == nil || kv.store == nil || kv.store.db == nil {
		return fmt.Errorf("postgres kv backend is not initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), kvQueryTimeout)
	defer cancel()

	_, err := kv.store.db.ExecContext(ctx, `
		INSERT INTO order_documents (owner_key, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (owner_key)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`, key, payload)
	if err != nil {
		return fmt.Errorf("store order document %q: %w", key, err)
	}
	return nil
}

var _ orders.Backend = (*KV)(nil)
