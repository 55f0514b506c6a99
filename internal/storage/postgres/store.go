package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS order_documents (
    owner_key  TEXT PRIMARY KEY,
    payload    JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// settings — параметры пула соединений.
type settings struct {
	connTimeout     time.Duration
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	connMaxIdleTime time.Duration
}

func defaultSettings() settings {
	return settings{
		connTimeout:     5 * time.Second,
		maxOpenConns:    25,
		maxIdleConns:    25,
		connMaxLifetime: 30 * time.Minute,
		connMaxIdleTime: 5 * time.Minute,
	}
}

// Option настраивает пул соединений при открытии Store.
type Option func(*settings)

// WithConnTimeout задаёт таймаут на ping и служебные запросы.
func WithConnTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		if timeout > 0 {
			s.connTimeout = timeout
		}
	}
}

// WithMaxConns задаёт верхние границы пула.
func WithMaxConns(open, idle int) Option {
	return func(s *settings) {
		if open > 0 {
			s.maxOpenConns = open
		}
		if idle > 0 {
			s.maxIdleConns = idle
		}
	}
}

// Store — подключение к PostgreSQL, под которым живут документы заказов.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

// Open открывает пул соединений и убеждается, что база отвечает.
func Open(ctx context.Context, dsn string, options ...Option) (*Store, error) {
	cfg := defaultSettings()
	for _, option := range options {
		option(&cfg)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.maxOpenConns)
	db.SetMaxIdleConns(cfg.maxIdleConns)
	db.SetConnMaxLifetime(cfg.connMaxLifetime)
	db.SetConnMaxIdleTime(cfg.connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.connTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db, timeout: cfg.connTimeout}, nil
}

// DB отдаёт низкоуровневый *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет, что база всё ещё отвечает.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// EnsureSchema создаёт таблицу документов заказов, если её ещё нет.
// Схема из одной таблицы не оправдывает отдельный механизм миграций.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.db.ExecContext(execCtx, schemaDDL); err != nil {
		return fmt.Errorf("ensure order_documents table: %w", err)
	}
	return nil
}

// Close закрывает пул. Безопасен на nil.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
