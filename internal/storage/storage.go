package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that a key has no value in the metadata store.
var ErrNotFound = errors.New("metadata not found")

// Store is the key-value surface the photo catalog relies on. Values are JSON documents.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Keys(ctx context.Context) ([]string, error)
	Close()
}

// Config selects and configures a backing store.
type Config struct {
	DatabaseURL string
	RedisURL    string
	Namespace   string
}

// NewStore picks Redis, then PostgreSQL, then memory, depending on what is configured.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch {
	case cfg.RedisURL != "":
		return NewRedisStore(ctx, cfg.RedisURL, cfg.Namespace)
	case cfg.DatabaseURL != "":
		return newPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return NewInMemoryStore(), nil
	}
}

func newPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS photo_metadata (
        key TEXT PRIMARY KEY,
        value JSONB NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`)
	if err != nil {
		return fmt.Errorf("create photo_metadata table: %w", err)
	}
	return nil
}
