package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists metadata documents in a JSONB key-value table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Put upserts the document at key.
func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO photo_metadata (key, value, updated_at) VALUES ($1, $2::jsonb, now())
         ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, string(value)); err != nil {
		return fmt.Errorf("upsert metadata %s: %w", key, err)
	}
	return nil
}

// Get loads the document at key.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value::text FROM photo_metadata WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select metadata %s: %w", key, err)
	}
	return []byte(value), nil
}

// Keys returns all keys ordered lexicographically.
func (s *PostgresStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key FROM photo_metadata ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query metadata keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan metadata keys: %w", err)
	}
	return keys, nil
}

// Close releases database resources.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
