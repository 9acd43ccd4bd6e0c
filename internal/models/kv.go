package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// KVStore is the persistence collaborator used for the metrics snapshot and
// the cached analysis configuration. Implementations must treat read failures
// as "no data" friendly: callers check the found flag, not sentinel errors.
type KVStore interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	PutString(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// KVService is the Postgres-backed KVStore.
type KVService struct {
	pool *pgxpool.Pool
}

func NewKVService(pool *pgxpool.Pool) *KVService {
	return &KVService{pool: pool}
}

func (s *KVService) GetString(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM app_kv WHERE key = $1`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var value string
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read key %q: %w", key, err)
	}

	return value, true, nil
}

func (s *KVService) PutString(ctx context.Context, key, value string) error {
	insert := `INSERT INTO app_kv (key, value, updated_at) VALUES ($1, $2, NOW())`
	update := `UPDATE app_kv SET value = $2, updated_at = NOW() WHERE key = $1`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, insert, key, value)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			_, err = s.pool.Exec(ctx, update, key, value)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}

	return nil
}

func (s *KVService) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM app_kv WHERE key = $1`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := s.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}

	return nil
}
