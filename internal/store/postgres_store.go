// internal/store/postgres_store.go
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgChangeChannel = "secureauth_store_changes"

// PostgresStore keeps the key-value map in a single table and carries the
// change feed over LISTEN/NOTIFY.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS credential_store (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure credential_store table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM credential_store WHERE key = $1`, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres get failed: %w", err)
	}
	return value, true, nil
}

func (p *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO credential_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("postgres set failed: %w", err)
	}
	p.notify(ctx, key)
	return nil
}

func (p *PostgresStore) Remove(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM credential_store WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("postgres remove failed: %w", err)
	}
	p.notify(ctx, key)
	return nil
}

func (p *PostgresStore) Watch(ctx context.Context) (<-chan Change, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgChangeChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to LISTEN: %w", err)
	}

	ch := make(chan Change, 16)
	go func() {
		defer close(ch)
		defer conn.Release()
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				return // ctx cancelled or connection lost
			}
			select {
			case ch <- Change{Key: n.Payload}:
			default:
			}
		}
	}()

	return ch, nil
}

func (p *PostgresStore) notify(ctx context.Context, key string) {
	// Best-effort: a missed notification only delays a resync.
	_, _ = p.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, pgChangeChannel, key)
}
