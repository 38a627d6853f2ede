// Package database is the Postgres side of the arena: the coin ledger, the
// house fee accumulator, the match snapshot mirror and the action history.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool for dsn and pings it before returning.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           UUID PRIMARY KEY,
	username     TEXT NOT NULL DEFAULT '',
	coin_balance BIGINT NOT NULL DEFAULT 0 CHECK (coin_balance >= 0),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS coin_transactions (
	id         BIGSERIAL PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES users (id),
	amount     BIGINT NOT NULL,
	balance    BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS house_fees (
	room_code  TEXT PRIMARY KEY,
	total      BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS matches (
	id                 UUID PRIMARY KEY,
	room_code          TEXT NOT NULL,
	mode               TEXT NOT NULL,
	phase              TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'in_progress',
	wager              BIGINT NOT NULL DEFAULT 0,
	snapshot           JSONB NOT NULL,
	settlement_pending BOOLEAN NOT NULL DEFAULT FALSE,
	start_time         TIMESTAMPTZ,
	end_time           TIMESTAMPTZ,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS match_actions (
	match_id       UUID NOT NULL,
	action_index   INT NOT NULL,
	room_code      TEXT NOT NULL DEFAULT '',
	actor_user_id  UUID,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}'::jsonb,
	recorded_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (match_id, action_index)
);
`

// EnsureSchema creates the arena tables when they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
