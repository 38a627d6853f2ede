package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/arena/internal/ledger"
	"github.com/jason-s-yu/arena/internal/models"
)

// Ledger keeps coin balances in the users table. Every movement is also
// written to coin_transactions inside the same transaction.
type Ledger struct {
	pool            *pgxpool.Pool
	startingBalance int64
}

var (
	_ ledger.Ledger         = (*Ledger)(nil)
	_ ledger.FeeAccumulator = (*Ledger)(nil)
)

// NewLedger wraps pool. New accounts open with startingBalance coins.
func NewLedger(pool *pgxpool.Pool, startingBalance int64) *Ledger {
	return &Ledger{pool: pool, startingBalance: startingBalance}
}

// EnsureAccount creates the user's row on first sight and keeps the display
// name current. Existing balances are never touched.
func (l *Ledger) EnsureAccount(ctx context.Context, userID uuid.UUID, username string) error {
	q := `
		INSERT INTO users (id, username, coin_balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username
	`
	if _, err := l.pool.Exec(ctx, q, userID, username, l.startingBalance); err != nil {
		return fmt.Errorf("ensure account %s: %w", userID, err)
	}
	return nil
}

// WithinTx implements ledger.Ledger.
func (l *Ledger) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return pgx.BeginTxFunc(ctx, l.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

// AddFee implements ledger.FeeAccumulator.
func (l *Ledger) AddFee(ctx context.Context, roomCode string, amount int64) error {
	q := `
		INSERT INTO house_fees (room_code, total)
		VALUES ($1, $2)
		ON CONFLICT (room_code)
		DO UPDATE SET total = house_fees.total + EXCLUDED.total, updated_at = NOW()
	`
	if _, err := l.pool.Exec(ctx, q, roomCode, amount); err != nil {
		return fmt.Errorf("add house fee for %s: %w", roomCode, err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Debit(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	var bal int64
	q := `UPDATE users SET coin_balance = coin_balance - $2 WHERE id = $1 AND coin_balance >= $2 RETURNING coin_balance`
	err := t.tx.QueryRow(ctx, q, userID, amount).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, berr := t.Balance(ctx, userID); berr != nil {
			return 0, berr
		}
		return 0, fmt.Errorf("debit %d from %s: %w", amount, userID, models.ErrInsufficientFunds)
	}
	if err != nil {
		return 0, fmt.Errorf("debit %d from %s: %w", amount, userID, err)
	}
	return bal, t.record(ctx, userID, -amount, bal)
}

func (t *pgTx) Credit(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	var bal int64
	q := `UPDATE users SET coin_balance = coin_balance + $2 WHERE id = $1 RETURNING coin_balance`
	err := t.tx.QueryRow(ctx, q, userID, amount).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("credit %s: %w", userID, models.ErrUnknownUser)
	}
	if err != nil {
		return 0, fmt.Errorf("credit %d to %s: %w", amount, userID, err)
	}
	return bal, t.record(ctx, userID, amount, bal)
}

func (t *pgTx) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var bal int64
	err := t.tx.QueryRow(ctx, `SELECT coin_balance FROM users WHERE id = $1`, userID).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("balance of %s: %w", userID, models.ErrUnknownUser)
	}
	if err != nil {
		return 0, fmt.Errorf("balance of %s: %w", userID, err)
	}
	return bal, nil
}

func (t *pgTx) record(ctx context.Context, userID uuid.UUID, amount, balance int64) error {
	q := `INSERT INTO coin_transactions (user_id, amount, balance) VALUES ($1, $2, $3)`
	if _, err := t.tx.Exec(ctx, q, userID, amount, balance); err != nil {
		return fmt.Errorf("record coin transaction for %s: %w", userID, err)
	}
	return nil
}
