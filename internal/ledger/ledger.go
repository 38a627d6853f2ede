// Package ledger defines the narrow port the match core uses to move coins.
package ledger

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_ledger.go github.com/jason-s-yu/arena/internal/ledger Ledger,Tx,FeeAccumulator

// Tx is one atomic unit of work against player balances. Nothing it does is
// visible to anyone else until the surrounding WithinTx returns nil.
type Tx interface {
	// Debit removes amount from the user's balance and returns the new
	// balance. It fails with models.ErrInsufficientFunds when the balance is
	// too small.
	Debit(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	// Credit adds amount to the user's balance and returns the new balance.
	Credit(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Ledger runs fn inside a unit of work. Any error returned by fn rolls back
// every call made through the Tx.
type Ledger interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// FeeAccumulator receives the house share of a settled match.
type FeeAccumulator interface {
	AddFee(ctx context.Context, roomCode string, amount int64) error
}
