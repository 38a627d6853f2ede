package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
)

// DefaultStartingBalance is what an unseen user holds in the in-memory ledger.
const DefaultStartingBalance int64 = 1000

// Memory is an in-process Ledger and FeeAccumulator. Units of work are
// serialized and staged, so an aborted one leaves no trace.
type Memory struct {
	mu              sync.Mutex
	balances        map[uuid.UUID]int64
	fees            map[string]int64
	startingBalance int64
}

// NewMemory creates an in-memory ledger where unknown users start with
// startingBalance coins.
func NewMemory(startingBalance int64) *Memory {
	return &Memory{
		balances:        make(map[uuid.UUID]int64),
		fees:            make(map[string]int64),
		startingBalance: startingBalance,
	}
}

// SetBalance overwrites a user's balance.
func (m *Memory) SetBalance(userID uuid.UUID, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = amount
}

// BalanceOf returns the committed balance of a user.
func (m *Memory) BalanceOf(userID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(userID)
}

// HouseTotal returns every fee accrued so far.
func (m *Memory) HouseTotal() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, v := range m.fees {
		total += v
	}
	return total
}

func (m *Memory) balanceLocked(userID uuid.UUID) int64 {
	if bal, ok := m.balances[userID]; ok {
		return bal
	}
	return m.startingBalance
}

// WithinTx implements Ledger.
func (m *Memory) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{parent: m, staged: make(map[uuid.UUID]int64)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for id, bal := range tx.staged {
		m.balances[id] = bal
	}
	return nil
}

// AddFee implements FeeAccumulator.
func (m *Memory) AddFee(_ context.Context, roomCode string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("negative fee %d", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fees[roomCode] += amount
	return nil
}

type memoryTx struct {
	parent *Memory
	staged map[uuid.UUID]int64
}

func (t *memoryTx) current(userID uuid.UUID) int64 {
	if bal, ok := t.staged[userID]; ok {
		return bal
	}
	return t.parent.balanceLocked(userID)
}

func (t *memoryTx) Debit(_ context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("negative debit %d", amount)
	}
	bal := t.current(userID)
	if bal < amount {
		return bal, fmt.Errorf("user %s holds %d, needs %d: %w", userID, bal, amount, models.ErrInsufficientFunds)
	}
	t.staged[userID] = bal - amount
	return bal - amount, nil
}

func (t *memoryTx) Credit(_ context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("negative credit %d", amount)
	}
	bal := t.current(userID) + amount
	t.staged[userID] = bal
	return bal, nil
}

func (t *memoryTx) Balance(_ context.Context, userID uuid.UUID) (int64, error) {
	return t.current(userID), nil
}
