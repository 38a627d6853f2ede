package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCommitsWholeUnit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(100)
	a, b := uuid.New(), uuid.New()

	err := m.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.Debit(ctx, a, 40); err != nil {
			return err
		}
		_, err := tx.Credit(ctx, b, 40)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, int64(60), m.BalanceOf(a))
	assert.Equal(t, int64(140), m.BalanceOf(b))
}

func TestMemoryRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(100)
	rich, poor := uuid.New(), uuid.New()
	m.SetBalance(poor, 10)

	err := m.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.Debit(ctx, rich, 50); err != nil {
			return err
		}
		_, err := tx.Debit(ctx, poor, 50)
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientFunds))

	assert.Equal(t, int64(100), m.BalanceOf(rich), "earlier debit must be reverted")
	assert.Equal(t, int64(10), m.BalanceOf(poor))
}

func TestMemoryTxSeesOwnWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(30)
	u := uuid.New()

	err := m.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.Debit(ctx, u, 20)
		require.NoError(t, err)
		bal, err := tx.Balance(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, int64(10), bal)
		_, err = tx.Debit(ctx, u, 20)
		return err
	})
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	assert.Equal(t, int64(30), m.BalanceOf(u))
}

func TestMemoryFees(t *testing.T) {
	m := NewMemory(0)
	require.NoError(t, m.AddFee(context.Background(), "ABCD-1234", 20))
	require.NoError(t, m.AddFee(context.Background(), "WXYZ-0000", 5))
	assert.Error(t, m.AddFee(context.Background(), "WXYZ-0000", -1))
	assert.Equal(t, int64(25), m.HouseTotal())
}
