package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/cache"
	"github.com/jason-s-yu/arena/internal/ledger"
	"github.com/jason-s-yu/arena/internal/ledger/mocks"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type alertRecorder struct {
	mu     sync.Mutex
	alerts []cache.ReconciliationAlert
}

func (a *alertRecorder) PublishReconciliationAlert(_ context.Context, alert cache.ReconciliationAlert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return nil
}

func newCoordinator(t *testing.T, l ledger.Ledger, fees ledger.FeeAccumulator, alerts AlertSink) *Coordinator {
	t.Helper()
	logger, _ := test.NewNullLogger()
	c, err := New(&Config{
		Ledger:      l,
		Fees:        fees,
		Alerts:      alerts,
		Logger:      logger,
		HouseRate:   fivePercent,
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
	})
	require.NoError(t, err)
	c.sleep = func(context.Context, time.Duration) {}
	return c
}

func TestNewRejectsBadConfig(t *testing.T) {
	logger, _ := test.NewNullLogger()
	mem := ledger.NewMemory(0)

	_, err := New(nil)
	assert.Error(t, err)
	_, err = New(&Config{Fees: mem, Logger: logger})
	assert.Error(t, err)
	_, err = New(&Config{Ledger: mem, Fees: mem, Logger: logger, HouseRate: decimal.NewFromInt(1)})
	assert.Error(t, err)
	_, err = New(&Config{Ledger: mem, Fees: mem, Logger: logger, HouseRate: decimal.RequireFromString("-0.1")})
	assert.Error(t, err)
}

func TestSettleAgainstMemoryLedger(t *testing.T) {
	mem := ledger.NewMemory(0)
	c := newCoordinator(t, mem, mem, nil)
	players := ids(2)

	out := c.Settle(context.Background(), Input{
		MatchID:  uuid.New(),
		RoomCode: "ABCD-1234",
		Wager:    100,
		Players:  players,
		Winners:  players[:1],
		Kind:     KindWinners,
		Reason:   models.ReasonTimeUp,
	})

	assert.False(t, out.Pending)
	assert.True(t, out.HasWager)
	assert.Equal(t, int64(190), mem.BalanceOf(players[0]))
	assert.Equal(t, int64(0), mem.BalanceOf(players[1]))
	assert.Equal(t, int64(10), mem.HouseTotal())
	assert.Equal(t, int64(90), out.Net[players[0]])
	assert.Equal(t, int64(-100), out.Net[players[1]])
}

func TestSettleZeroWagerTouchesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := mocks.NewMockLedger(ctrl)
	fees := mocks.NewMockFeeAccumulator(ctrl)
	c := newCoordinator(t, l, fees, nil)
	players := ids(2)

	out := c.Settle(context.Background(), Input{Players: players, Winners: players[:1], Kind: KindWinners})
	assert.False(t, out.HasWager)
	assert.False(t, out.Pending)
}

func TestSettleAllQuitOnlyAccruesFee(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := mocks.NewMockLedger(ctrl)
	fees := mocks.NewMockFeeAccumulator(ctrl)
	fees.EXPECT().AddFee(gomock.Any(), "ROOM-0001", int64(300)).Return(nil).Times(1)
	c := newCoordinator(t, l, fees, nil)

	out := c.Settle(context.Background(), Input{
		RoomCode: "ROOM-0001",
		Wager:    100,
		Players:  ids(3),
		Kind:     KindAllQuit,
		Reason:   models.ReasonAllQuit,
	})
	assert.False(t, out.Pending)
	assert.Equal(t, int64(300), out.HouseFee)
}

func TestSettleRetriesTransientFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := mocks.NewMockLedger(ctrl)
	fees := mocks.NewMockFeeAccumulator(ctrl)
	tx := mocks.NewMockTx(ctrl)
	players := ids(2)

	gomock.InOrder(
		l.EXPECT().WithinTx(gomock.Any(), gomock.Any()).Return(errors.New("connection reset")),
		l.EXPECT().WithinTx(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, fn func(ledger.Tx) error) error { return fn(tx) }),
	)
	tx.EXPECT().Credit(gomock.Any(), players[1], int64(190)).Return(int64(190), nil)
	fees.EXPECT().AddFee(gomock.Any(), gomock.Any(), int64(10)).Return(nil)

	c := newCoordinator(t, l, fees, nil)
	out := c.Settle(context.Background(), Input{
		Wager:   100,
		Players: players,
		Winners: players[1:],
		Kind:    KindWinners,
	})
	assert.False(t, out.Pending)
	assert.Equal(t, 2, out.Attempts)
}

func TestSettleExhaustedRetriesFlagsPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := mocks.NewMockLedger(ctrl)
	fees := mocks.NewMockFeeAccumulator(ctrl)
	l.EXPECT().WithinTx(gomock.Any(), gomock.Any()).Return(errors.New("ledger down")).Times(3)
	alerts := &alertRecorder{}
	players := ids(2)
	matchID := uuid.New()

	logger, hook := test.NewNullLogger()
	c := newCoordinator(t, l, fees, alerts)
	c.logger = logger

	out := c.Settle(context.Background(), Input{
		MatchID: matchID,
		Wager:   100,
		Players: players,
		Winners: players[:1],
		Kind:    KindWinners,
		Reason:  models.ReasonForfeit,
	})

	assert.True(t, out.Pending)
	assert.Equal(t, 3, out.Attempts)
	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, matchID, alerts.alerts[0].MatchID)
	assert.Equal(t, int64(190), alerts.alerts[0].Credits[players[0]])
	assert.Equal(t, "ledger down", alerts.alerts[0].Error)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestSettleFeeFailureFlagsPending(t *testing.T) {
	mem := ledger.NewMemory(0)
	ctrl := gomock.NewController(t)
	fees := mocks.NewMockFeeAccumulator(ctrl)
	fees.EXPECT().AddFee(gomock.Any(), gomock.Any(), int64(10)).Return(errors.New("fees table locked")).Times(3)
	alerts := &alertRecorder{}
	players := ids(2)

	c := newCoordinator(t, mem, fees, alerts)
	out := c.Settle(context.Background(), Input{
		Wager:   100,
		Players: players,
		Winners: players[:1],
		Kind:    KindWinners,
	})

	assert.True(t, out.Pending)
	assert.Equal(t, int64(190), mem.BalanceOf(players[0]))
	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, int64(10), alerts.alerts[0].HouseFee)
}
