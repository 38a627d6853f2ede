package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/arena/internal/cache"
	"github.com/jason-s-yu/arena/internal/ledger"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// PostgresSuite runs against the database named by ARENA_TEST_DATABASE_URL
// and is skipped when it is unset.
type PostgresSuite struct {
	suite.Suite
	pool *pgxpool.Pool
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("ARENA_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ARENA_TEST_DATABASE_URL not set")
	}
	suite.Run(t, &PostgresSuite{})
}

func (s *PostgresSuite) SetupSuite() {
	ctx := context.Background()
	pool, err := Connect(ctx, os.Getenv("ARENA_TEST_DATABASE_URL"), 4)
	s.Require().NoError(err)
	s.Require().NoError(EnsureSchema(ctx, pool))
	s.pool = pool
}

func (s *PostgresSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresSuite) TestDebitRollsBackAsAUnit() {
	ctx := context.Background()
	l := NewLedger(s.pool, 100)
	rich, poor := uuid.New(), uuid.New()
	s.Require().NoError(l.EnsureAccount(ctx, rich, "rich"))
	s.Require().NoError(l.EnsureAccount(ctx, poor, "poor"))

	err := l.WithinTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.Debit(ctx, rich, 60); err != nil {
			return err
		}
		_, err := tx.Debit(ctx, poor, 160)
		return err
	})
	s.ErrorIs(err, models.ErrInsufficientFunds)

	err = l.WithinTx(ctx, func(tx ledger.Tx) error {
		bal, err := tx.Balance(ctx, rich)
		s.Equal(int64(100), bal)
		return err
	})
	s.NoError(err)
}

func (s *PostgresSuite) TestCreditAndFees() {
	ctx := context.Background()
	l := NewLedger(s.pool, 0)
	id := uuid.New()
	s.Require().NoError(l.EnsureAccount(ctx, id, "winner"))

	var bal int64
	err := l.WithinTx(ctx, func(tx ledger.Tx) error {
		var err error
		bal, err = tx.Credit(ctx, id, 180)
		return err
	})
	s.Require().NoError(err)
	s.Equal(int64(180), bal)

	err = l.WithinTx(ctx, func(tx ledger.Tx) error {
		_, err := tx.Credit(ctx, uuid.New(), 1)
		return err
	})
	s.ErrorIs(err, models.ErrUnknownUser)

	code := "TEST-" + id.String()[:4]
	s.NoError(l.AddFee(ctx, code, 20))
	s.NoError(l.AddFee(ctx, code, 5))
	var total int64
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT total FROM house_fees WHERE room_code = $1`, code).Scan(&total))
	s.Equal(int64(25), total)
}

func (s *PostgresSuite) TestMatchStore() {
	ctx := context.Background()
	store := NewMatchStore(s.pool)
	snap := models.MatchSnapshot{
		MatchID:   uuid.New(),
		RoomCode:  "ABCD-1234",
		Mode:      models.ModeQuestionVsSkillgame,
		Phase:     models.PhaseDieRoll,
		Wager:     100,
		StartedAt: time.Now(),
	}
	s.Require().NoError(store.UpsertMatchSnapshot(ctx, snap.RoomCode, snap))

	rec := cache.MatchActionRecord{
		MatchID:     snap.MatchID,
		RoomCode:    snap.RoomCode,
		ActionIndex: 1,
		ActionType:  "match_start",
		Timestamp:   time.Now().UnixMilli(),
	}
	s.Require().NoError(store.InsertActions(ctx, []cache.MatchActionRecord{rec, rec}))

	abandoned, err := store.MarkAbandoned(ctx, snap.MatchID)
	s.Require().NoError(err)
	s.True(abandoned)

	ended := time.Now()
	snap.Phase = models.PhaseEnded
	snap.EndedAt = &ended
	s.Require().NoError(store.UpsertMatchSnapshot(ctx, snap.RoomCode, snap))
	abandoned, err = store.MarkAbandoned(ctx, snap.MatchID)
	s.Require().NoError(err)
	s.False(abandoned)
}

func TestConnectRejectsBadDSN(t *testing.T) {
	_, err := Connect(context.Background(), "://not a dsn", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}
