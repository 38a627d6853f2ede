package settlement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var fivePercent = decimal.RequireFromString("0.05")

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestComputeSingleWinner(t *testing.T) {
	players := ids(2)
	plan := Compute(Input{
		Wager:   100,
		Players: players,
		Winners: players[:1],
		Kind:    KindWinners,
		Reason:  models.ReasonTimeUp,
	}, fivePercent)

	assert.Equal(t, int64(200), plan.Pot)
	assert.Equal(t, int64(10), plan.HouseFee)
	assert.Equal(t, int64(0), plan.Dust)
	assert.Equal(t, int64(190), plan.Credits[players[0]])
	assert.NotContains(t, plan.Credits, players[1])

	net := NetChange(Input{Wager: 100, Players: players}, plan)
	assert.Equal(t, int64(90), net[players[0]])
	assert.Equal(t, int64(-100), net[players[1]])
}

func TestComputeSplitLeavesDustWithHouse(t *testing.T) {
	players := ids(3)
	plan := Compute(Input{
		Wager:   33,
		Players: players,
		Winners: players[:2],
		Kind:    KindWinners,
	}, fivePercent)

	// pot 99, fee floor(4.95)=4, pool floor(94.05)=94, 47 each
	assert.Equal(t, int64(99), plan.Pot)
	assert.Equal(t, int64(4), plan.HouseFee)
	assert.Equal(t, int64(47), plan.PerWinner)
	assert.Equal(t, int64(1), plan.Dust)
	assert.Equal(t, plan.Pot, plan.TotalCredited()+plan.HouseTake())
}

func TestComputeOddSplit(t *testing.T) {
	players := ids(4)
	plan := Compute(Input{
		Wager:   25,
		Players: players,
		Winners: players[:3],
		Kind:    KindWinners,
	}, fivePercent)

	// pot 100, pool 95, 31 each, 2 left over
	assert.Equal(t, int64(31), plan.PerWinner)
	assert.Equal(t, int64(5), plan.HouseFee)
	assert.Equal(t, int64(2), plan.Dust)
	assert.Equal(t, int64(100), plan.TotalCredited()+plan.HouseTake())
}

func TestComputeDrawRefundsActivePlayersOnly(t *testing.T) {
	players := ids(3)
	plan := Compute(Input{
		Wager:    100,
		Players:  players,
		Refunded: players[:2],
		Kind:     KindDraw,
		Reason:   models.ReasonDraw,
	}, fivePercent)

	assert.Equal(t, int64(95), plan.Credits[players[0]])
	assert.Equal(t, int64(95), plan.Credits[players[1]])
	assert.NotContains(t, plan.Credits, players[2])
	assert.Equal(t, int64(110), plan.HouseTake())
	assert.Equal(t, plan.Pot, plan.TotalCredited()+plan.HouseTake())
}

func TestComputeAllQuit(t *testing.T) {
	players := ids(2)
	plan := Compute(Input{Wager: 50, Players: players, Kind: KindAllQuit}, fivePercent)
	assert.Empty(t, plan.Credits)
	assert.Equal(t, int64(100), plan.HouseTake())
}

func TestComputeZeroWager(t *testing.T) {
	players := ids(2)
	plan := Compute(Input{Wager: 0, Players: players, Winners: players[:1], Kind: KindWinners}, fivePercent)
	assert.Empty(t, plan.Credits)
	assert.Zero(t, plan.HouseTake())
	assert.Zero(t, plan.Pot)
}

func TestComputeZeroRate(t *testing.T) {
	players := ids(2)
	plan := Compute(Input{Wager: 100, Players: players, Winners: players[1:], Kind: KindWinners}, decimal.Zero)
	assert.Equal(t, int64(200), plan.Credits[players[1]])
	assert.Zero(t, plan.HouseTake())
}
