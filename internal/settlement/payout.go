// Package settlement turns a finished match into ledger credits and a house fee.
package settlement

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/shopspring/decimal"
)

// Kind selects the payout formula.
type Kind string

const (
	// KindWinners splits the pool across one or more winners.
	KindWinners Kind = "winners"
	// KindDraw refunds every active player minus the house share.
	KindDraw Kind = "draw"
	// KindAllQuit pays nobody; the whole pot stays with the house.
	KindAllQuit Kind = "all-quit"
)

// Input describes a finished match.
type Input struct {
	MatchID  uuid.UUID
	RoomCode string
	Wager    int64
	// Players is the roster debited at start, quitters included.
	Players []uuid.UUID
	// Winners receive the pool when Kind is KindWinners.
	Winners []uuid.UUID
	// Refunded receive a draw refund when Kind is KindDraw.
	Refunded []uuid.UUID
	Kind     Kind
	Reason   models.EndReason
}

// Plan is the pure result of the payout formulas.
type Plan struct {
	Pot int64
	// HouseFee is floor(pot × rate) for winner payouts, or what the house
	// keeps from each refund on a draw.
	HouseFee int64
	// Dust is what rounding the per-winner split left behind.
	Dust      int64
	PerWinner int64
	Refund    int64
	Credits   map[uuid.UUID]int64
}

// HouseTake is the single amount forwarded to the fee accumulator.
func (p Plan) HouseTake() int64 {
	return p.HouseFee + p.Dust
}

// TotalCredited sums every credit in the plan.
func (p Plan) TotalCredited() int64 {
	var total int64
	for _, v := range p.Credits {
		total += v
	}
	return total
}

// Compute applies the payout formulas. The result always satisfies
// TotalCredited() + HouseTake() == Pot.
//
// A draw refunds only the players listed in Refunded, the ones still active
// when the round ended. A player who quit earlier forfeited their stake and
// it stays with the house.
func Compute(in Input, rate decimal.Decimal) Plan {
	pot := in.Wager * int64(len(in.Players))
	plan := Plan{Pot: pot, Credits: make(map[uuid.UUID]int64)}
	if in.Wager <= 0 {
		return plan
	}

	keep := decimal.NewFromInt(1).Sub(rate)

	switch in.Kind {
	case KindDraw:
		refund := decimal.NewFromInt(in.Wager).Mul(keep).Floor().IntPart()
		for _, id := range in.Refunded {
			plan.Credits[id] += refund
		}
		plan.Refund = refund
		plan.HouseFee = pot - plan.TotalCredited()

	case KindWinners:
		if len(in.Winners) == 0 {
			plan.HouseFee = pot
			return plan
		}
		pool := decimal.NewFromInt(pot).Mul(keep).Floor().IntPart()
		per := pool / int64(len(in.Winners))
		for _, id := range in.Winners {
			plan.Credits[id] += per
		}
		plan.PerWinner = per
		plan.HouseFee = decimal.NewFromInt(pot).Mul(rate).Floor().IntPart()
		plan.Dust = pot - plan.HouseFee - plan.TotalCredited()

	case KindAllQuit:
		plan.HouseFee = pot
	}
	return plan
}

// NetChange reports each player's balance change over the whole match,
// including the wager taken at start.
func NetChange(in Input, plan Plan) map[uuid.UUID]int64 {
	net := make(map[uuid.UUID]int64, len(in.Players))
	for _, id := range in.Players {
		net[id] = plan.Credits[id] - in.Wager
	}
	return net
}
