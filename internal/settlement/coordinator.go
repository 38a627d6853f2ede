package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/cache"
	"github.com/jason-s-yu/arena/internal/ledger"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AlertSink receives settlements that exhausted their retries.
type AlertSink interface {
	PublishReconciliationAlert(ctx context.Context, alert cache.ReconciliationAlert) error
}

// Outcome is what clients are told about the money side of a match.
type Outcome struct {
	Reason    models.EndReason    `json:"reason"`
	HasWager  bool                `json:"hasWager"`
	Wager     int64               `json:"wager"`
	Pot       int64               `json:"pot"`
	HouseFee  int64               `json:"houseFee"`
	Credits   map[uuid.UUID]int64 `json:"winnings"`
	Net       map[uuid.UUID]int64 `json:"netChange"`
	Pending   bool                `json:"settlementPending"`
	Attempts  int                 `json:"-"`
	LastError string              `json:"-"`
}

// Config for the coordinator.
type Config struct {
	Ledger ledger.Ledger
	Fees   ledger.FeeAccumulator
	// Alerts is optional; without it exhausted settlements are only logged.
	Alerts      AlertSink
	Logger      logrus.FieldLogger
	HouseRate   decimal.Decimal
	MaxAttempts int
	Backoff     time.Duration
	// AttemptTimeout bounds each ledger unit of work.
	AttemptTimeout time.Duration
}

// Coordinator applies settlement plans through the ledger.
type Coordinator struct {
	ledger      ledger.Ledger
	fees        ledger.FeeAccumulator
	alerts      AlertSink
	logger      logrus.FieldLogger
	rate        decimal.Decimal
	maxAttempts int
	backoff     time.Duration
	timeout     time.Duration
	sleep       func(ctx context.Context, d time.Duration)
}

// New validates cfg and builds a Coordinator.
func New(cfg *Config) (*Coordinator, error) {
	if cfg == nil {
		return nil, errors.New("settlement config cannot be nil")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("ledger cannot be nil")
	}
	if cfg.Fees == nil {
		return nil, errors.New("fee accumulator cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.HouseRate.IsNegative() || cfg.HouseRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("house rate %s must be in [0, 1)", cfg.HouseRate)
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	timeout := cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Coordinator{
		ledger:      cfg.Ledger,
		fees:        cfg.Fees,
		alerts:      cfg.Alerts,
		logger:      cfg.Logger,
		rate:        cfg.HouseRate,
		maxAttempts: attempts,
		backoff:     cfg.Backoff,
		timeout:     timeout,
		sleep:       sleepCtx,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Rate returns the configured house fee rate.
func (c *Coordinator) Rate() decimal.Decimal {
	return c.rate
}

// Settle pays out a finished match. It never returns an error: a ledger that
// keeps failing leaves the outcome Pending and raises a reconciliation alert.
func (c *Coordinator) Settle(ctx context.Context, in Input) Outcome {
	plan := Compute(in, c.rate)
	out := Outcome{
		Reason:   in.Reason,
		HasWager: in.Wager > 0,
		Wager:    in.Wager,
		Pot:      plan.Pot,
		HouseFee: plan.HouseTake(),
		Credits:  plan.Credits,
		Net:      NetChange(in, plan),
	}
	log := c.logger.WithFields(logrus.Fields{
		"match":  in.MatchID,
		"room":   in.RoomCode,
		"reason": in.Reason,
	})

	if in.Wager <= 0 {
		log.Debug("no wager, nothing to settle")
		return out
	}

	if len(plan.Credits) > 0 {
		attempts, err := c.retry(ctx, func(attemptCtx context.Context) error {
			return c.ledger.WithinTx(attemptCtx, func(tx ledger.Tx) error {
				for id, amount := range plan.Credits {
					if amount <= 0 {
						continue
					}
					if _, err := tx.Credit(attemptCtx, id, amount); err != nil {
						return fmt.Errorf("credit %s: %w", id, err)
					}
				}
				return nil
			})
		})
		out.Attempts = attempts
		if err != nil {
			out.Pending = true
			out.LastError = err.Error()
			log.WithError(err).WithField("attempts", attempts).Error("settlement payout failed, flagged for reconciliation")
			c.raiseAlert(ctx, in, plan, out)
			return out
		}
	}

	if take := plan.HouseTake(); take > 0 {
		attempts, err := c.retry(ctx, func(attemptCtx context.Context) error {
			return c.fees.AddFee(attemptCtx, in.RoomCode, take)
		})
		if err != nil {
			out.Pending = true
			out.Attempts = attempts
			out.LastError = err.Error()
			log.WithError(err).WithField("fee", take).Error("house fee accrual failed, flagged for reconciliation")
			c.raiseAlert(ctx, in, Plan{HouseFee: take}, out)
			return out
		}
	}

	log.WithFields(logrus.Fields{
		"pot":      plan.Pot,
		"houseFee": plan.HouseTake(),
		"credited": plan.TotalCredited(),
	}).Info("match settled")
	return out
}

func (c *Coordinator) retry(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err = op(attemptCtx)
		cancel()
		if err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil || errors.Is(err, models.ErrInsufficientFunds) {
			return attempt, err
		}
		if attempt < c.maxAttempts {
			c.logger.WithError(err).WithField("attempt", attempt).Warn("ledger call failed, retrying")
			c.sleep(ctx, c.backoff*time.Duration(attempt))
		}
	}
	return c.maxAttempts, err
}

func (c *Coordinator) raiseAlert(ctx context.Context, in Input, plan Plan, out Outcome) {
	if c.alerts == nil {
		return
	}
	alert := cache.ReconciliationAlert{
		MatchID:  in.MatchID,
		RoomCode: in.RoomCode,
		Reason:   string(in.Reason),
		Credits:  plan.Credits,
		HouseFee: plan.HouseTake(),
		Attempts: out.Attempts,
		Error:    out.LastError,
	}
	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.alerts.PublishReconciliationAlert(alertCtx, alert); err != nil {
		c.logger.WithError(err).WithField("match", in.MatchID).Error("failed to publish reconciliation alert")
	}
}
