// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultActionQueue is the Redis list the historian drains.
	DefaultActionQueue = "arena_actions"
	// DefaultReconciliationQueue holds settlements that need a human.
	DefaultReconciliationQueue = "arena_reconciliation"
)

// MatchActionRecord holds the minimal info needed by the historian service.
type MatchActionRecord struct {
	MatchID       uuid.UUID              `json:"match_id"`
	RoomCode      string                 `json:"room_code"`
	ActionIndex   int                    `json:"action_index"`
	ActorUserID   uuid.UUID              `json:"actor_user_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ReconciliationAlert describes a payout the ledger never accepted.
type ReconciliationAlert struct {
	MatchID   uuid.UUID           `json:"match_id"`
	RoomCode  string              `json:"room_code"`
	Reason    string              `json:"reason"`
	Credits   map[uuid.UUID]int64 `json:"credits"`
	HouseFee  int64               `json:"house_fee"`
	Attempts  int                 `json:"attempts"`
	Error     string              `json:"error"`
	Timestamp int64               `json:"timestamp"`
}

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Publisher pushes match actions and reconciliation alerts onto Redis lists.
type Publisher struct {
	rdb         *redis.Client
	actionQueue string
	alertQueue  string
}

// NewPublisher builds a Publisher; empty queue names fall back to the defaults.
func NewPublisher(rdb *redis.Client, actionQueue, alertQueue string) (*Publisher, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if actionQueue == "" {
		actionQueue = DefaultActionQueue
	}
	if alertQueue == "" {
		alertQueue = DefaultReconciliationQueue
	}
	return &Publisher{rdb: rdb, actionQueue: actionQueue, alertQueue: alertQueue}, nil
}

// PublishMatchAction serializes the record to JSON and pushes it to the action queue.
func (p *Publisher) PublishMatchAction(ctx context.Context, record MatchActionRecord) error {
	if record.Timestamp == 0 {
		record.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal MatchActionRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.actionQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.actionQueue, err)
	}
	return nil
}

// PublishReconciliationAlert records a settlement that could not be applied.
// The alert list is append-only and also carries a per-match hash so
// operators can look an alert up by match id.
func (p *Publisher) PublishReconciliationAlert(ctx context.Context, alert ReconciliationAlert) error {
	if alert.Timestamp == 0 {
		alert.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal ReconciliationAlert: %w", err)
	}

	pipe := p.rdb.TxPipeline()
	pipe.RPush(ctx, p.alertQueue, data)
	pipe.HSet(ctx, p.alertQueue+":by_match", alert.MatchID.String(), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish reconciliation alert for match %s: %w", alert.MatchID, err)
	}
	return nil
}

// PendingReconciliations returns how many alerts are waiting for an operator.
func (p *Publisher) PendingReconciliations(ctx context.Context) (int64, error) {
	n, err := p.rdb.LLen(ctx, p.alertQueue).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read length of '%s': %w", p.alertQueue, err)
	}
	return n, nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
