package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/arena/internal/cache"
	"github.com/jason-s-yu/arena/internal/models"
)

// MatchStore mirrors match snapshots and stores the action history.
type MatchStore struct {
	pool *pgxpool.Pool
}

func NewMatchStore(pool *pgxpool.Pool) *MatchStore {
	return &MatchStore{pool: pool}
}

// UpsertMatchSnapshot writes the latest snapshot of a match. A snapshot with
// an end time marks the match completed.
func (s *MatchStore) UpsertMatchSnapshot(ctx context.Context, roomCode string, snap models.MatchSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot for match %s: %w", snap.MatchID, err)
	}
	status := "in_progress"
	if snap.EndedAt != nil {
		status = "completed"
	}
	q := `
		INSERT INTO matches (id, room_code, mode, phase, status, wager, snapshot, settlement_pending, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			phase = EXCLUDED.phase,
			status = EXCLUDED.status,
			snapshot = EXCLUDED.snapshot,
			settlement_pending = EXCLUDED.settlement_pending,
			end_time = EXCLUDED.end_time,
			updated_at = NOW()
	`
	_, err = s.pool.Exec(ctx, q,
		snap.MatchID, roomCode, string(snap.Mode), string(snap.Phase), status, snap.Wager,
		data, snap.SettlementPending, snap.StartedAt, snap.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot for match %s: %w", snap.MatchID, err)
	}
	return nil
}

// InsertActions stores a batch of action records in one transaction.
// Re-delivered records are ignored.
func (s *MatchStore) InsertActions(ctx context.Context, records []cache.MatchActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			payload, err := json.Marshal(rec.ActionPayload)
			if err != nil {
				return fmt.Errorf("marshal payload of action %d: %w", rec.ActionIndex, err)
			}
			var actor *uuid.UUID
			if rec.ActorUserID != uuid.Nil {
				id := rec.ActorUserID
				actor = &id
			}
			batch.Queue(`
				INSERT INTO match_actions (match_id, action_index, room_code, actor_user_id, action_type, action_payload, recorded_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (match_id, action_index) DO NOTHING
			`, rec.MatchID, rec.ActionIndex, rec.RoomCode, actor, rec.ActionType, payload, time.UnixMilli(rec.Timestamp))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// MarkAbandoned flags a match that stopped producing actions while still in
// progress.
func (s *MatchStore) MarkAbandoned(ctx context.Context, matchID uuid.UUID) (bool, error) {
	q := `
		UPDATE matches
		SET status = 'abandoned', end_time = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	tag, err := s.pool.Exec(ctx, q, matchID)
	if err != nil {
		return false, fmt.Errorf("mark match %s abandoned: %w", matchID, err)
	}
	return tag.RowsAffected() > 0, nil
}
