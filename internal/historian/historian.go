// Package historian drains match actions from the Redis queue into durable
// storage and marks matches abandoned when their actions stop arriving.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// actionEnd is the action type the engine logs when a match finishes.
const actionEnd = "match_end"

// Store persists what the historian collects.
type Store interface {
	InsertActions(ctx context.Context, records []cache.MatchActionRecord) error
	MarkAbandoned(ctx context.Context, matchID uuid.UUID) (bool, error)
}

// Config tunes batching and inactivity.
type Config struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	// Inactivity is how long a match may go without actions before it is
	// marked abandoned.
	Inactivity time.Duration
	// PopTimeout bounds each blocking pop so shutdown is noticed.
	PopTimeout time.Duration
}

// Service encapsulates the Redis and storage sides of the historian.
type Service struct {
	rdb    *redis.Client
	store  Store
	logger logrus.FieldLogger
	cfg    Config

	batchMu sync.Mutex
	batch   []cache.MatchActionRecord

	activityMu   sync.Mutex
	lastActivity map[uuid.UUID]time.Time

	now func() time.Time
}

func New(rdb *redis.Client, store Store, logger logrus.FieldLogger, cfg Config) (*Service, error) {
	if rdb == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if cfg.Queue == "" {
		cfg.Queue = cache.DefaultActionQueue
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = 10 * time.Minute
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 3 * time.Second
	}
	return &Service{
		rdb:          rdb,
		store:        store,
		logger:       logger.WithField("component", "historian"),
		cfg:          cfg,
		batch:        make([]cache.MatchActionRecord, 0, cfg.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
		now:          time.Now,
	}, nil
}

// Run reads the queue until ctx is done, flushing on size and on a timer.
// A final flush runs on the way out.
func (s *Service) Run(ctx context.Context) error {
	s.logger.WithField("queue", s.cfg.Queue).Info("historian started")
	defer s.logger.Info("historian stopped")

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.tickLoop(ctx)
	}()
	defer func() {
		<-done
		s.Flush(context.WithoutCancel(ctx))
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		rec, err := s.pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.WithError(err).Warn("pop failed")
			continue
		}
		if rec == nil {
			continue
		}
		s.record(ctx, *rec)
	}
}

func (s *Service) pop(ctx context.Context) (*cache.MatchActionRecord, error) {
	res, err := s.rdb.BLPop(ctx, s.cfg.PopTimeout, s.cfg.Queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", s.cfg.Queue, err)
	}
	if len(res) < 2 {
		return nil, nil
	}
	var rec cache.MatchActionRecord
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		s.logger.WithError(err).Warn("invalid action record")
		return nil, nil
	}
	return &rec, nil
}

// record tracks activity and appends rec to the batch.
func (s *Service) record(ctx context.Context, rec cache.MatchActionRecord) {
	s.activityMu.Lock()
	if rec.ActionType == actionEnd {
		delete(s.lastActivity, rec.MatchID)
	} else {
		s.lastActivity[rec.MatchID] = s.now()
	}
	s.activityMu.Unlock()

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()
	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch in one transaction. A failed batch is put
// back in front of newer records.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := s.batch
	s.batch = make([]cache.MatchActionRecord, 0, s.cfg.BatchSize)
	s.batchMu.Unlock()

	if err := s.store.InsertActions(ctx, pending); err != nil {
		s.logger.WithError(err).WithField("records", len(pending)).Error("flush failed")
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		s.batchMu.Unlock()
		return
	}
	s.logger.WithField("records", len(pending)).Debug("flushed actions")
}

func (s *Service) tickLoop(ctx context.Context) {
	flush := time.NewTicker(s.cfg.FlushDelay)
	defer flush.Stop()
	sweep := time.NewTicker(s.cfg.Inactivity / 4)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-flush.C:
			s.Flush(ctx)
		case <-sweep.C:
			s.SweepInactive(ctx)
		}
	}
}

// SweepInactive marks every match idle for longer than the inactivity
// window as abandoned.
func (s *Service) SweepInactive(ctx context.Context) {
	now := s.now()
	s.activityMu.Lock()
	var idle []uuid.UUID
	for id, last := range s.lastActivity {
		if now.Sub(last) > s.cfg.Inactivity {
			idle = append(idle, id)
			delete(s.lastActivity, id)
		}
	}
	s.activityMu.Unlock()

	for _, id := range idle {
		marked, err := s.store.MarkAbandoned(ctx, id)
		if err != nil {
			s.logger.WithError(err).WithField("match", id).Warn("failed to mark match abandoned")
			continue
		}
		if marked {
			s.logger.WithField("match", id).Info("marked match abandoned after inactivity")
		}
	}
}
