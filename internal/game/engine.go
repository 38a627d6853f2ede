// Package game runs arena matches: the die roll and choice negotiation, the
// timed round, quits and disconnects, and the hand-off to settlement.
package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/broadcast"
	"github.com/jason-s-yu/arena/internal/cache"
	"github.com/jason-s-yu/arena/internal/ledger"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/jason-s-yu/arena/internal/room"
	"github.com/jason-s-yu/arena/internal/settlement"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// RoomGate is the slice of the room registry the engine needs.
type RoomGate interface {
	BeginStart(code string, userID uuid.UUID, requireReady bool, fn func(room.StartSnapshot) error) error
	ResetAfterMatch(code string)
	Snapshot(code string) (room.View, error)
}

// Settler pays out a finished match.
type Settler interface {
	Settle(ctx context.Context, in settlement.Input) settlement.Outcome
}

// ContentSource supplies topics, questions and mini-games.
type ContentSource interface {
	RandomTopic() string
	RandomGame() models.MiniGame
	Game(id string) (models.MiniGame, bool)
	ValidTopic(topic string) bool
	Questions(ctx context.Context, topic string, n int) ([]models.Question, error)
}

// Roller rolls dice and makes the other random picks a match needs.
type Roller interface {
	Roll(sides int) int
	Intn(n int) int
}

// Mirror receives best-effort audit snapshots of a match.
type Mirror interface {
	UpsertMatchSnapshot(ctx context.Context, roomCode string, snap models.MatchSnapshot) error
}

// ActionLog receives every state-changing action for the historian.
type ActionLog interface {
	PublishMatchAction(ctx context.Context, rec cache.MatchActionRecord) error
}

// Deps are the collaborators of an Engine. Mirror and Actions are optional.
type Deps struct {
	Rooms       RoomGate
	Ledger      ledger.Ledger
	Settler     Settler
	Broadcaster broadcast.Broadcaster
	Content     ContentSource
	Dice        Roller
	Mirror      Mirror
	Actions     ActionLog
	Logger      logrus.FieldLogger
}

// Config tunes match timing.
type Config struct {
	RoundDuration time.Duration
	TickInterval  time.Duration
	// IntroDelay is how long preselected content is shown before the round.
	IntroDelay time.Duration
	// ResultsDelay is how long results stay up before the room is reset.
	ResultsDelay  time.Duration
	QuestionCount int
}

// DefaultConfig returns production timings.
func DefaultConfig() Config {
	return Config{
		RoundDuration: 180 * time.Second,
		TickInterval:  time.Second,
		IntroDelay:    3 * time.Second,
		ResultsDelay:  10 * time.Second,
		QuestionCount: 10,
	}
}

// Engine owns every running match, keyed by room code.
//
// Lock order: a room lock may be held while taking e.mu or a Match lock.
// Never take a room lock while holding a Match lock.
type Engine struct {
	mu      sync.Mutex
	matches map[string]*Match

	rooms   RoomGate
	ledger  ledger.Ledger
	settler Settler
	bc      broadcast.Broadcaster
	content ContentSource
	dice    Roller
	mirror  Mirror
	actions ActionLog
	logger  logrus.FieldLogger
	cfg     Config

	now func() time.Time
}

// NewEngine validates deps and builds an Engine.
func NewEngine(deps Deps, cfg Config) (*Engine, error) {
	switch {
	case deps.Rooms == nil:
		return nil, errors.New("room gate cannot be nil")
	case deps.Ledger == nil:
		return nil, errors.New("ledger cannot be nil")
	case deps.Settler == nil:
		return nil, errors.New("settler cannot be nil")
	case deps.Broadcaster == nil:
		return nil, errors.New("broadcaster cannot be nil")
	case deps.Content == nil:
		return nil, errors.New("content source cannot be nil")
	case deps.Dice == nil:
		return nil, errors.New("dice roller cannot be nil")
	case deps.Logger == nil:
		return nil, errors.New("logger cannot be nil")
	}
	def := DefaultConfig()
	if cfg.RoundDuration <= 0 {
		cfg.RoundDuration = def.RoundDuration
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.IntroDelay < 0 {
		cfg.IntroDelay = 0
	}
	if cfg.ResultsDelay <= 0 {
		cfg.ResultsDelay = def.ResultsDelay
	}
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = def.QuestionCount
	}
	return &Engine{
		matches: make(map[string]*Match),
		rooms:   deps.Rooms,
		ledger:  deps.Ledger,
		settler: deps.Settler,
		bc:      deps.Broadcaster,
		content: deps.Content,
		dice:    deps.Dice,
		mirror:  deps.Mirror,
		actions: deps.Actions,
		logger:  deps.Logger,
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

func (e *Engine) log(m *Match) logrus.FieldLogger {
	return e.logger.WithFields(logrus.Fields{
		"room":  m.RoomCode,
		"match": m.ID,
		"phase": m.Phase,
	})
}

func (e *Engine) lookup(code string) (*Match, error) {
	code = room.NormalizeCode(code)
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.matches[code]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", code, models.ErrMatchNotFound)
	}
	return m, nil
}

// emitAll sends to the room and to its spectators.
func (e *Engine) emitAll(code, event string, payload interface{}) {
	e.bc.EmitToRoom(code, event, payload)
	e.bc.EmitToGroup(broadcast.ViewerGroup(code), event, payload)
}

func (e *Engine) emitStateUnsafe(m *Match) {
	e.emitAll(m.RoomCode, EventGameStateUpdated, m.viewUnsafe(e.now(), e.cfg.RoundDuration))
}

func (e *Engine) emitRolesUnsafe(m *Match) {
	e.bc.EmitToGroup(broadcast.ViewerGroup(m.RoomCode), EventPlayerRolesAssigned, map[string]interface{}{
		"playerRoles": lo.Assign(m.Roles),
		"timestamp":   e.now().UnixMilli(),
	})
}

func (e *Engine) emitScreenUnsafe(m *Match, userID uuid.UUID, action string, data map[string]interface{}) {
	e.bc.EmitToGroup(broadcast.ViewerGroup(m.RoomCode), EventPlayerScreenUpdate, map[string]interface{}{
		"playerId":  userID,
		"action":    action,
		"data":      data,
		"timestamp": e.now().UnixMilli(),
	})
}

// StartMatch starts a match in the caller's room. The caller must own the
// room, the room must be full and everyone ready.
func (e *Engine) StartMatch(ctx context.Context, code string, userID uuid.UUID) error {
	return e.start(ctx, code, userID, true)
}

func (e *Engine) start(ctx context.Context, code string, userID uuid.UUID, requireReady bool) error {
	var m *Match
	err := e.rooms.BeginStart(code, userID, requireReady, func(snap room.StartSnapshot) error {
		e.mu.Lock()
		_, running := e.matches[snap.Code]
		e.mu.Unlock()
		if running {
			return fmt.Errorf("room %s already has a match: %w", snap.Code, models.ErrInvalidPhaseTransition)
		}

		built, err := e.newMatch(ctx, snap)
		if err != nil {
			return err
		}
		if err := e.debitWagers(ctx, snap); err != nil {
			return err
		}

		e.mu.Lock()
		e.matches[snap.Code] = built
		e.mu.Unlock()
		m = built
		return nil
	})
	if err != nil {
		return err
	}

	m.Mu.Lock()
	defer m.Mu.Unlock()

	e.log(m).WithFields(logrus.Fields{
		"mode":    m.Mode,
		"players": len(m.Roster),
		"wager":   m.Wager,
	}).Info("match started")

	e.logActionUnsafe(m, userID, actionStart, map[string]interface{}{
		"mode":    m.Mode,
		"wager":   m.Wager,
		"players": m.rosterIDsUnsafe(),
	})

	message := "Free game started"
	if m.Wager > 0 {
		message = fmt.Sprintf("%d coins deducted from each player", m.Wager)
	}
	e.bc.EmitToRoom(m.RoomCode, EventGameStarted, map[string]interface{}{
		"roomCode":      m.RoomCode,
		"matchId":       m.ID,
		"gameState":     m.viewUnsafe(e.now(), e.cfg.RoundDuration),
		"redirectUrl":   fmt.Sprintf("/gameroom/%s/game", m.RoomCode),
		"wagerDeducted": m.Wager,
		"message":       message,
	})
	e.emitStateUnsafe(m)
	e.emitRolesUnsafe(m)

	if m.Phase == models.PhaseRandomSelection {
		e.scheduleIntroUnsafe(m)
	}
	e.mirrorUnsafe(m)
	return nil
}

// newMatch builds a Match from the frozen room roster. Preselected content is
// fetched here so a failure aborts the start before any coins move.
func (e *Engine) newMatch(ctx context.Context, snap room.StartSnapshot) (*Match, error) {
	mode := snap.Settings.Mode
	split := assignTeams(snap.Players, snap.OwnerID, mode, e.dice.Intn)

	m := &Match{
		ID:         uuid.New(),
		RoomCode:   snap.Code,
		Mode:       mode,
		Wager:      snap.Settings.Wager,
		OwnerID:    snap.OwnerID,
		StartedAt:  e.now(),
		Teams:      split.teams,
		Roles:      make(map[uuid.UUID]models.Role, len(snap.Players)),
		TeamRoles:  make(map[models.Team]models.Role),
		Rollers:    split.rollers,
		Rolls:      make(map[uuid.UUID]int),
		Scores:     make(map[uuid.UUID]int, len(snap.Players)),
		TeamScores: map[models.Team]int{models.TeamA: 0, models.TeamB: 0},
		Answers:    make(map[uuid.UUID]map[string]int),
		Progress:   make(map[uuid.UUID]map[string]interface{}),
		Quits:      make(map[uuid.UUID]models.QuitRecord),
	}
	for _, p := range snap.Players {
		m.Roster = append(m.Roster, Participant{
			UserID:  p.UserID,
			Name:    p.Name,
			Avatar:  p.Avatar,
			Team:    split.teamOf[p.UserID],
			IsOwner: p.UserID == snap.OwnerID,
		})
		m.Scores[p.UserID] = 0
	}

	switch mode {
	case models.ModeIndividual:
		topic := snap.Settings.Topic
		if !e.content.ValidTopic(topic) {
			topic = e.content.RandomTopic()
		}
		questions, err := e.content.Questions(ctx, topic, e.cfg.QuestionCount)
		if err != nil {
			return nil, fmt.Errorf("load questions for %s: %w", topic, err)
		}
		m.Content = &models.RoundContent{Topic: topic, Questions: questions}
		m.Choice = models.RoleQuestions
		m.Phase = models.PhaseRandomSelection
		for _, p := range m.Roster {
			m.Roles[p.UserID] = models.RoleQuestions
		}
	case models.ModeSkillgame:
		g := e.content.RandomGame()
		m.Content = &models.RoundContent{Game: &g}
		m.Choice = models.RoleSkillgame
		m.Phase = models.PhaseRandomSelection
		for _, p := range m.Roster {
			m.Roles[p.UserID] = models.RoleSkillgame
		}
	default:
		m.Phase = models.PhaseDieRoll
		for _, p := range m.Roster {
			m.Roles[p.UserID] = models.RoleWaiting
		}
	}
	return m, nil
}

// debitWagers takes the wager from every player in one unit of work. Any
// failure rolls back every debit already made.
func (e *Engine) debitWagers(ctx context.Context, snap room.StartSnapshot) error {
	wager := snap.Settings.Wager
	if wager <= 0 {
		return nil
	}
	return e.ledger.WithinTx(ctx, func(tx ledger.Tx) error {
		for _, p := range snap.Players {
			if _, err := tx.Debit(ctx, p.UserID, wager); err != nil {
				if errors.Is(err, models.ErrInsufficientFunds) {
					return fmt.Errorf("%s cannot cover the %d coin wager: %w", p.Name, wager, err)
				}
				return fmt.Errorf("debit wager from %s: %w", p.Name, err)
			}
		}
		return nil
	})
}

func (e *Engine) scheduleIntroUnsafe(m *Match) {
	var timer *time.Timer
	timer = time.AfterFunc(e.cfg.IntroDelay, func() {
		m.Mu.Lock()
		defer m.Mu.Unlock()
		if m.Ended || m.introTimer != timer || m.Phase != models.PhaseRandomSelection {
			return
		}
		m.introTimer = nil
		e.startRoundUnsafe(m, m.Choice.RoundPhase())
	})
	m.introTimer = timer
}

// startRoundUnsafe moves into the timed round. Assumes lock is held.
func (e *Engine) startRoundUnsafe(m *Match, phase models.Phase) {
	m.stopTimersUnsafe()
	m.Phase = phase
	m.RoundEndsAt = e.now().Add(e.cfg.RoundDuration)
	gen := m.timerGen
	m.timer = startRoundTimer(e.cfg.RoundDuration, e.cfg.TickInterval,
		func(left time.Duration) { e.onTick(m, gen, left) },
		func() { e.onExpire(m, gen) },
	)

	payload := map[string]interface{}{
		"choice":         m.Choice,
		"teamRoundTypes": lo.Assign(m.TeamRoles),
		"playerRoles":    lo.Assign(m.Roles),
		"timeLeft":       seconds(e.cfg.RoundDuration),
	}
	if m.Content != nil {
		payload["topic"] = m.Content.Topic
		payload["game"] = m.Content.Game
	}
	e.emitAll(m.RoomCode, EventRoundStarted, payload)
	e.emitStateUnsafe(m)
	e.emitRolesUnsafe(m)
	for _, id := range m.activeIDsUnsafe() {
		switch m.Roles[id] {
		case models.RoleQuestions:
			e.emitScreenUnsafe(m, id, "question-started", map[string]interface{}{"topic": m.Content.Topic})
		case models.RoleSkillgame:
			e.emitScreenUnsafe(m, id, "game-started", map[string]interface{}{"game": m.Content.Game})
		}
	}

	e.logActionUnsafe(m, uuid.Nil, actionRound, map[string]interface{}{"phase": phase})
	e.log(m).Info("round started")
	e.mirrorUnsafe(m)
}

func (e *Engine) onTick(m *Match, gen int, left time.Duration) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Ended || m.timerGen != gen {
		return
	}
	e.emitAll(m.RoomCode, EventTimerUpdate, map[string]interface{}{"timeLeft": seconds(left)})
}

func (e *Engine) onExpire(m *Match, gen int) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Ended || m.timerGen != gen {
		e.log(m).Debug("stale round timer fired, ignoring")
		return
	}
	e.endNaturallyUnsafe(context.Background(), m)
}

// HandleRoundExpiry ends the round as if its timer ran out. Calling it on a
// match that already ended does nothing.
func (e *Engine) HandleRoundExpiry(ctx context.Context, code string) error {
	m, err := e.lookup(code)
	if err != nil {
		return err
	}
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Ended {
		return nil
	}
	if !m.Phase.IsRound() {
		return fmt.Errorf("round expiry in %s: %w", m.Phase, models.ErrInvalidPhaseTransition)
	}
	e.endNaturallyUnsafe(ctx, m)
	return nil
}

// endNaturallyUnsafe decides winners by strict score comparison. Assumes lock
// is held.
func (e *Engine) endNaturallyUnsafe(ctx context.Context, m *Match) {
	active := m.activeIDsUnsafe()
	var winners []uuid.UUID

	if m.Mode.TeamMode() {
		a, b := m.TeamScores[models.TeamA], m.TeamScores[models.TeamB]
		switch {
		case a > b:
			winners = m.activeOnTeamUnsafe(models.TeamA)
		case b > a:
			winners = m.activeOnTeamUnsafe(models.TeamB)
		}
	} else if len(active) > 0 {
		best := lo.MaxBy(active, func(x, y uuid.UUID) bool { return m.Scores[x] > m.Scores[y] })
		top := lo.Filter(active, func(id uuid.UUID, _ int) bool { return m.Scores[id] == m.Scores[best] })
		if len(top) == 1 {
			winners = top
		}
	}

	if len(winners) == 0 {
		e.finishUnsafe(ctx, m, finish{
			kind:     settlement.KindDraw,
			reason:   models.ReasonDraw,
			refunded: active,
			isDraw:   true,
		})
		return
	}
	e.finishUnsafe(ctx, m, finish{
		kind:    settlement.KindWinners,
		reason:  models.ReasonTimeUp,
		winners: winners,
	})
}

type finish struct {
	kind     settlement.Kind
	reason   models.EndReason
	policy   models.QuitPolicy
	winners  []uuid.UUID
	refunded []uuid.UUID
	isDraw   bool
}

// finishUnsafe is the only way into ended. It settles exactly once, emits
// game-ended and schedules the return to the room. Assumes lock is held.
//
// Settlement runs under m.Mu so no event can observe an ended match without
// its payout. With a failing ledger the room stalls for up to
// MaxAttempts ledger timeouts plus backoff before game-ended goes out;
// events for other rooms are unaffected.
func (e *Engine) finishUnsafe(ctx context.Context, m *Match, f finish) {
	if m.Ended {
		return
	}
	m.Ended = true
	m.stopTimersUnsafe()
	m.Phase = models.PhaseEnded
	m.EndedAt = e.now()

	outcome := e.settler.Settle(ctx, settlement.Input{
		MatchID:  m.ID,
		RoomCode: m.RoomCode,
		Wager:    m.Wager,
		Players:  m.rosterIDsUnsafe(),
		Winners:  f.winners,
		Refunded: f.refunded,
		Kind:     f.kind,
		Reason:   f.reason,
	})
	m.SettlementPending = outcome.Pending
	m.Result = &Result{
		Winners: f.winners,
		IsDraw:  f.isDraw,
		Reason:  f.reason,
		Policy:  f.policy,
		Payout:  outcome,
	}

	e.emitAll(m.RoomCode, EventGameEnded, map[string]interface{}{
		"matchId":           m.ID,
		"roomCode":          m.RoomCode,
		"mode":              m.Mode,
		"scores":            lo.Assign(m.TeamScores),
		"playerScores":      lo.Assign(m.Scores),
		"winners":           f.winners,
		"refunded":          f.refunded,
		"isDraw":            f.isDraw,
		"reason":            f.reason,
		"hasWager":          outcome.HasWager,
		"wager":             m.Wager,
		"winnings":          outcome.Credits,
		"netChange":         outcome.Net,
		"houseFee":          outcome.HouseFee,
		"settlementPending": outcome.Pending,
		"returnIn":          seconds(e.cfg.ResultsDelay),
		"final":             true,
	})
	e.emitStateUnsafe(m)

	e.logActionUnsafe(m, uuid.Nil, actionEnd, map[string]interface{}{
		"reason":  f.reason,
		"winners": f.winners,
		"scores":  lo.Assign(m.Scores),
		"pending": outcome.Pending,
	})
	e.log(m).WithFields(logrus.Fields{
		"reason":  f.reason,
		"winners": len(f.winners),
		"pending": outcome.Pending,
	}).Info("match ended")
	e.mirrorUnsafe(m)

	var timer *time.Timer
	timer = time.AfterFunc(e.cfg.ResultsDelay, func() {
		m.Mu.Lock()
		stale := m.returnTimer != timer
		m.Mu.Unlock()
		if !stale {
			e.returnToRoom(m)
		}
	})
	m.returnTimer = timer
}

// returnToRoom drops the match and hands the room back to the lobby. It must
// be called without m.Mu held since it takes the room lock.
func (e *Engine) returnToRoom(m *Match) {
	m.Mu.Lock()
	if m.returned {
		m.Mu.Unlock()
		return
	}
	m.returned = true
	if m.returnTimer != nil {
		m.returnTimer.Stop()
		m.returnTimer = nil
	}
	code := m.RoomCode
	m.Mu.Unlock()

	e.mu.Lock()
	if e.matches[code] == m {
		delete(e.matches, code)
	}
	e.mu.Unlock()

	e.rooms.ResetAfterMatch(code)
	e.emitAll(code, EventReturnToRoom, map[string]interface{}{"roomCode": code})
	e.logger.WithFields(logrus.Fields{"room": code, "match": m.ID}).Debug("returned to room")
}

// ReturnToRoom lets a participant skip the rest of the results window.
func (e *Engine) ReturnToRoom(code string, userID uuid.UUID) error {
	m, err := e.lookup(code)
	if err != nil {
		return err
	}
	m.Mu.Lock()
	_, inMatch := m.participantUnsafe(userID)
	ended := m.Ended
	m.Mu.Unlock()
	if !inMatch {
		return fmt.Errorf("return to room %s: %w", m.RoomCode, models.ErrPlayerNotInMatch)
	}
	if !ended {
		return fmt.Errorf("return to room while playing: %w", models.ErrInvalidPhaseTransition)
	}
	e.returnToRoom(m)
	return nil
}

// Rematch starts a fresh match with the same room once the previous one has
// ended. Wagers are debited again; readiness is not re-checked.
func (e *Engine) Rematch(ctx context.Context, code string, userID uuid.UUID) error {
	m, err := e.lookup(code)
	if err != nil {
		return err
	}
	view, err := e.rooms.Snapshot(m.RoomCode)
	if err != nil {
		return err
	}
	if view.OwnerID != userID {
		return fmt.Errorf("rematch %s: %w", m.RoomCode, models.ErrNotOwner)
	}

	m.Mu.Lock()
	if !m.Ended {
		m.Mu.Unlock()
		return fmt.Errorf("rematch before the match ended: %w", models.ErrInvalidPhaseTransition)
	}
	e.logActionUnsafe(m, userID, actionRematch, nil)
	m.Mu.Unlock()

	e.bc.EmitToRoom(m.RoomCode, EventRematching, map[string]interface{}{"roomCode": m.RoomCode})
	e.returnToRoom(m)
	return e.start(ctx, m.RoomCode, userID, false)
}

// JoinAsViewer subscribes a connection to the room's spectator feed and sends
// it the current roles and content.
func (e *Engine) JoinAsViewer(code string, connID uuid.UUID) error {
	m, err := e.lookup(code)
	if err != nil {
		return err
	}
	e.bc.JoinGroup(connID, broadcast.ViewerGroup(m.RoomCode))

	m.Mu.Lock()
	defer m.Mu.Unlock()
	e.bc.EmitTo(connID, EventPlayerRolesAssigned, map[string]interface{}{
		"playerRoles": lo.Assign(m.Roles),
		"timestamp":   e.now().UnixMilli(),
	})
	e.bc.EmitTo(connID, EventGameStateUpdated, m.viewUnsafe(e.now(), e.cfg.RoundDuration))
	return nil
}

// State sends the current match view to one connection.
func (e *Engine) State(code string, connID uuid.UUID) error {
	view, err := e.View(code)
	if err != nil {
		return err
	}
	e.bc.EmitTo(connID, EventGameStateUpdated, view)
	return nil
}

// View returns the current public projection of a room's match.
func (e *Engine) View(code string) (MatchView, error) {
	m, err := e.lookup(code)
	if err != nil {
		return MatchView{}, err
	}
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.viewUnsafe(e.now(), e.cfg.RoundDuration), nil
}

// ActiveMatches lists matches still being played, oldest first.
func (e *Engine) ActiveMatches() []Summary {
	e.mu.Lock()
	matches := lo.Values(e.matches)
	e.mu.Unlock()

	out := make([]Summary, 0, len(matches))
	for _, m := range matches {
		m.Mu.Lock()
		if !m.Ended {
			out = append(out, m.summaryUnsafe())
		}
		m.Mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Shutdown stops every timer so no goroutine outlives the engine.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	matches := lo.Values(e.matches)
	e.mu.Unlock()
	for _, m := range matches {
		m.Mu.Lock()
		m.stopTimersUnsafe()
		if m.returnTimer != nil {
			m.returnTimer.Stop()
			m.returnTimer = nil
		}
		m.Mu.Unlock()
	}
}

func (e *Engine) logActionUnsafe(m *Match, actor uuid.UUID, actionType string, payload map[string]interface{}) {
	if e.actions == nil {
		return
	}
	m.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	rec := cache.MatchActionRecord{
		MatchID:       m.ID,
		RoomCode:      m.RoomCode,
		ActionIndex:   m.actionIndex,
		ActorUserID:   actor,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     e.now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.actions.PublishMatchAction(ctx, rec); err != nil {
			e.logger.WithError(err).WithFields(logrus.Fields{
				"match":  rec.MatchID,
				"action": rec.ActionIndex,
			}).Warn("failed to publish match action")
		}
	}()
}

// mirrorUnsafe writes the audit snapshot in the background. Failures are
// logged and never reach the match.
func (e *Engine) mirrorUnsafe(m *Match) {
	if e.mirror == nil {
		return
	}
	snap := m.snapshotUnsafe()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.mirror.UpsertMatchSnapshot(ctx, snap.RoomCode, snap); err != nil {
			e.logger.WithError(err).WithFields(logrus.Fields{
				"room":  snap.RoomCode,
				"match": snap.MatchID,
			}).Warn("failed to mirror match snapshot")
		}
	}()
}
