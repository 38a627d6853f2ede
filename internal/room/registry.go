// internal/room/registry.go
package room

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/broadcast"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Config tunes registry timers.
type Config struct {
	// EmptyGrace is how long an empty room survives to absorb reconnect races.
	EmptyGrace time.Duration
	// DisconnectGrace is how long a dropped player keeps their slot.
	DisconnectGrace time.Duration
	// Seed makes codes and team tie-breaks reproducible in tests.
	Seed int64
}

// DefaultConfig returns production timings.
func DefaultConfig() Config {
	return Config{
		EmptyGrace:      30 * time.Second,
		DisconnectGrace: 15 * time.Second,
	}
}

// Registry is the authoritative map of room code to Room. Every mutation of a
// room happens under that room's lock, so two connections acting on the same
// room are serialized while different rooms proceed in parallel.
//
// Lock order: a Room's Mu may be held while taking the registry mu, never the
// other way round.
type Registry struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	members map[uuid.UUID]string    // userID -> room code
	conns   map[uuid.UUID]uuid.UUID // connID -> userID

	bc       broadcast.Broadcaster
	logger   logrus.FieldLogger
	cfg      Config
	validate *validator.Validate

	rndMu sync.Mutex
	rnd   *rand.Rand

	// OnDisconnectTimeout runs right before a player whose grace window lapsed
	// is removed from the room. It is typically wired to the match engine so a
	// running match treats the player as quit.
	OnDisconnectTimeout func(code string, userID uuid.UUID)
}

// NewRegistry creates an empty registry.
func NewRegistry(bc broadcast.Broadcaster, logger logrus.FieldLogger, cfg Config) *Registry {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		members:  make(map[uuid.UUID]string),
		conns:    make(map[uuid.UUID]uuid.UUID),
		bc:       bc,
		logger:   logger,
		cfg:      cfg,
		validate: validator.New(),
		rnd:      rand.New(rand.NewSource(seed)),
	}
}

func (r *Registry) intn(n int) int {
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.rnd.Intn(n)
}

// newCodeLocked allocates an unused XXXX-XXXX code. Assumes r.mu is held.
func (r *Registry) newCodeLocked() string {
	for {
		var b strings.Builder
		for i := 0; i < 8; i++ {
			if i == 4 {
				b.WriteByte('-')
			}
			b.WriteByte(codeAlphabet[r.intn(len(codeAlphabet))])
		}
		code := b.String()
		if _, taken := r.rooms[code]; !taken {
			return code
		}
		r.logger.WithField("room", code).Debug("room code collision, regenerating")
	}
}

// lockRoom finds a live room and returns it locked.
func (r *Registry) lockRoom(code string) (*Room, error) {
	r.mu.Lock()
	rm, ok := r.rooms[code]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("room %s: %w", code, models.ErrRoomNotFound)
	}
	rm.Mu.Lock()
	if rm.closed {
		rm.Mu.Unlock()
		return nil, fmt.Errorf("room %s: %w", code, models.ErrRoomNotFound)
	}
	return rm, nil
}

func (r *Registry) log(code string) logrus.FieldLogger {
	return r.logger.WithField("room", code)
}

// RoomOf returns the code of the room a user occupies.
func (r *Registry) RoomOf(userID uuid.UUID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.members[userID]
	return code, ok
}

func (r *Registry) validateSettings(s models.RoomSettings) error {
	if err := r.validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidSettings, err)
	}
	return nil
}

// CreateRoom makes user the owner of a new room. If the user sat in another
// room they leave it first.
func (r *Registry) CreateRoom(user models.User, connID uuid.UUID, settings models.RoomSettings) (View, error) {
	settings = settings.WithDefaults()
	if err := r.validateSettings(settings); err != nil {
		return View{}, err
	}

	if prior, ok := r.RoomOf(user.ID); ok {
		if err := r.removePlayer(prior, user.ID); err != nil {
			r.log(prior).WithError(err).Warn("failed to leave prior room before create")
		}
	}

	slot := &models.PlayerSlot{
		UserID:    user.ID,
		ConnID:    connID,
		Name:      user.Username,
		Avatar:    user.DisplayAvatar(),
		IsOwner:   true,
		Connected: true,
	}
	if settings.Mode.TeamMode() {
		slot.Team = models.TeamA
	}
	rm := &Room{
		Settings:         settings,
		Players:          []*models.PlayerSlot{slot},
		Status:           models.RoomWaiting,
		OwnerID:          user.ID,
		CreatedAt:        time.Now(),
		disconnectTimers: make(map[uuid.UUID]*time.Timer),
	}

	rm.Mu.Lock()
	defer rm.Mu.Unlock()

	r.mu.Lock()
	rm.Code = r.newCodeLocked()
	r.rooms[rm.Code] = rm
	r.members[user.ID] = rm.Code
	r.conns[connID] = user.ID
	r.mu.Unlock()

	r.bc.JoinRoom(connID, rm.Code)
	view := rm.viewUnsafe()
	r.bc.EmitTo(connID, EventRoomCreated, view)

	r.log(rm.Code).WithFields(logrus.Fields{
		"user":  user.ID,
		"mode":  settings.Mode,
		"wager": settings.Wager,
	}).Info("room created")
	return view, nil
}

// JoinRoom seats user in the room. A user who already holds a slot is
// reconnecting: their connection is rebound and the roster is left alone.
func (r *Registry) JoinRoom(code string, user models.User, connID uuid.UUID) (View, error) {
	code = NormalizeCode(code)

	if prior, ok := r.RoomOf(user.ID); ok && prior != code {
		if err := r.removePlayer(prior, user.ID); err != nil {
			r.log(prior).WithError(err).Warn("failed to leave prior room before join")
		}
	}

	rm, err := r.lockRoom(code)
	if err != nil {
		return View{}, err
	}
	defer rm.Mu.Unlock()

	if slot, _ := rm.slotUnsafe(user.ID); slot != nil {
		return r.rebindUnsafe(rm, slot, connID), nil
	}

	if rm.isFullUnsafe() {
		return View{}, fmt.Errorf("room %s holds %d/%d: %w", code, len(rm.Players), rm.Settings.PlayerCount, models.ErrRoomFull)
	}

	slot := &models.PlayerSlot{
		UserID:    user.ID,
		ConnID:    connID,
		Name:      user.Username,
		Avatar:    user.DisplayAvatar(),
		Connected: true,
	}
	if len(rm.Players) == 0 {
		// Rejoining a room inside its empty grace window.
		slot.IsOwner = true
		rm.OwnerID = user.ID
	}
	if rm.Settings.Mode.TeamMode() {
		slot.Team = r.pickTeamUnsafe(rm)
	}
	if rm.deleteTimer != nil {
		rm.deleteTimer.Stop()
		rm.deleteTimer = nil
	}
	rm.Players = append(rm.Players, slot)
	rm.recomputeStatusUnsafe()

	r.mu.Lock()
	r.members[user.ID] = code
	r.conns[connID] = user.ID
	r.mu.Unlock()

	r.bc.JoinRoom(connID, code)
	view := rm.viewUnsafe()
	r.bc.EmitTo(connID, EventRoomJoined, map[string]interface{}{
		"room":        view,
		"reconnected": false,
	})
	r.bc.EmitToRoom(code, EventRoomUpdated, view)

	r.log(code).WithFields(logrus.Fields{
		"user": user.ID,
		"team": slot.Team,
	}).Info("player joined room")
	return view, nil
}

// rebindUnsafe moves an existing slot onto a new connection. Assumes lock is held.
func (r *Registry) rebindUnsafe(rm *Room, slot *models.PlayerSlot, connID uuid.UUID) View {
	oldConn := slot.ConnID
	slot.ConnID = connID
	slot.Connected = true
	if t, ok := rm.disconnectTimers[slot.UserID]; ok {
		t.Stop()
		delete(rm.disconnectTimers, slot.UserID)
	}

	r.mu.Lock()
	if oldConn != connID {
		delete(r.conns, oldConn)
	}
	r.conns[connID] = slot.UserID
	r.members[slot.UserID] = rm.Code
	r.mu.Unlock()

	if oldConn != connID {
		r.bc.LeaveRoom(oldConn, rm.Code)
	}
	r.bc.JoinRoom(connID, rm.Code)

	view := rm.viewUnsafe()
	r.bc.EmitTo(connID, EventRoomJoined, map[string]interface{}{
		"room":        view,
		"reconnected": true,
	})
	r.bc.EmitToRoom(rm.Code, EventRoomUpdated, view)

	r.log(rm.Code).WithField("user", slot.UserID).Info("player reconnected to room")
	return view
}

// pickTeamUnsafe gives the joiner to the smaller team, breaking ties at random.
func (r *Registry) pickTeamUnsafe(rm *Room) models.Team {
	a, b := rm.teamCountsUnsafe()
	switch {
	case a < b:
		return models.TeamA
	case b < a:
		return models.TeamB
	case r.intn(2) == 0:
		return models.TeamA
	default:
		return models.TeamB
	}
}

// ToggleReady flips the caller's ready flag.
func (r *Registry) ToggleReady(code string, userID uuid.UUID) (View, error) {
	rm, err := r.lockRoom(NormalizeCode(code))
	if err != nil {
		return View{}, err
	}
	defer rm.Mu.Unlock()

	slot, _ := rm.slotUnsafe(userID)
	if slot == nil {
		return View{}, fmt.Errorf("toggle ready in %s: %w", rm.Code, models.ErrNotInRoom)
	}
	if rm.Status == models.RoomStarting {
		return View{}, fmt.Errorf("toggle ready while match runs in %s: %w", rm.Code, models.ErrInvalidPhaseTransition)
	}

	slot.IsReady = !slot.IsReady
	rm.recomputeStatusUnsafe()

	view := rm.viewUnsafe()
	r.bc.EmitToRoom(rm.Code, EventRoomUpdated, view)
	r.log(rm.Code).WithFields(logrus.Fields{
		"user":   userID,
		"ready":  slot.IsReady,
		"status": rm.Status,
	}).Debug("ready toggled")
	return view, nil
}

// LeaveRoom removes the caller's slot.
func (r *Registry) LeaveRoom(code string, userID uuid.UUID) error {
	return r.removePlayer(NormalizeCode(code), userID)
}

func (r *Registry) removePlayer(code string, userID uuid.UUID) error {
	rm, err := r.lockRoom(code)
	if err != nil {
		return err
	}
	defer rm.Mu.Unlock()

	slot, idx := rm.slotUnsafe(userID)
	if slot == nil {
		return fmt.Errorf("leave %s: %w", code, models.ErrNotInRoom)
	}
	rm.Players = append(rm.Players[:idx], rm.Players[idx+1:]...)
	if t, ok := rm.disconnectTimers[userID]; ok {
		t.Stop()
		delete(rm.disconnectTimers, userID)
	}

	r.mu.Lock()
	if r.members[userID] == code {
		delete(r.members, userID)
	}
	delete(r.conns, slot.ConnID)
	r.mu.Unlock()

	var newOwner uuid.UUID
	if slot.IsOwner && len(rm.Players) > 0 {
		rm.Players[0].IsOwner = true
		rm.OwnerID = rm.Players[0].UserID
		newOwner = rm.OwnerID
	}
	if rm.Status != models.RoomStarting {
		rm.Status = models.RoomWaiting
	}

	r.bc.EmitToRoom(code, EventPlayerLeft, map[string]interface{}{
		"playerId":   userID,
		"playerName": slot.Name,
		"newOwnerId": newOwner,
	})
	r.bc.LeaveRoom(slot.ConnID, code)
	r.bc.EmitToRoom(code, EventRoomUpdated, rm.viewUnsafe())

	r.log(code).WithFields(logrus.Fields{
		"user":      userID,
		"remaining": len(rm.Players),
	}).Info("player left room")

	if len(rm.Players) == 0 {
		r.scheduleDeletionUnsafe(rm)
	}
	return nil
}

// scheduleDeletionUnsafe arms the empty-room timer. Assumes lock is held.
func (r *Registry) scheduleDeletionUnsafe(rm *Room) {
	if rm.deleteTimer != nil {
		rm.deleteTimer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(r.cfg.EmptyGrace, func() {
		rm.Mu.Lock()
		if rm.deleteTimer != timer || len(rm.Players) > 0 || rm.closed {
			rm.Mu.Unlock()
			return
		}
		rm.deleteTimer = nil
		rm.closed = true
		rm.Mu.Unlock()

		r.mu.Lock()
		if r.rooms[rm.Code] == rm {
			delete(r.rooms, rm.Code)
		}
		r.mu.Unlock()
		r.log(rm.Code).Info("empty room deleted")
	})
	rm.deleteTimer = timer
}

// CloseRoom lets the owner delete the room immediately.
func (r *Registry) CloseRoom(code string, userID uuid.UUID) error {
	code = NormalizeCode(code)
	rm, err := r.lockRoom(code)
	if err != nil {
		return err
	}
	defer rm.Mu.Unlock()

	if rm.OwnerID != userID {
		return fmt.Errorf("close %s: %w", code, models.ErrNotOwner)
	}
	if rm.Status == models.RoomStarting {
		return fmt.Errorf("close %s while a match runs: %w", code, models.ErrInvalidPhaseTransition)
	}

	rm.closed = true
	rm.stopTimersUnsafe()

	r.mu.Lock()
	delete(r.rooms, code)
	for _, p := range rm.Players {
		if r.members[p.UserID] == code {
			delete(r.members, p.UserID)
		}
		delete(r.conns, p.ConnID)
	}
	r.mu.Unlock()

	r.bc.EmitToRoom(code, EventRoomClosed, map[string]interface{}{
		"roomCode": code,
		"message":  "The room was closed by its owner",
	})
	for _, p := range rm.Players {
		r.bc.LeaveRoom(p.ConnID, code)
	}
	r.log(code).WithField("user", userID).Info("room closed by owner")
	return nil
}

// UpdateSettings replaces the room settings. Changing the wager or mode
// clears every ready flag so nobody starts on terms they did not accept.
func (r *Registry) UpdateSettings(code string, userID uuid.UUID, settings models.RoomSettings) (View, error) {
	rm, err := r.lockRoom(NormalizeCode(code))
	if err != nil {
		return View{}, err
	}
	defer rm.Mu.Unlock()

	if rm.OwnerID != userID {
		return View{}, fmt.Errorf("update settings of %s: %w", rm.Code, models.ErrNotOwner)
	}
	if rm.Status == models.RoomStarting {
		return View{}, fmt.Errorf("update settings while match runs in %s: %w", rm.Code, models.ErrInvalidPhaseTransition)
	}
	settings = settings.WithDefaults()
	if err := r.validateSettings(settings); err != nil {
		return View{}, err
	}
	if settings.PlayerCount < len(rm.Players) {
		return View{}, fmt.Errorf("%w: capacity %d below %d seated players", models.ErrInvalidSettings, settings.PlayerCount, len(rm.Players))
	}

	prev := rm.Settings
	rm.Settings = settings
	if prev.Mode.TeamMode() != settings.Mode.TeamMode() {
		if settings.Mode.TeamMode() {
			rm.rebalanceTeamsUnsafe()
		} else {
			rm.clearTeamsUnsafe()
		}
	}
	if prev.Wager != settings.Wager || prev.Mode != settings.Mode {
		for _, p := range rm.Players {
			p.IsReady = false
		}
	}
	rm.recomputeStatusUnsafe()

	view := rm.viewUnsafe()
	r.bc.EmitToRoom(rm.Code, EventRoomUpdated, view)
	r.log(rm.Code).WithFields(logrus.Fields{
		"mode":  settings.Mode,
		"wager": settings.Wager,
		"size":  settings.PlayerCount,
	}).Info("room settings updated")
	return view, nil
}

// CheckReady reports whether the room can start and why not.
func (r *Registry) CheckReady(code string) (bool, string, error) {
	rm, err := r.lockRoom(NormalizeCode(code))
	if err != nil {
		return false, "Room not found", err
	}
	defer rm.Mu.Unlock()

	switch {
	case rm.Status == models.RoomStarting:
		return false, "A match is already running", nil
	case !rm.isFullUnsafe():
		return false, fmt.Sprintf("Waiting for players (%d/%d)", len(rm.Players), rm.Settings.PlayerCount), nil
	case !rm.allReadyUnsafe():
		return false, "Not all players are ready", nil
	}
	return true, "", nil
}

// Snapshot returns the current view of a room.
func (r *Registry) Snapshot(code string) (View, error) {
	rm, err := r.lockRoom(NormalizeCode(code))
	if err != nil {
		return View{}, err
	}
	defer rm.Mu.Unlock()
	return rm.viewUnsafe(), nil
}

// ListOpen returns joinable rooms, oldest first.
func (r *Registry) ListOpen() []View {
	r.mu.Lock()
	all := lo.Values(r.rooms)
	r.mu.Unlock()

	views := make([]View, 0, len(all))
	for _, rm := range all {
		rm.Mu.Lock()
		if !rm.closed && rm.Status != models.RoomStarting && len(rm.Players) > 0 && !rm.isFullUnsafe() {
			views = append(views, rm.viewUnsafe())
		}
		rm.Mu.Unlock()
	}
	sort.Slice(views, func(i, j int) bool { return views[i].CreatedAt.Before(views[j].CreatedAt) })
	return views
}

// BeginStart validates that the owner may start a match and, while the room
// stays locked, runs fn with a frozen roster. The room flips to starting only
// when fn succeeds; on error nothing about the room changes.
func (r *Registry) BeginStart(code string, userID uuid.UUID, requireReady bool, fn func(StartSnapshot) error) error {
	rm, err := r.lockRoom(NormalizeCode(code))
	if err != nil {
		return err
	}
	defer rm.Mu.Unlock()

	if rm.OwnerID != userID {
		return fmt.Errorf("start %s: %w", rm.Code, models.ErrNotOwner)
	}
	if rm.Status == models.RoomStarting {
		return fmt.Errorf("start %s: match already running: %w", rm.Code, models.ErrInvalidPhaseTransition)
	}
	if !rm.isFullUnsafe() {
		return fmt.Errorf("room %s has %d/%d players: %w", rm.Code, len(rm.Players), rm.Settings.PlayerCount, models.ErrNotReady)
	}
	if requireReady && !rm.allReadyUnsafe() {
		waiting := lo.FilterMap(rm.Players, func(p *models.PlayerSlot, _ int) (string, bool) {
			return p.Name, !p.IsReady
		})
		return fmt.Errorf("waiting on %s: %w", strings.Join(waiting, ", "), models.ErrNotReady)
	}

	snap := StartSnapshot{
		Code:     rm.Code,
		Settings: rm.Settings,
		Players: lo.Map(rm.Players, func(p *models.PlayerSlot, _ int) models.PlayerSlot {
			return *p
		}),
		OwnerID: rm.OwnerID,
	}
	if err := fn(snap); err != nil {
		return err
	}

	rm.Status = models.RoomStarting
	r.bc.EmitToRoom(rm.Code, EventRoomUpdated, rm.viewUnsafe())
	return nil
}

// ResetAfterMatch hands the room back to the lobby: status waiting and
// every ready flag cleared.
func (r *Registry) ResetAfterMatch(code string) {
	rm, err := r.lockRoom(code)
	if err != nil {
		r.log(code).Debug("room gone before reset")
		return
	}
	defer rm.Mu.Unlock()

	rm.Status = models.RoomWaiting
	for _, p := range rm.Players {
		p.IsReady = false
	}
	rm.recomputeStatusUnsafe()
	r.bc.EmitToRoom(code, EventRoomUpdated, rm.viewUnsafe())
}

// Disconnect marks the slot bound to connID as disconnected and starts its
// grace timer. A reconnect within the window keeps the slot.
func (r *Registry) Disconnect(connID uuid.UUID) {
	r.mu.Lock()
	userID, ok := r.conns[connID]
	code := r.members[userID]
	r.mu.Unlock()
	if !ok || code == "" {
		return
	}

	rm, err := r.lockRoom(code)
	if err != nil {
		return
	}
	defer rm.Mu.Unlock()

	slot, _ := rm.slotUnsafe(userID)
	if slot == nil || slot.ConnID != connID {
		return
	}
	slot.Connected = false
	r.bc.LeaveRoom(connID, code)
	r.bc.EmitToRoom(code, EventRoomUpdated, rm.viewUnsafe())

	if old, ok := rm.disconnectTimers[userID]; ok {
		old.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(r.cfg.DisconnectGrace, func() {
		rm.Mu.Lock()
		current, ok := rm.disconnectTimers[userID]
		stale := !ok || current != timer || rm.closed
		if !stale {
			delete(rm.disconnectTimers, userID)
			if s, _ := rm.slotUnsafe(userID); s == nil || s.Connected {
				stale = true
			}
		}
		rm.Mu.Unlock()
		if stale {
			return
		}

		r.log(code).WithField("user", userID).Info("disconnect grace expired")
		if r.OnDisconnectTimeout != nil {
			r.OnDisconnectTimeout(code, userID)
		}
		if err := r.removePlayer(code, userID); err != nil {
			r.log(code).WithError(err).Debug("player already gone after disconnect timeout")
		}
	})
	rm.disconnectTimers[userID] = timer
	r.log(code).WithField("user", userID).Info("player disconnected, holding slot")
}
