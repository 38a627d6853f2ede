// internal/room/room.go
package room

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/samber/lo"
)

// Event names emitted by the registry.
const (
	EventRoomCreated     = "room-created"
	EventRoomJoined      = "room-joined"
	EventRoomUpdated     = "room-updated"
	EventPlayerLeft      = "player-left"
	EventRoomClosed      = "room-closed"
	EventRoomReadyStatus = "room-ready-status"
)

// Room is a pre-match lobby. It is only ever touched through the Registry,
// which holds Mu for every read and write.
type Room struct {
	Code      string
	Settings  models.RoomSettings
	Players   []*models.PlayerSlot
	Status    models.RoomStatus
	OwnerID   uuid.UUID
	CreatedAt time.Time

	// deleteTimer runs while the room sits empty.
	deleteTimer *time.Timer
	// disconnectTimers holds one grace timer per disconnected player.
	disconnectTimers map[uuid.UUID]*time.Timer
	closed           bool

	Mu sync.Mutex
}

// View is the client-facing projection of a Room.
type View struct {
	Code        string              `json:"code"`
	Settings    models.RoomSettings `json:"settings"`
	Players     []models.PlayerSlot `json:"players"`
	Status      models.RoomStatus   `json:"status"`
	OwnerID     uuid.UUID           `json:"ownerId"`
	PlayerCount int                 `json:"playerCount"`
	MaxPlayers  int                 `json:"maxPlayers"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// StartSnapshot is the immutable roster handed to the match engine while the
// room is locked for a start.
type StartSnapshot struct {
	Code     string
	Settings models.RoomSettings
	Players  []models.PlayerSlot
	OwnerID  uuid.UUID
}

// NormalizeCode accepts codes the way people type them.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.ReplaceAll(code, " ", "")
}

// viewUnsafe builds the projection. Assumes lock is held.
func (rm *Room) viewUnsafe() View {
	return View{
		Code:     rm.Code,
		Settings: rm.Settings,
		Players: lo.Map(rm.Players, func(p *models.PlayerSlot, _ int) models.PlayerSlot {
			return *p
		}),
		Status:      rm.Status,
		OwnerID:     rm.OwnerID,
		PlayerCount: len(rm.Players),
		MaxPlayers:  rm.Settings.PlayerCount,
		CreatedAt:   rm.CreatedAt,
	}
}

// slotUnsafe finds a player's slot. Assumes lock is held.
func (rm *Room) slotUnsafe(userID uuid.UUID) (*models.PlayerSlot, int) {
	for i, p := range rm.Players {
		if p.UserID == userID {
			return p, i
		}
	}
	return nil, -1
}

func (rm *Room) isFullUnsafe() bool {
	return len(rm.Players) >= rm.Settings.PlayerCount
}

func (rm *Room) allReadyUnsafe() bool {
	return len(rm.Players) > 0 && lo.EveryBy(rm.Players, func(p *models.PlayerSlot) bool { return p.IsReady })
}

// recomputeStatusUnsafe applies the ready-to-start rule. A room whose match
// is running keeps its starting status until the match hands it back.
func (rm *Room) recomputeStatusUnsafe() {
	if rm.Status == models.RoomStarting {
		return
	}
	if rm.isFullUnsafe() && rm.allReadyUnsafe() {
		rm.Status = models.RoomReadyToStart
	} else {
		rm.Status = models.RoomWaiting
	}
}

// teamCountsUnsafe counts players per team.
func (rm *Room) teamCountsUnsafe() (a, b int) {
	for _, p := range rm.Players {
		switch p.Team {
		case models.TeamA:
			a++
		case models.TeamB:
			b++
		}
	}
	return a, b
}

// rebalanceTeamsUnsafe alternates every player across A and B in join order.
// Used when a room switches into team mode.
func (rm *Room) rebalanceTeamsUnsafe() {
	for i, p := range rm.Players {
		if i%2 == 0 {
			p.Team = models.TeamA
		} else {
			p.Team = models.TeamB
		}
	}
}

func (rm *Room) clearTeamsUnsafe() {
	for _, p := range rm.Players {
		p.Team = models.TeamNone
	}
}

func (rm *Room) stopTimersUnsafe() {
	if rm.deleteTimer != nil {
		rm.deleteTimer.Stop()
		rm.deleteTimer = nil
	}
	for id, t := range rm.disconnectTimers {
		t.Stop()
		delete(rm.disconnectTimers, id)
	}
}
