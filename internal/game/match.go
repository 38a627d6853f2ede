package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/jason-s-yu/arena/internal/settlement"
	"github.com/samber/lo"
)

// Participant is a player frozen into the match roster at start.
type Participant struct {
	UserID  uuid.UUID
	Name    string
	Avatar  string
	Team    models.Team
	IsOwner bool
}

// Result is the outcome of an ended match.
type Result struct {
	Winners []uuid.UUID        `json:"winners"`
	IsDraw  bool               `json:"isDraw"`
	Reason  models.EndReason   `json:"reason"`
	Policy  models.QuitPolicy  `json:"policy,omitempty"`
	Payout  settlement.Outcome `json:"payout"`
}

// Match is one running round for a room. Every field is guarded by Mu; the
// engine is the only writer.
type Match struct {
	ID        uuid.UUID
	RoomCode  string
	Mode      models.Mode
	Phase     models.Phase
	Wager     int64
	OwnerID   uuid.UUID
	StartedAt time.Time
	EndedAt   time.Time

	// Roster holds everyone debited at start, in room order.
	Roster []Participant
	Teams  map[models.Team][]uuid.UUID
	// Roles only lists players still in the match.
	Roles     map[uuid.UUID]models.Role
	TeamRoles map[models.Team]models.Role

	Rollers      []uuid.UUID
	Rolls        map[uuid.UUID]int
	RollRound    int
	ChoiceWinner uuid.UUID
	Choice       models.Role

	// Content is fetched once and served to everyone after that.
	Content *models.RoundContent

	Scores     map[uuid.UUID]int
	TeamScores map[models.Team]int
	Answers    map[uuid.UUID]map[string]int
	Progress   map[uuid.UUID]map[string]interface{}
	Quits      map[uuid.UUID]models.QuitRecord

	RoundEndsAt       time.Time
	Ended             bool
	SettlementPending bool
	Result            *Result

	timer       *roundTimer
	timerGen    int
	introTimer  *time.Timer
	returnTimer *time.Timer
	returned    bool
	actionIndex int

	Mu sync.Mutex
}

func (m *Match) participantUnsafe(userID uuid.UUID) (Participant, bool) {
	return lo.Find(m.Roster, func(p Participant) bool { return p.UserID == userID })
}

func (m *Match) isActiveUnsafe(userID uuid.UUID) bool {
	if _, ok := m.participantUnsafe(userID); !ok {
		return false
	}
	_, quit := m.Quits[userID]
	return !quit
}

func (m *Match) rosterIDsUnsafe() []uuid.UUID {
	return lo.Map(m.Roster, func(p Participant, _ int) uuid.UUID { return p.UserID })
}

func (m *Match) activeIDsUnsafe() []uuid.UUID {
	return lo.FilterMap(m.Roster, func(p Participant, _ int) (uuid.UUID, bool) {
		_, quit := m.Quits[p.UserID]
		return p.UserID, !quit
	})
}

func (m *Match) activeOnTeamUnsafe(team models.Team) []uuid.UUID {
	return lo.Filter(m.Teams[team], func(id uuid.UUID, _ int) bool {
		_, quit := m.Quits[id]
		return !quit
	})
}

func (m *Match) activeTeamCountUnsafe() int {
	return lo.CountBy([]models.Team{models.TeamA, models.TeamB}, func(t models.Team) bool {
		return len(m.activeOnTeamUnsafe(t)) > 0
	})
}

func (m *Match) teamOfUnsafe(userID uuid.UUID) models.Team {
	p, _ := m.participantUnsafe(userID)
	return p.Team
}

// stopTimersUnsafe cancels the round and intro timers and invalidates any
// callback already in flight. Assumes lock is held.
func (m *Match) stopTimersUnsafe() {
	m.timerGen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.introTimer != nil {
		m.introTimer.Stop()
		m.introTimer = nil
	}
}

func (m *Match) snapshotUnsafe() models.MatchSnapshot {
	snap := models.MatchSnapshot{
		MatchID:           m.ID,
		RoomCode:          m.RoomCode,
		Mode:              m.Mode,
		Phase:             m.Phase,
		Wager:             m.Wager,
		Players:           m.rosterIDsUnsafe(),
		Scores:            lo.Assign(m.Scores),
		TeamScores:        lo.Assign(m.TeamScores),
		SettlementPending: m.SettlementPending,
		StartedAt:         m.StartedAt,
	}
	if m.Result != nil {
		snap.Winners = m.Result.Winners
		snap.Reason = m.Result.Reason
	}
	if m.Ended {
		ended := m.EndedAt
		snap.EndedAt = &ended
	}
	return snap
}
