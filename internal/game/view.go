package game

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/samber/lo"
)

// ViewVersion is bumped whenever MatchView changes shape.
const ViewVersion = 1

// PlayerView is a roster entry as clients see it.
type PlayerView struct {
	ID      uuid.UUID   `json:"id"`
	Name    string      `json:"name"`
	Avatar  string      `json:"avatar"`
	Team    models.Team `json:"team,omitempty"`
	IsOwner bool        `json:"isOwner"`
	Role    models.Role `json:"role"`
}

// MatchView is the public projection of a Match. It is built field by field
// so nothing private, such as timers or answer keys, can leak.
type MatchView struct {
	Version           int                                  `json:"version"`
	MatchID           uuid.UUID                            `json:"matchId"`
	RoomCode          string                               `json:"roomCode"`
	Mode              models.Mode                          `json:"mode"`
	Phase             models.Phase                         `json:"phase"`
	IsIndividualMode  bool                                 `json:"isIndividualMode"`
	Wager             int64                                `json:"wager"`
	Players           []PlayerView                         `json:"players"`
	Teams             map[models.Team][]PlayerView         `json:"teams"`
	PlayerRoles       map[uuid.UUID]models.Role            `json:"playerRoles"`
	TeamRoundTypes    map[models.Team]models.Role          `json:"teamRoundTypes,omitempty"`
	DiceRollers       []uuid.UUID                          `json:"diceRollers"`
	DieRolls          map[uuid.UUID]int                    `json:"dieRolls"`
	Winner            *uuid.UUID                           `json:"winner,omitempty"`
	Choice            models.Role                          `json:"choice,omitempty"`
	Content           *models.RoundContent                 `json:"content,omitempty"`
	Scores            map[models.Team]int                  `json:"scores"`
	PlayerScores      map[uuid.UUID]int                    `json:"playerScores"`
	GameProgress      map[uuid.UUID]map[string]interface{} `json:"gameProgress"`
	Quits             []models.QuitRecord                  `json:"quits"`
	TimeLimit         int                                  `json:"timeLimit"`
	TimeLeft          int                                  `json:"roundTimeLeft"`
	RoundStarted      bool                                 `json:"roundStarted"`
	StartedAt         time.Time                            `json:"startedAt"`
	GameEnded         bool                                 `json:"gameEnded"`
	SettlementPending bool                                 `json:"settlementPending"`
	Result            *Result                              `json:"result,omitempty"`
}

// Summary is the short listing used for the active games feed.
type Summary struct {
	RoomCode  string       `json:"roomCode"`
	Mode      models.Mode  `json:"mode"`
	Phase     models.Phase `json:"phase"`
	Topic     string       `json:"topic,omitempty"`
	Game      string       `json:"game,omitempty"`
	Wager     int64        `json:"wager"`
	Players   []PlayerView `json:"players"`
	StartedAt time.Time    `json:"startedAt"`
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d.Round(time.Second) / time.Second)
}

func (m *Match) playerViewUnsafe(p Participant) PlayerView {
	role, ok := m.Roles[p.UserID]
	if !ok {
		role = models.RoleQuit
	}
	return PlayerView{
		ID:      p.UserID,
		Name:    p.Name,
		Avatar:  p.Avatar,
		Team:    p.Team,
		IsOwner: p.IsOwner,
		Role:    role,
	}
}

// viewUnsafe projects m as of now. Assumes lock is held.
func (m *Match) viewUnsafe(now time.Time, roundDuration time.Duration) MatchView {
	players := lo.Map(m.Roster, func(p Participant, _ int) PlayerView { return m.playerViewUnsafe(p) })
	byID := lo.KeyBy(players, func(p PlayerView) uuid.UUID { return p.ID })

	teams := make(map[models.Team][]PlayerView, len(m.Teams))
	for team, ids := range m.Teams {
		teams[team] = lo.Map(ids, func(id uuid.UUID, _ int) PlayerView { return byID[id] })
	}

	quits := lo.Values(m.Quits)
	sort.Slice(quits, func(i, j int) bool { return quits[i].At.Before(quits[j].At) })

	progress := make(map[uuid.UUID]map[string]interface{}, len(m.Progress))
	for id, p := range m.Progress {
		progress[id] = lo.Assign(p)
	}

	v := MatchView{
		Version:           ViewVersion,
		MatchID:           m.ID,
		RoomCode:          m.RoomCode,
		Mode:              m.Mode,
		Phase:             m.Phase,
		IsIndividualMode:  !m.Mode.TeamMode(),
		Wager:             m.Wager,
		Players:           players,
		Teams:             teams,
		PlayerRoles:       lo.Assign(m.Roles),
		DiceRollers:       append([]uuid.UUID{}, m.Rollers...),
		DieRolls:          lo.Assign(m.Rolls),
		Choice:            m.Choice,
		Content:           m.Content,
		Scores:            lo.Assign(m.TeamScores),
		PlayerScores:      lo.Assign(m.Scores),
		GameProgress:      progress,
		Quits:             quits,
		TimeLimit:         seconds(roundDuration),
		RoundStarted:      m.Phase.IsRound(),
		StartedAt:         m.StartedAt,
		GameEnded:         m.Ended,
		SettlementPending: m.SettlementPending,
		Result:            m.Result,
	}
	if len(m.TeamRoles) > 0 {
		v.TeamRoundTypes = lo.Assign(m.TeamRoles)
	}
	if m.ChoiceWinner != uuid.Nil {
		w := m.ChoiceWinner
		v.Winner = &w
	}
	switch {
	case m.Phase.IsRound():
		v.TimeLeft = seconds(m.RoundEndsAt.Sub(now))
	case !m.Ended:
		v.TimeLeft = v.TimeLimit
	}
	return v
}

func (m *Match) summaryUnsafe() Summary {
	s := Summary{
		RoomCode:  m.RoomCode,
		Mode:      m.Mode,
		Phase:     m.Phase,
		Wager:     m.Wager,
		StartedAt: m.StartedAt,
		Players: lo.FilterMap(m.Roster, func(p Participant, _ int) (PlayerView, bool) {
			_, quit := m.Quits[p.UserID]
			return m.playerViewUnsafe(p), !quit
		}),
	}
	if m.Content != nil {
		s.Topic = m.Content.Topic
		if m.Content.Game != nil {
			s.Game = m.Content.Game.ID
		}
	}
	return s
}
