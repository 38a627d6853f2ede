package models

import (
	"time"

	"github.com/google/uuid"
)

// Phase is a state of the match state machine.
type Phase string

const (
	PhaseRandomSelection Phase = "random-selection"
	PhaseDieRoll         Phase = "die-roll"
	PhaseChoice          Phase = "choice"
	PhaseQuestionRound   Phase = "question-round"
	PhaseSkillgameRound  Phase = "skillgame-round"
	PhaseEnded           Phase = "ended"
)

// IsRound reports whether the round timer is running in this phase.
func (p Phase) IsRound() bool {
	return p == PhaseQuestionRound || p == PhaseSkillgameRound
}

// Role is the activity a player performs during the round.
type Role string

const (
	RoleQuestions Role = "questions"
	RoleSkillgame Role = "skillgame"
	RoleWaiting   Role = "waiting"
	RoleQuit      Role = "quit"
)

// Complement returns the activity the opposing team gets.
func (r Role) Complement() Role {
	if r == RoleQuestions {
		return RoleSkillgame
	}
	return RoleQuestions
}

// IsActivity reports whether r can be chosen for a round.
func (r Role) IsActivity() bool {
	return r == RoleQuestions || r == RoleSkillgame
}

// RoundPhase maps a chosen activity onto its round phase.
func (r Role) RoundPhase() Phase {
	if r == RoleSkillgame {
		return PhaseSkillgameRound
	}
	return PhaseQuestionRound
}

// QuitPolicy is the termination rule applied after a player leaves a match.
type QuitPolicy string

const (
	PolicyForfeit      QuitPolicy = "forfeit"
	PolicyElimination  QuitPolicy = "elimination"
	PolicyLastStanding QuitPolicy = "last-standing"
	PolicyAllQuit      QuitPolicy = "all-quit"
	PolicyContinue     QuitPolicy = "continue"
)

// EndReason tags a settlement so clients can explain the outcome.
type EndReason string

const (
	ReasonTimeUp       EndReason = "time_up"
	ReasonDraw         EndReason = "draw"
	ReasonForfeit      EndReason = "forfeit"
	ReasonElimination  EndReason = "elimination"
	ReasonLastStanding EndReason = "last_player_standing"
	ReasonAllQuit      EndReason = "all_quit"
)

// Reason maps a terminating quit policy to its end reason.
func (p QuitPolicy) Reason() EndReason {
	switch p {
	case PolicyForfeit:
		return ReasonForfeit
	case PolicyElimination:
		return ReasonElimination
	case PolicyLastStanding:
		return ReasonLastStanding
	case PolicyAllQuit:
		return ReasonAllQuit
	}
	return ""
}

type QuitReason string

const (
	QuitVoluntary  QuitReason = "quit"
	QuitDisconnect QuitReason = "disconnect"
	QuitLeftRoom   QuitReason = "left-room"
)

// QuitRecord is written once when a player leaves a running match.
type QuitRecord struct {
	UserID uuid.UUID  `json:"playerId"`
	Name   string     `json:"name"`
	Score  int        `json:"score"`
	Team   Team       `json:"team,omitempty"`
	At     time.Time  `json:"at"`
	Reason QuitReason `json:"reason"`
}

// Question is a single trivia item. The answer index never leaves the server.
type Question struct {
	ID       string   `json:"id"`
	Topic    string   `json:"topic"`
	Text     string   `json:"question"`
	Options  []string `json:"options"`
	Answer   int      `json:"-"`
	Duration int      `json:"timeLimit,omitempty"`
}

// MiniGame describes a skill game played inside a round.
type MiniGame struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Description  string `json:"description"`
	Instructions string `json:"instructions"`
}

// RoundContent is fetched once per match and then served to everyone,
// including spectators and reconnecting players.
type RoundContent struct {
	Topic     string     `json:"topic,omitempty"`
	Questions []Question `json:"questions,omitempty"`
	Game      *MiniGame  `json:"game,omitempty"`
}

// MatchSnapshot is the audit row mirrored to durable storage.
type MatchSnapshot struct {
	MatchID           uuid.UUID         `json:"matchId"`
	RoomCode          string            `json:"roomCode"`
	Mode              Mode              `json:"mode"`
	Phase             Phase             `json:"phase"`
	Wager             int64             `json:"wager"`
	Players           []uuid.UUID       `json:"players"`
	Scores            map[uuid.UUID]int `json:"scores"`
	TeamScores        map[Team]int      `json:"teamScores"`
	Winners           []uuid.UUID       `json:"winners"`
	Reason            EndReason         `json:"reason,omitempty"`
	SettlementPending bool              `json:"settlementPending"`
	StartedAt         time.Time         `json:"startedAt"`
	EndedAt           *time.Time        `json:"endedAt,omitempty"`
}
