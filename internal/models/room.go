package models

import "github.com/google/uuid"

// Mode selects how a match is played.
type Mode string

const (
	// ModeIndividual gives every player the same random trivia topic.
	ModeIndividual Mode = "individual-vs-individual"
	// ModeSkillgame gives every player the same random mini-game.
	ModeSkillgame Mode = "skillgame-vs-skillgame"
	// ModeQuestionVsSkillgame pits team A against team B; a die roll decides
	// which team picks its activity.
	ModeQuestionVsSkillgame Mode = "question-vs-skillgame"
)

// TeamMode reports whether players are split into two opposing teams.
func (m Mode) TeamMode() bool {
	return m == ModeQuestionVsSkillgame
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeIndividual, ModeSkillgame, ModeQuestionVsSkillgame:
		return true
	}
	return false
}

type Team string

const (
	TeamNone Team = ""
	TeamA    Team = "A"
	TeamB    Team = "B"
)

// Opponent returns the other team.
func (t Team) Opponent() Team {
	if t == TeamA {
		return TeamB
	}
	return TeamA
}

type RoomStatus string

const (
	RoomWaiting      RoomStatus = "waiting"
	RoomReadyToStart RoomStatus = "ready-to-start"
	RoomStarting     RoomStatus = "starting"
)

const (
	MinPlayers = 2
	MaxPlayers = 10
)

// RoomSettings is what the owner configures before a match. The wager is
// copied onto the match at start, so later edits never reach a running match.
type RoomSettings struct {
	Mode        Mode   `json:"mode" validate:"required,oneof=individual-vs-individual skillgame-vs-skillgame question-vs-skillgame"`
	Wager       int64  `json:"wager" validate:"gte=0"`
	PlayerCount int    `json:"playerCount" validate:"gte=2,lte=10"`
	Difficulty  string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Topic       string `json:"topic,omitempty"`
	Rounds      int    `json:"rounds" validate:"gte=1,lte=10"`
}

// DefaultRoomSettings mirrors what a room gets when the owner sends nothing.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		Mode:        ModeQuestionVsSkillgame,
		Wager:       0,
		PlayerCount: MinPlayers,
		Difficulty:  "medium",
		Rounds:      1,
	}
}

// WithDefaults fills zero fields from DefaultRoomSettings.
func (s RoomSettings) WithDefaults() RoomSettings {
	def := DefaultRoomSettings()
	if s.Mode == "" {
		s.Mode = def.Mode
	}
	if s.PlayerCount == 0 {
		s.PlayerCount = def.PlayerCount
	}
	if s.Difficulty == "" {
		s.Difficulty = def.Difficulty
	}
	if s.Rounds == 0 {
		s.Rounds = def.Rounds
	}
	return s
}

// PlayerSlot is one participant of a room.
type PlayerSlot struct {
	UserID    uuid.UUID `json:"id"`
	ConnID    uuid.UUID `json:"-"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Team      Team      `json:"team,omitempty"`
	IsReady   bool      `json:"isReady"`
	IsOwner   bool      `json:"isOwner"`
	Connected bool      `json:"connected"`
}
