package models

import "errors"

// ArenaError is a sentinel error that is reported back to the originating
// connection as a structured error event.
type ArenaError string

// Error implements the error interface.
func (e ArenaError) Error() string {
	return string(e)
}

const (
	ErrRoomNotFound           ArenaError = "room not found"
	ErrRoomFull               ArenaError = "room is full"
	ErrNotOwner               ArenaError = "only the room owner can do that"
	ErrNotReady               ArenaError = "room is not ready to start"
	ErrInvalidPhaseTransition ArenaError = "action is not allowed in the current phase"
	ErrInsufficientFunds      ArenaError = "insufficient funds"
	ErrPlayerNotInMatch       ArenaError = "player is not in this match"
	ErrMatchNotFound          ArenaError = "no active match for this room"
	ErrNotInRoom              ArenaError = "player is not in this room"
	ErrInvalidSettings        ArenaError = "invalid room settings"
	ErrInvalidChoice          ArenaError = "invalid choice"
	ErrInvalidScore           ArenaError = "invalid score"
	ErrInvalidRoll            ArenaError = "die roll must be between 1 and 6"
	ErrUnknownUser            ArenaError = "unknown user"
)

var errorCodes = map[ArenaError]string{
	ErrRoomNotFound:           "room_not_found",
	ErrRoomFull:               "room_full",
	ErrNotOwner:               "not_owner",
	ErrNotReady:               "not_ready",
	ErrInvalidPhaseTransition: "invalid_phase_transition",
	ErrInsufficientFunds:      "insufficient_funds",
	ErrPlayerNotInMatch:       "player_not_in_match",
	ErrMatchNotFound:          "match_not_found",
	ErrNotInRoom:              "not_in_room",
	ErrInvalidSettings:        "invalid_settings",
	ErrInvalidChoice:          "invalid_choice",
	ErrInvalidScore:           "invalid_score",
	ErrInvalidRoll:            "invalid_roll",
	ErrUnknownUser:            "unknown_user",
}

// ErrorCode returns the wire code for the first ArenaError in err's chain,
// or "internal" when err carries none.
func ErrorCode(err error) string {
	var ae ArenaError
	if errors.As(err, &ae) {
		if code, ok := errorCodes[ae]; ok {
			return code
		}
	}
	return "internal"
}

// IsRaceError reports whether err is the kind a stale client retry produces.
// These are logged and dropped instead of being surfaced to the user.
func IsRaceError(err error) bool {
	return errors.Is(err, ErrInvalidPhaseTransition) || errors.Is(err, ErrPlayerNotInMatch)
}
