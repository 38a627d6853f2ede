package game

import "github.com/jason-s-yu/arena/internal/models"

// SelectQuitPolicy decides how a match proceeds after a player leaves it.
// original is the roster size at start, active the players still in the
// match, and activeTeams how many teams still field at least one of them.
//
// The rules are checked in priority order. No active players always means
// all-quit, even in a two player match, because nobody is left to win.
func SelectQuitPolicy(original, active, activeTeams int, teamMode bool) models.QuitPolicy {
	switch {
	case active <= 0:
		return models.PolicyAllQuit
	case original == 2:
		return models.PolicyForfeit
	case teamMode && activeTeams == 1:
		return models.PolicyElimination
	case active == 1:
		return models.PolicyLastStanding
	default:
		return models.PolicyContinue
	}
}
