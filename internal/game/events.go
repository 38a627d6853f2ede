package game

// Event names emitted by the match engine.
const (
	EventGameStarted         = "game-started"
	EventGameStateUpdated    = "game-state-updated"
	EventRoundStarted        = "round-started"
	EventTimerUpdate         = "timer-update"
	EventDieRolled           = "die-rolled"
	EventDieRollTie          = "die-roll-tie"
	EventDieRollWinner       = "die-roll-winner"
	EventChoiceMade          = "choice-made"
	EventScoreUpdated        = "score-updated"
	EventPlayerAnswered      = "player-answered"
	EventPlayerScreenUpdate  = "player-screen-update"
	EventGameProgress        = "game-progress"
	EventPlayerRolesAssigned = "player-roles-assigned"
	EventGameEnded           = "game-ended"
	EventOpponentQuit        = "opponent-quit"
	EventPlayerQuitGame      = "player-quit-game"
	EventReturnToRoom        = "return-to-room"
	EventRematching          = "rematching"
	EventActiveGamesList     = "active-games-list"
)

// Action types written to the match action log.
const (
	actionStart   = "match_start"
	actionRoll    = "die_roll"
	actionChoice  = "choice"
	actionRound   = "round_start"
	actionScore   = "score"
	actionAnswer  = "answer"
	actionQuit    = "quit"
	actionEnd     = "match_end"
	actionRematch = "rematch"
)
