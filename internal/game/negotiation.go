package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/samber/lo"
)

// RollDie records a roller's die. A roll of 0 asks the server to roll.
func (e *Engine) RollDie(ctx context.Context, code string, userID uuid.UUID, roll int) error {
	if roll != 0 && (roll < 1 || roll > 6) {
		return fmt.Errorf("roll %d: %w", roll, models.ErrInvalidRoll)
	}
	m, err := e.lookup(code)
	if err != nil {
		return err
	}
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.Ended || m.Phase != models.PhaseDieRoll {
		return fmt.Errorf("roll in %s: %w", m.Phase, models.ErrInvalidPhaseTransition)
	}
	if !m.isActiveUnsafe(userID) {
		return fmt.Errorf("roll: %w", models.ErrPlayerNotInMatch)
	}
	if !lo.Contains(m.Rollers, userID) {
		return fmt.Errorf("%s is not a dice roller: %w", userID, models.ErrInvalidPhaseTransition)
	}
	if _, rolled := m.Rolls[userID]; rolled {
		return fmt.Errorf("%s already rolled: %w", userID, models.ErrInvalidPhaseTransition)
	}
	if roll == 0 {
		roll = e.dice.Roll(6)
	}
	m.Rolls[userID] = roll

	p, _ := m.participantUnsafe(userID)
	e.emitAll(m.RoomCode, EventDieRolled, map[string]interface{}{
		"playerId":   userID,
		"playerName": p.Name,
		"roll":       roll,
		"rollRound":  m.RollRound,
	})
	e.emitScreenUnsafe(m, userID, "die-rolled", map[string]interface{}{"roll": roll, "playerName": p.Name})
	e.logActionUnsafe(m, userID, actionRoll, map[string]interface{}{"roll": roll, "rollRound": m.RollRound})

	e.resolveRollsUnsafe(m)
	return nil
}

// resolveRollsUnsafe picks the high roller once everyone has rolled. A tie at
// the top sends only the tied rollers back for another roll. Assumes lock is
// held.
func (e *Engine) resolveRollsUnsafe(m *Match) {
	if len(m.Rollers) == 0 {
		return
	}
	for _, id := range m.Rollers {
		if _, ok := m.Rolls[id]; !ok {
			return
		}
	}

	high := lo.Max(lo.Map(m.Rollers, func(id uuid.UUID, _ int) int { return m.Rolls[id] }))
	top := lo.Filter(m.Rollers, func(id uuid.UUID, _ int) bool { return m.Rolls[id] == high })

	if len(top) > 1 {
		m.RollRound++
		m.Rollers = top
		m.Rolls = make(map[uuid.UUID]int)
		e.emitAll(m.RoomCode, EventDieRollTie, map[string]interface{}{
			"players":   top,
			"roll":      high,
			"rollRound": m.RollRound,
		})
		e.log(m).WithField("roll", high).Info("die roll tied, re-rolling")
		e.emitStateUnsafe(m)
		return
	}

	m.ChoiceWinner = top[0]
	m.Phase = models.PhaseChoice
	winner, _ := m.participantUnsafe(m.ChoiceWinner)
	e.emitAll(m.RoomCode, EventDieRollWinner, map[string]interface{}{
		"winner":      m.playerViewUnsafe(winner),
		"highestRoll": high,
	})
	e.emitScreenUnsafe(m, winner.UserID, "die-roll-winner", map[string]interface{}{"winner": winner.Name, "highestRoll": high})
	e.emitStateUnsafe(m)
}

// MakeChoice lets the die winner pick their team's activity. The other team
// gets the complement. topic and gameID pick the content for questions and
// the mini-game; empty values are filled at random.
func (e *Engine) MakeChoice(ctx context.Context, code string, userID uuid.UUID, choice models.Role, topic, gameID string) error {
	if !choice.IsActivity() {
		return fmt.Errorf("choice %q: %w", choice, models.ErrInvalidChoice)
	}
	if topic != "" && !e.content.ValidTopic(topic) {
		return fmt.Errorf("topic %q: %w", topic, models.ErrInvalidChoice)
	}
	var game models.MiniGame
	if gameID != "" {
		g, ok := e.content.Game(gameID)
		if !ok {
			return fmt.Errorf("game %q: %w", gameID, models.ErrInvalidChoice)
		}
		game = g
	} else {
		game = e.content.RandomGame()
	}
	if topic == "" {
		topic = e.content.RandomTopic()
	}

	m, err := e.lookup(code)
	if err != nil {
		return err
	}
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.Ended || m.Phase != models.PhaseChoice {
		return fmt.Errorf("choice in %s: %w", m.Phase, models.ErrInvalidPhaseTransition)
	}
	if m.ChoiceWinner != userID {
		return fmt.Errorf("only the die winner chooses: %w", models.ErrInvalidPhaseTransition)
	}

	if m.Content == nil {
		questions, err := e.content.Questions(ctx, topic, e.cfg.QuestionCount)
		if err != nil {
			return fmt.Errorf("load questions for %s: %w", topic, err)
		}
		m.Content = &models.RoundContent{Topic: topic, Questions: questions, Game: &game}
	}

	winnerTeam := m.teamOfUnsafe(userID)
	m.Choice = choice
	m.TeamRoles[winnerTeam] = choice
	m.TeamRoles[winnerTeam.Opponent()] = choice.Complement()
	for _, id := range m.activeIDsUnsafe() {
		m.Roles[id] = m.TeamRoles[m.teamOfUnsafe(id)]
	}

	e.emitAll(m.RoomCode, EventChoiceMade, map[string]interface{}{
		"choice":         choice,
		"topic":          m.Content.Topic,
		"game":           m.Content.Game,
		"winner":         userID,
		"teamRoundTypes": lo.Assign(m.TeamRoles),
		"playerRoles":    lo.Assign(m.Roles),
		"timeLeft":       seconds(e.cfg.RoundDuration),
	})
	e.logActionUnsafe(m, userID, actionChoice, map[string]interface{}{
		"choice": choice,
		"topic":  m.Content.Topic,
		"game":   m.Content.Game.ID,
	})
	e.log(m).WithField("choice", choice).Info("choice made")

	e.startRoundUnsafe(m, choice.RoundPhase())
	return nil
}
