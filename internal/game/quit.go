package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/jason-s-yu/arena/internal/settlement"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// QuitMatch removes a player from a running match and applies the quit
// policy. The player keeps their room slot unless the caller also removes it.
func (e *Engine) QuitMatch(ctx context.Context, code string, userID uuid.UUID, reason models.QuitReason) error {
	m, err := e.lookup(code)
	if err != nil {
		return err
	}
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.Ended {
		return fmt.Errorf("quit after the match ended: %w", models.ErrInvalidPhaseTransition)
	}
	if !m.isActiveUnsafe(userID) {
		return fmt.Errorf("quit: %w", models.ErrPlayerNotInMatch)
	}

	p, _ := m.participantUnsafe(userID)
	record := models.QuitRecord{
		UserID: userID,
		Name:   p.Name,
		Score:  m.Scores[userID],
		Team:   p.Team,
		At:     e.now(),
		Reason: reason,
	}
	m.Quits[userID] = record
	delete(m.Roles, userID)

	active := m.activeIDsUnsafe()
	policy := SelectQuitPolicy(len(m.Roster), len(active), m.activeTeamCountUnsafe(), m.Mode.TeamMode())

	log := e.log(m).WithFields(logrus.Fields{
		"user":   userID,
		"policy": policy,
		"reason": reason,
		"active": len(active),
	})
	log.Info("player quit match")
	e.logActionUnsafe(m, userID, actionQuit, map[string]interface{}{
		"reason": reason,
		"policy": policy,
		"score":  record.Score,
	})

	if policy == models.PolicyContinue {
		e.vacateUnsafe(m, userID, p.Team)
		e.emitAll(m.RoomCode, EventPlayerQuitGame, map[string]interface{}{
			"quit":          record,
			"policy":        policy,
			"activePlayers": active,
		})
		e.emitRolesUnsafe(m)
		e.emitStateUnsafe(m)
		return nil
	}

	f := finish{policy: policy, reason: policy.Reason()}
	switch policy {
	case models.PolicyAllQuit:
		f.kind = settlement.KindAllQuit
	case models.PolicyElimination:
		f.kind = settlement.KindWinners
		for _, team := range []models.Team{models.TeamA, models.TeamB} {
			if left := m.activeOnTeamUnsafe(team); len(left) > 0 {
				f.winners = left
			}
		}
	default:
		f.kind = settlement.KindWinners
		f.winners = active
	}

	e.emitAll(m.RoomCode, EventOpponentQuit, map[string]interface{}{
		"quit":    record,
		"policy":  policy,
		"reason":  f.reason,
		"winners": f.winners,
	})
	e.finishUnsafe(ctx, m, f)
	return nil
}

// vacateUnsafe hands a quitter's negotiation duties to a teammate. Assumes
// lock is held.
func (e *Engine) vacateUnsafe(m *Match, quitter uuid.UUID, team models.Team) {
	switch m.Phase {
	case models.PhaseDieRoll:
		if !lo.Contains(m.Rollers, quitter) {
			return
		}
		m.Rollers = lo.Without(m.Rollers, quitter)
		delete(m.Rolls, quitter)
		if sub, ok := lo.Find(m.activeOnTeamUnsafe(team), func(id uuid.UUID) bool {
			return !lo.Contains(m.Rollers, id)
		}); ok {
			m.Rollers = append(m.Rollers, sub)
			e.log(m).WithField("user", sub).Info("promoted replacement dice roller")
		}
		e.resolveRollsUnsafe(m)

	case models.PhaseChoice:
		if m.ChoiceWinner != quitter {
			return
		}
		candidates := m.activeOnTeamUnsafe(team)
		if len(candidates) == 0 {
			candidates = m.activeIDsUnsafe()
		}
		m.ChoiceWinner = candidates[0]
		winner, _ := m.participantUnsafe(m.ChoiceWinner)
		e.emitAll(m.RoomCode, EventDieRollWinner, map[string]interface{}{
			"winner":   m.playerViewUnsafe(winner),
			"promoted": true,
		})
		e.log(m).WithField("user", winner.UserID).Info("promoted replacement chooser")
	}
}

// HandleDisconnectTimeout treats a player whose reconnect window lapsed as
// quit. It is meant for room.Registry.OnDisconnectTimeout.
func (e *Engine) HandleDisconnectTimeout(code string, userID uuid.UUID) {
	err := e.QuitMatch(context.Background(), code, userID, models.QuitDisconnect)
	if err != nil && !errors.Is(err, models.ErrMatchNotFound) && !models.IsRaceError(err) {
		e.logger.WithError(err).WithFields(logrus.Fields{"room": code, "user": userID}).Warn("disconnect quit failed")
	}
}
