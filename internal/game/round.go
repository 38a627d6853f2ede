package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/samber/lo"
)

// SubmitScore adds points for the caller during the round.
func (e *Engine) SubmitScore(code string, userID uuid.UUID, score int) error {
	if score < 0 {
		return fmt.Errorf("score %d: %w", score, models.ErrInvalidScore)
	}
	m, err := e.lookup(code)
	if err != nil {
		return err
	}
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.Ended || !m.Phase.IsRound() {
		return fmt.Errorf("score in %s: %w", m.Phase, models.ErrInvalidPhaseTransition)
	}
	if !m.isActiveUnsafe(userID) {
		return fmt.Errorf("score: %w", models.ErrPlayerNotInMatch)
	}

	p, _ := m.participantUnsafe(userID)
	m.Scores[userID] += score
	if m.Mode.TeamMode() {
		m.TeamScores[p.Team] += score
	}

	e.emitAll(m.RoomCode, EventScoreUpdated, map[string]interface{}{
		"team":         p.Team,
		"playerId":     userID,
		"playerName":   p.Name,
		"scoreAdded":   score,
		"teamScore":    m.TeamScores[p.Team],
		"playerScores": lo.Assign(m.Scores),
		"mode":         m.Mode,
	})
	e.emitScreenUnsafe(m, userID, "score-updated", map[string]interface{}{
		"score":      score,
		"totalScore": m.Scores[userID],
		"playerName": p.Name,
	})
	e.logActionUnsafe(m, userID, actionScore, map[string]interface{}{"score": score})
	return nil
}

// SubmitAnswer records a trivia answer and mirrors it to spectators.
func (e *Engine) SubmitAnswer(code string, userID uuid.UUID, questionID string, answerIndex int) error {
	m, err := e.lookup(code)
	if err != nil {
		return err
	}
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.Ended || !m.Phase.IsRound() {
		return fmt.Errorf("answer in %s: %w", m.Phase, models.ErrInvalidPhaseTransition)
	}
	if !m.isActiveUnsafe(userID) {
		return fmt.Errorf("answer: %w", models.ErrPlayerNotInMatch)
	}
	if m.Roles[userID] != models.RoleQuestions {
		return fmt.Errorf("answer from a %s player: %w", m.Roles[userID], models.ErrInvalidPhaseTransition)
	}
	if m.Content == nil || !lo.ContainsBy(m.Content.Questions, func(q models.Question) bool { return q.ID == questionID }) {
		return fmt.Errorf("question %q: %w", questionID, models.ErrInvalidChoice)
	}

	if m.Answers[userID] == nil {
		m.Answers[userID] = make(map[string]int)
	}
	m.Answers[userID][questionID] = answerIndex

	p, _ := m.participantUnsafe(userID)
	e.emitAll(m.RoomCode, EventPlayerAnswered, map[string]interface{}{
		"playerId":    userID,
		"playerName":  p.Name,
		"questionId":  questionID,
		"answerIndex": answerIndex,
	})
	e.emitScreenUnsafe(m, userID, "answer-selected", map[string]interface{}{
		"questionId":  questionID,
		"answerIndex": answerIndex,
		"playerName":  p.Name,
	})
	e.logActionUnsafe(m, userID, actionAnswer, map[string]interface{}{
		"questionId":  questionID,
		"answerIndex": answerIndex,
	})
	return nil
}

// UpdateProgress stores a skill game progress report and fans it out.
func (e *Engine) UpdateProgress(code string, userID uuid.UUID, progress map[string]interface{}) error {
	m, err := e.lookup(code)
	if err != nil {
		return err
	}
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.Ended || !m.Phase.IsRound() {
		return fmt.Errorf("progress in %s: %w", m.Phase, models.ErrInvalidPhaseTransition)
	}
	if !m.isActiveUnsafe(userID) {
		return fmt.Errorf("progress: %w", models.ErrPlayerNotInMatch)
	}

	m.Progress[userID] = lo.Assign(progress)
	all := make(map[uuid.UUID]map[string]interface{}, len(m.Progress))
	for id, p := range m.Progress {
		all[id] = lo.Assign(p)
	}

	p, _ := m.participantUnsafe(userID)
	e.emitAll(m.RoomCode, EventGameProgress, all)
	e.emitScreenUnsafe(m, userID, "game-progress", map[string]interface{}{
		"progress":   progress,
		"playerName": p.Name,
	})
	return nil
}
