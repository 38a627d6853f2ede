package game

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startDuel seats two players and runs them up to the choice phase with the
// owner winning the roll.
func (f *fixture) startDuel(wager int64) (string, []models.User) {
	f.t.Helper()
	ctx := context.Background()
	code, users := f.seat(models.ModeQuestionVsSkillgame, 2, wager)
	require.NoError(f.t, f.eng.StartMatch(ctx, code, users[0].ID))
	require.NoError(f.t, f.eng.RollDie(ctx, code, users[0].ID, 6))
	require.NoError(f.t, f.eng.RollDie(ctx, code, users[1].ID, 2))
	return code, users
}

func TestRollDieValidation(t *testing.T) {
	f := newFixture(t, slowConfig())
	code, users := f.seat(models.ModeQuestionVsSkillgame, 4, 0)
	ctx := context.Background()
	require.NoError(t, f.eng.StartMatch(ctx, code, users[0].ID))

	view, err := f.eng.View(code)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseDieRoll, view.Phase)
	nonRoller := view.Teams[models.TeamA][1].ID

	for _, roll := range []int{-1, 7, 12} {
		assert.ErrorIs(t, f.eng.RollDie(ctx, code, users[0].ID, roll), models.ErrInvalidRoll)
	}
	assert.ErrorIs(t, f.eng.RollDie(ctx, code, nonRoller, 3), models.ErrInvalidPhaseTransition)
	assert.ErrorIs(t, f.eng.RollDie(ctx, code, uuid.New(), 3), models.ErrPlayerNotInMatch)

	require.NoError(t, f.eng.RollDie(ctx, code, users[0].ID, 3))
	assert.ErrorIs(t, f.eng.RollDie(ctx, code, users[0].ID, 4), models.ErrInvalidPhaseTransition)

	rolled := f.lastPayload(EventDieRolled)
	assert.Equal(t, 3, rolled["roll"])
	assert.Equal(t, users[0].ID, rolled["playerId"])
}

func TestRollDieOutsideDiePhase(t *testing.T) {
	f := newFixture(t, slowConfig())
	code, users := f.seat(models.ModeIndividual, 2, 0)
	require.NoError(t, f.eng.StartMatch(context.Background(), code, users[0].ID))

	err := f.eng.RollDie(context.Background(), code, users[0].ID, 3)
	assert.ErrorIs(t, err, models.ErrInvalidPhaseTransition)
}

func TestServerRollsWhenAsked(t *testing.T) {
	f := newFixture(t, slowConfig())
	f.dice.rolls = []int{5}
	code, users := f.seat(models.ModeQuestionVsSkillgame, 2, 0)
	require.NoError(t, f.eng.StartMatch(context.Background(), code, users[0].ID))

	require.NoError(t, f.eng.RollDie(context.Background(), code, users[0].ID, 0))
	view, err := f.eng.View(code)
	require.NoError(t, err)
	assert.Equal(t, 5, view.DieRolls[users[0].ID])
}

func TestDieRollTieRerollsTiedPlayers(t *testing.T) {
	f := newFixture(t, slowConfig())
	code, users := f.seat(models.ModeQuestionVsSkillgame, 2, 0)
	ctx := context.Background()
	require.NoError(t, f.eng.StartMatch(ctx, code, users[0].ID))

	require.NoError(t, f.eng.RollDie(ctx, code, users[0].ID, 4))
	require.NoError(t, f.eng.RollDie(ctx, code, users[1].ID, 4))

	tie := f.lastPayload(EventDieRollTie)
	assert.Equal(t, 4, tie["roll"])
	assert.Equal(t, 1, tie["rollRound"])
	assert.ElementsMatch(t, []uuid.UUID{users[0].ID, users[1].ID}, tie["players"])

	view, err := f.eng.View(code)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseDieRoll, view.Phase)
	assert.Empty(t, view.DieRolls)
	assert.Nil(t, view.Winner)

	require.NoError(t, f.eng.RollDie(ctx, code, users[0].ID, 1))
	require.NoError(t, f.eng.RollDie(ctx, code, users[1].ID, 3))

	view, err = f.eng.View(code)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseChoice, view.Phase)
	require.NotNil(t, view.Winner)
	assert.Equal(t, users[1].ID, *view.Winner)
	assert.Equal(t, 3, f.lastPayload(EventDieRollWinner)["highestRoll"])
}

func TestMakeChoiceOnlyByWinner(t *testing.T) {
	f := newFixture(t, slowConfig())
	code, users := f.startDuel(0)
	ctx := context.Background()

	assert.ErrorIs(t, f.eng.MakeChoice(ctx, code, users[1].ID, models.RoleQuestions, "", ""), models.ErrInvalidPhaseTransition)
	assert.ErrorIs(t, f.eng.MakeChoice(ctx, code, users[0].ID, models.RoleWaiting, "", ""), models.ErrInvalidChoice)
	assert.ErrorIs(t, f.eng.MakeChoice(ctx, code, users[0].ID, models.RoleQuestions, "cooking", ""), models.ErrInvalidChoice)
	assert.ErrorIs(t, f.eng.MakeChoice(ctx, code, users[0].ID, models.RoleQuestions, "", "chess"), models.ErrInvalidChoice)

	view, err := f.eng.View(code)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseChoice, view.Phase)
}

func TestMakeChoiceAssignsRolesAndContent(t *testing.T) {
	f := newFixture(t, slowConfig())
	code, users := f.startDuel(0)
	ctx := context.Background()

	require.NoError(t, f.eng.MakeChoice(ctx, code, users[0].ID, models.RoleSkillgame, "history", "dart"))

	view, err := f.eng.View(code)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseSkillgameRound, view.Phase)
	assert.True(t, view.RoundStarted)
	assert.Equal(t, models.RoleSkillgame, view.PlayerRoles[users[0].ID])
	assert.Equal(t, models.RoleQuestions, view.PlayerRoles[users[1].ID])
	assert.Equal(t, models.RoleSkillgame, view.TeamRoundTypes[models.TeamA])
	assert.Equal(t, models.RoleQuestions, view.TeamRoundTypes[models.TeamB])

	require.NotNil(t, view.Content)
	assert.Equal(t, "history", view.Content.Topic)
	assert.Len(t, view.Content.Questions, 3)
	require.NotNil(t, view.Content.Game)
	assert.Equal(t, "dart", view.Content.Game.ID)

	made := f.lastPayload(EventChoiceMade)
	assert.Equal(t, models.RoleSkillgame, made["choice"])
	assert.Len(t, f.roomEmits(EventRoundStarted), 1)

	err = f.eng.MakeChoice(ctx, code, users[0].ID, models.RoleQuestions, "", "")
	assert.ErrorIs(t, err, models.ErrInvalidPhaseTransition)
}
