package game

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectQuitPolicy(t *testing.T) {
	tests := []struct {
		name        string
		original    int
		active      int
		activeTeams int
		teamMode    bool
		want        models.QuitPolicy
	}{
		{"two players forfeit", 2, 1, 1, false, models.PolicyForfeit},
		{"two players forfeit in team mode", 2, 1, 1, true, models.PolicyForfeit},
		{"free for all last standing", 4, 1, 1, false, models.PolicyLastStanding},
		{"nobody left", 4, 0, 0, false, models.PolicyAllQuit},
		{"nobody left in team mode", 4, 0, 0, true, models.PolicyAllQuit},
		{"two player room emptied", 2, 0, 0, false, models.PolicyAllQuit},
		{"one team left", 4, 2, 1, true, models.PolicyElimination},
		{"one team left with one player", 4, 1, 1, true, models.PolicyElimination},
		{"both teams still playing", 4, 2, 2, true, models.PolicyContinue},
		{"three of four remain", 4, 3, 1, false, models.PolicyContinue},
		{"two of five remain", 5, 2, 1, false, models.PolicyContinue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectQuitPolicy(tt.original, tt.active, tt.activeTeams, tt.teamMode))
		})
	}
}

func TestLastStandingScenario(t *testing.T) {
	f := newFixture(t, slowConfig())
	code, users := f.seat(models.ModeIndividual, 4, 50)
	ctx := context.Background()
	require.NoError(t, f.eng.StartMatch(ctx, code, users[0].ID))

	for _, u := range users[:3] {
		require.NoError(t, f.eng.QuitMatch(ctx, code, u.ID, models.QuitVoluntary))
	}

	assert.Len(t, f.roomEmits(EventPlayerQuitGame), 2)
	assert.Len(t, f.roomEmits(EventOpponentQuit), 1)
	ended := f.lastPayload(EventGameEnded)
	assert.Equal(t, models.ReasonLastStanding, ended["reason"])
	assert.Equal(t, []uuid.UUID{users[3].ID}, ended["winners"])

	assert.Equal(t, int64(1130), f.ledger.BalanceOf(users[3].ID))
	for _, u := range users[:3] {
		assert.Equal(t, int64(950), f.ledger.BalanceOf(u.ID))
	}
	assert.Equal(t, int64(20), f.ledger.HouseTotal())
}

func TestForfeitInTwoPlayerMatch(t *testing.T) {
	f := newFixture(t, slowConfig())
	code, users := f.seat(models.ModeQuestionVsSkillgame, 2, 100)
	ctx := context.Background()
	require.NoError(t, f.eng.StartMatch(ctx, code, users[0].ID))

	require.NoError(t, f.eng.QuitMatch(ctx, code, users[1].ID, models.QuitLeftRoom))

	quit := f.lastPayload(EventOpponentQuit)
	assert.Equal(t, models.PolicyForfeit, quit["policy"])
	record := quit["quit"].(models.QuitRecord)
	assert.Equal(t, models.QuitLeftRoom, record.Reason)
	assert.Equal(t, models.TeamB, record.Team)

	ended := f.lastPayload(EventGameEnded)
	assert.Equal(t, models.ReasonForfeit, ended["reason"])
	assert.Equal(t, int64(1080), f.ledger.BalanceOf(users[0].ID))

	err := f.eng.QuitMatch(ctx, code, users[0].ID, models.QuitVoluntary)
	assert.ErrorIs(t, err, models.ErrInvalidPhaseTransition)
}

func TestEliminationInTeamMode(t *testing.T) {
	f := newFixture(t, slowConfig())
	code, users := f.seat(models.ModeQuestionVsSkillgame, 4, 100)
	ctx := context.Background()
	require.NoError(t, f.eng.StartMatch(ctx, code, users[0].ID))

	view, err := f.eng.View(code)
	require.NoError(t, err)
	teamA := view.Teams[models.TeamA]
	teamB := view.Teams[models.TeamB]
	require.Len(t, teamA, 2)
	require.Len(t, teamB, 2)

	require.NoError(t, f.eng.QuitMatch(ctx, code, teamB[0].ID, models.QuitVoluntary))
	assert.Len(t, f.roomEmits(EventPlayerQuitGame), 1)

	view, err = f.eng.View(code)
	require.NoError(t, err)
	assert.Contains(t, view.DiceRollers, teamB[1].ID)
	assert.NotContains(t, view.DiceRollers, teamB[0].ID)
	assert.NotContains(t, view.PlayerRoles, teamB[0].ID)

	require.NoError(t, f.eng.QuitMatch(ctx, code, teamB[1].ID, models.QuitDisconnect))
	ended := f.lastPayload(EventGameEnded)
	assert.Equal(t, models.ReasonElimination, ended["reason"])
	assert.ElementsMatch(t, []uuid.UUID{teamA[0].ID, teamA[1].ID}, ended["winners"])

	for _, p := range teamA {
		assert.Equal(t, int64(1080), f.ledger.BalanceOf(p.ID))
	}
	for _, p := range teamB {
		assert.Equal(t, int64(900), f.ledger.BalanceOf(p.ID))
	}
}

func TestQuitPromotesChooser(t *testing.T) {
	f := newFixture(t, slowConfig())
	code, users := f.seat(models.ModeQuestionVsSkillgame, 4, 0)
	ctx := context.Background()
	require.NoError(t, f.eng.StartMatch(ctx, code, users[0].ID))

	view, err := f.eng.View(code)
	require.NoError(t, err)
	rollers := view.DiceRollers
	require.Len(t, rollers, 2)
	require.Equal(t, users[0].ID, rollers[0])

	require.NoError(t, f.eng.RollDie(ctx, code, rollers[0], 6))
	require.NoError(t, f.eng.RollDie(ctx, code, rollers[1], 1))

	teammate := view.Teams[models.TeamA][1].ID
	require.NoError(t, f.eng.QuitMatch(ctx, code, users[0].ID, models.QuitVoluntary))

	view, err = f.eng.View(code)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseChoice, view.Phase)
	require.NotNil(t, view.Winner)
	assert.Equal(t, teammate, *view.Winner)
	promoted := f.lastPayload(EventDieRollWinner)
	assert.Equal(t, true, promoted["promoted"])

	require.NoError(t, f.eng.MakeChoice(ctx, code, teammate, models.RoleQuestions, "", ""))
}

func TestQuitRejectsStrangersAndRepeats(t *testing.T) {
	f := newFixture(t, slowConfig())
	code, users := f.seat(models.ModeIndividual, 3, 0)
	ctx := context.Background()
	require.NoError(t, f.eng.StartMatch(ctx, code, users[0].ID))

	assert.ErrorIs(t, f.eng.QuitMatch(ctx, code, uuid.New(), models.QuitVoluntary), models.ErrPlayerNotInMatch)
	require.NoError(t, f.eng.QuitMatch(ctx, code, users[1].ID, models.QuitVoluntary))
	assert.ErrorIs(t, f.eng.QuitMatch(ctx, code, users[1].ID, models.QuitVoluntary), models.ErrPlayerNotInMatch)
	assert.ErrorIs(t, f.eng.QuitMatch(ctx, "ABCD-EFGH", users[0].ID, models.QuitVoluntary), models.ErrMatchNotFound)
}

func TestHandleDisconnectTimeout(t *testing.T) {
	f := newFixture(t, slowConfig())
	code, users := f.seat(models.ModeIndividual, 2, 0)
	require.NoError(t, f.eng.StartMatch(context.Background(), code, users[0].ID))

	f.eng.HandleDisconnectTimeout(code, users[1].ID)
	ended := f.lastPayload(EventGameEnded)
	assert.Equal(t, models.ReasonForfeit, ended["reason"])
	quit := f.lastPayload(EventOpponentQuit)["quit"].(models.QuitRecord)
	assert.Equal(t, models.QuitDisconnect, quit.Reason)

	// a second timeout after the match ended is ignored
	f.eng.HandleDisconnectTimeout(code, users[1].ID)
	f.eng.HandleDisconnectTimeout("GONE-GONE", users[1].ID)
	assert.Len(t, f.roomEmits(EventGameEnded), 1)
}
