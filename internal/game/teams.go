package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/samber/lo"
)

// assignment is the initial roster split of a match.
type assignment struct {
	teams   map[models.Team][]uuid.UUID
	teamOf  map[uuid.UUID]models.Team
	rollers []uuid.UUID
}

// assignTeams splits players for mode. Outside team mode everyone plays on A
// and nobody rolls. In team mode the teams picked in the room are kept when
// both are populated; otherwise the owner leads A, a random player leads B and
// the rest alternate. The first member of each team rolls the die.
func assignTeams(players []models.PlayerSlot, ownerID uuid.UUID, mode models.Mode, intn func(int) int) assignment {
	out := assignment{
		teams:  map[models.Team][]uuid.UUID{models.TeamA: {}, models.TeamB: {}},
		teamOf: make(map[uuid.UUID]models.Team, len(players)),
	}
	put := func(id uuid.UUID, team models.Team) {
		out.teams[team] = append(out.teams[team], id)
		out.teamOf[id] = team
	}

	if !mode.TeamMode() {
		for _, p := range players {
			put(p.UserID, models.TeamA)
		}
		return out
	}

	// Owner first so they lead whichever team they sit on.
	ordered := make([]models.PlayerSlot, 0, len(players))
	if owner, ok := lo.Find(players, func(p models.PlayerSlot) bool { return p.UserID == ownerID }); ok {
		ordered = append(ordered, owner)
	}
	ordered = append(ordered, lo.Filter(players, func(p models.PlayerSlot, _ int) bool { return p.UserID != ownerID })...)

	joinA := lo.CountBy(ordered, func(p models.PlayerSlot) bool { return p.Team == models.TeamA })
	joinB := lo.CountBy(ordered, func(p models.PlayerSlot) bool { return p.Team == models.TeamB })

	if joinA > 0 && joinB > 0 && joinA+joinB == len(ordered) {
		for _, p := range ordered {
			put(p.UserID, p.Team)
		}
	} else if len(ordered) > 0 {
		put(ordered[0].UserID, models.TeamA)
		rest := ordered[1:]
		if len(rest) > 0 {
			leader := intn(len(rest))
			put(rest[leader].UserID, models.TeamB)
			others := append(append([]models.PlayerSlot{}, rest[:leader]...), rest[leader+1:]...)
			for i, p := range others {
				if i%2 == 0 {
					put(p.UserID, models.TeamA)
				} else {
					put(p.UserID, models.TeamB)
				}
			}
		}
	}

	for _, team := range []models.Team{models.TeamA, models.TeamB} {
		if members := out.teams[team]; len(members) > 0 {
			out.rollers = append(out.rollers, members[0])
		}
	}
	return out
}
