package strategy

import (
	"fmt"

	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/internal/requirement"
)

// teamRoleStrategy has players pick a class and a team together. Each class
// requirement is split evenly between the teams.
type teamRoleStrategy struct{}

func (teamRoleStrategy) Distribution() models.Distribution { return models.DistributionTeamRole }

func (teamRoleStrategy) ValidateJoin(lobby models.Lobby, playerID string, declared []models.Role) (JoinPlan, error) {
	if err := checkJoinable(lobby, playerID, declared); err != nil {
		return JoinPlan{}, err
	}

	var role models.Role
	team := models.NoTeam
	for _, r := range declared {
		switch {
		case r.Base.IsTeam():
			if team != models.NoTeam {
				return JoinPlan{}, errs.NewValidationError("roles", "only one team can be chosen")
			}
			team = models.Team(r.Base)
		case role.Base == "":
			role = r
		default:
			return JoinPlan{}, errs.NewValidationError("roles", "exactly one role is required")
		}
	}
	if team == models.NoTeam || role.Base == "" {
		return JoinPlan{}, errs.NewValidationError("roles", "a role and a team are required")
	}

	req, err := requireSlot(lobby, role)
	if err != nil {
		return JoinPlan{}, err
	}
	if !req.Overfill && requirement.TeamOccupancy(lobby.Queue, role, team) >= req.Count/2 {
		return JoinPlan{}, fmt.Errorf("%w: %s is full on %s", errs.ErrRoleUnavailable, role, team.Color())
	}

	return JoinPlan{Roles: []models.Role{role, team.Tag()}}, nil
}

func (teamRoleStrategy) ValidateLeave(lobby models.Lobby, _ *models.Draft, playerID string) error {
	return checkLeavable(lobby, playerID)
}

func (teamRoleStrategy) ShouldStartDraft(models.Lobby, *models.Draft) bool { return false }

func (teamRoleStrategy) Render(lobby models.Lobby, _ *models.Draft) QueueView {
	view := baseView(lobby)
	for _, team := range []models.Team{models.TeamA, models.TeamB} {
		for _, req := range lobby.Requirements {
			if !req.Role.IsClass() {
				continue
			}
			role := req.Role
			view.Groups = append(view.Groups, QueueGroup{
				Title:   role.Colored(team).String(),
				Team:    team,
				Role:    role.String(),
				Needed:  max(req.Count/2-requirement.TeamOccupancy(lobby.Queue, role, team), 0),
				Players: playerNames(lobby, func(e models.QueueEntry) bool { return e.Team() == team && e.HasRole(role) }),
			})
		}
	}
	return view
}
