package strategy

import (
	"fmt"
	"slices"

	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/internal/requirement"
)

// openStrategy lets players self-select exactly one role. Teams are decided
// later, outside the queue.
type openStrategy struct{}

func (openStrategy) Distribution() models.Distribution { return models.DistributionOpen }

func (openStrategy) ValidateJoin(lobby models.Lobby, playerID string, declared []models.Role) (JoinPlan, error) {
	if err := checkJoinable(lobby, playerID, declared); err != nil {
		return JoinPlan{}, err
	}
	if len(declared) != 1 {
		return JoinPlan{}, errs.NewValidationError("roles", "exactly one role is required")
	}

	role := declared[0]
	if role.Base.IsTeam() {
		return JoinPlan{}, errs.NewValidationError("roles", fmt.Sprintf("%s cannot be chosen in an open lobby", role))
	}
	if _, err := requireSlot(lobby, role); err != nil {
		return JoinPlan{}, err
	}
	if !slices.Contains(requirement.AvailableRoles(declared, lobby.Queue, lobby.Requirements, models.NoTeam), role) {
		return JoinPlan{}, fmt.Errorf("%w: %s is full", errs.ErrRoleUnavailable, role)
	}

	return JoinPlan{Roles: []models.Role{role}}, nil
}

func (openStrategy) ValidateLeave(lobby models.Lobby, _ *models.Draft, playerID string) error {
	return checkLeavable(lobby, playerID)
}

func (openStrategy) ShouldStartDraft(models.Lobby, *models.Draft) bool { return false }

func (openStrategy) Render(lobby models.Lobby, _ *models.Draft) QueueView {
	view := baseView(lobby)
	occ := requirement.Occupancy(lobby.Queue, lobby.Requirements)
	for _, req := range lobby.Requirements {
		view.Groups = append(view.Groups, QueueGroup{
			Title:   req.Role.String(),
			Role:    req.Role.String(),
			Needed:  max(req.Count-occ[req.Role], 0),
			Players: playerNames(lobby, func(e models.QueueEntry) bool { return e.HasRole(req.Role) }),
		})
	}
	return view
}
