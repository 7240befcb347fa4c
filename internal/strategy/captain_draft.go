package strategy

import (
	"fmt"
	"slices"

	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/internal/requirement"
)

// captainDraftStrategy collects players who declare the classes they can
// play. Teams are formed by the captains' draft once the queue is ready.
type captainDraftStrategy struct{}

func (captainDraftStrategy) Distribution() models.Distribution {
	return models.DistributionCaptainDraft
}

func (captainDraftStrategy) ValidateJoin(lobby models.Lobby, playerID string, declared []models.Role) (JoinPlan, error) {
	if err := checkJoinable(lobby, playerID, declared); err != nil {
		return JoinPlan{}, err
	}

	for _, r := range declared {
		if r.Base.IsTeam() {
			return JoinPlan{}, errs.NewValidationError("roles", "teams are decided by the draft")
		}
		if r.Base == models.RolePicked {
			return JoinPlan{}, errs.NewValidationError("roles", fmt.Sprintf("%s is assigned by the draft", r))
		}
		if _, err := requireSlot(lobby, r); err != nil {
			return JoinPlan{}, err
		}
	}

	avail := requirement.AvailableRoles(declared, lobby.Queue, lobby.Requirements, models.NoTeam)
	for _, r := range declared {
		if !slices.Contains(avail, r) {
			return JoinPlan{}, fmt.Errorf("%w: %s is full", errs.ErrRoleUnavailable, r)
		}
	}

	return JoinPlan{Roles: slices.Clone(declared)}, nil
}

func (captainDraftStrategy) ValidateLeave(lobby models.Lobby, d *models.Draft, playerID string) error {
	if err := checkLeavable(lobby, playerID); err != nil {
		return err
	}
	if d == nil || (d.Phase != models.PhaseDrafting && d.Phase != models.PhaseAssigning) {
		return nil
	}

	if d.IsCaptain(playerID) {
		return fmt.Errorf("%w: captains must be substituted", errs.ErrPlayerLocked)
	}
	if e, ok := lobby.Entry(playerID); ok && e.IsPicked() {
		return fmt.Errorf("%w: picked players must be substituted", errs.ErrPlayerLocked)
	}
	return nil
}

func (captainDraftStrategy) ShouldStartDraft(lobby models.Lobby, d *models.Draft) bool {
	if d.Started() {
		return false
	}
	if lobby.Status != models.LobbyStatusQueuing {
		return false
	}
	return requirement.IsReady(lobby)
}

func (captainDraftStrategy) Render(lobby models.Lobby, d *models.Draft) QueueView {
	view := baseView(lobby)

	if !d.Started() {
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

	view.Draft = &DraftView{
		Phase:       d.Phase,
		Picker:      d.CurrentPicker(),
		Position:    d.Position,
		Total:       len(d.Picks),
		PickExpires: d.PickExpires,
		TurnExpired: d.TurnExpired,
	}

	for _, team := range []models.Team{models.TeamA, models.TeamB} {
		captain := d.Captain(team)
		view.Groups = append(view.Groups, QueueGroup{
			Title: team.Color(),
			Team:  team,
			Players: playerNames(lobby, func(e models.QueueEntry) bool {
				if e.PlayerID == captain {
					return true
				}
				for _, r := range e.Roles {
					if r.Team == team {
						return true
					}
				}
				return false
			}),
		})
	}

	view.Groups = append(view.Groups, QueueGroup{
		Title: "pool",
		Players: playerNames(lobby, func(e models.QueueEntry) bool {
			return !e.IsPicked() && !d.IsCaptain(e.PlayerID)
		}),
	})
	return view
}
