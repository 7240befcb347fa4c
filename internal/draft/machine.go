// Package draft is the captain-draft turn machine. Every function is pure:
// it takes the current draft and lobby snapshot and returns the next draft
// or a tag plan. Persisting and applying plans is the caller's job.
package draft

import (
	"fmt"
	"slices"
	"time"

	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/internal/requirement"
)

// PickPlan is the set of tags a validated pick adds to its target.
type PickPlan struct {
	Picker string
	Target string
	Team   models.Team
	Role   models.Role
	Adds   []models.RoleChange
}

// Start moves a collecting draft into DRAFTING. Captains are the single
// holders of captain-a and captain-b; the turn order is fixed here.
func Start(d models.Draft, lobby models.Lobby, now time.Time, timeout time.Duration, order models.PickOrder) (models.Draft, error) {
	if d.Started() {
		return d, errs.ErrDraftAlreadyStarted
	}

	a := lobby.Holders(models.TeamA.CaptainRole())
	b := lobby.Holders(models.TeamB.CaptainRole())
	if len(a) != 1 || len(b) != 1 || a[0] == b[0] {
		return d, fmt.Errorf("%w: found %d for team_a and %d for team_b", errs.ErrCaptainsMissing, len(a), len(b))
	}

	next := d.Clone()
	next.LobbyID = lobby.ID
	next.Phase = models.PhaseDrafting
	next.Captains = [2]string{a[0], b[0]}
	next.Picks = TurnOrder(next.Captains, pickCount(lobby), order)
	next.Position = 0
	next.TurnExpired = false
	next.StartedAt = now
	next.UpdatedAt = now

	if len(next.Picks) == 0 {
		next.Phase = models.PhaseAssigning
		next.PickExpires = nil
		return next, nil
	}

	expires := now.Add(timeout)
	next.PickExpires = &expires
	return next, nil
}

// pickCount is the number of class slots left once both captains are placed.
func pickCount(lobby models.Lobby) int {
	slots := 0
	for _, req := range lobby.Requirements {
		if req.Role.IsClass() && !req.Role.IsColored() {
			slots += req.Count
		}
	}
	if slots == 0 {
		slots = lobby.MaxPlayers
	}
	return max(slots-2, 0)
}

// TurnOrder lays out n turns between the two captains.
// Alternate is A,B,A,B; snake is A,B,B,A,A,B.
func TurnOrder(captains [2]string, n int, order models.PickOrder) []string {
	picks := make([]string, n)
	for i := range picks {
		side := i % 2
		if order == models.PickOrderSnake {
			side = ((i + 1) / 2) % 2
		}
		picks[i] = captains[side]
	}
	return picks
}

// ValidatePick checks a pick against the current turn and returns the tags
// to add to the target. The draft is not modified.
func ValidatePick(lobby models.Lobby, d models.Draft, picker, target string, role models.Role) (PickPlan, error) {
	switch {
	case d.Phase == models.PhaseCollecting || d.Phase == "":
		return PickPlan{}, errs.ErrNotDrafting
	case d.Phase != models.PhaseDrafting || d.Finished():
		return PickPlan{}, errs.ErrDraftFinished
	}

	if d.CurrentPicker() != picker {
		return PickPlan{}, errs.ErrNotYourTurn
	}

	if !role.IsClass() || role.IsColored() {
		return PickPlan{}, errs.NewValidationError("role", fmt.Sprintf("%s is not a class role", role))
	}

	entry, ok := lobby.Entry(target)
	if !ok {
		return PickPlan{}, errs.ErrNotQueued
	}
	if d.IsCaptain(target) {
		return PickPlan{}, fmt.Errorf("%w: %s is a captain", errs.ErrInvalidPickTarget, target)
	}
	if entry.IsPicked() {
		return PickPlan{}, fmt.Errorf("%w: %s was already picked", errs.ErrInvalidPickTarget, target)
	}
	if !entry.HasRole(role) {
		return PickPlan{}, fmt.Errorf("%w: %s did not queue as %s", errs.ErrInvalidPickTarget, target, role)
	}

	team := d.TeamOf(picker)
	if !slices.Contains(requirement.AvailableRoles(nil, lobby.Queue, lobby.Requirements, team), role) {
		return PickPlan{}, fmt.Errorf("%w: %s has no %s slot left", errs.ErrRoleUnavailable, team, role)
	}

	return PickPlan{
		Picker: picker,
		Target: target,
		Team:   team,
		Role:   role,
		Adds:   missing(*entry, role, role.Colored(team), models.NewRole(models.RolePicked)),
	}, nil
}

// Advance moves past the current turn. After the last turn the draft enters
// ASSIGNING and the expiry is cleared.
func Advance(d models.Draft, now time.Time, timeout time.Duration) models.Draft {
	next := d.Clone()
	if next.Position < len(next.Picks) {
		next.Position++
	}
	next.TurnExpired = false
	next.UpdatedAt = now

	if next.Finished() {
		next.Phase = models.PhaseAssigning
		next.PickExpires = nil
		return next
	}

	expires := now.Add(timeout)
	next.PickExpires = &expires
	return next
}

// TerminalAssignment gives each captain the single class their team still
// needs, as both the plain and the colored tag. lobby must already include
// the final pick.
func TerminalAssignment(lobby models.Lobby, d models.Draft) ([]models.RoleChange, error) {
	var adds []models.RoleChange
	for _, team := range []models.Team{models.TeamA, models.TeamB} {
		avail := requirement.AvailableRoles(nil, lobby.Queue, lobby.Requirements, team)
		if len(avail) != 1 {
			return nil, fmt.Errorf("%w: %s has %d open roles %v", errs.ErrAssignmentInvariant, team, len(avail), models.RoleStrings(avail))
		}

		captain := d.Captain(team)
		entry, ok := lobby.Entry(captain)
		if !ok {
			return nil, fmt.Errorf("%w: captain %s left the queue", errs.ErrAssignmentInvariant, captain)
		}
		adds = append(adds, missing(*entry, avail[0], avail[0].Colored(team))...)
	}
	return adds, nil
}

// Complete closes an assigning draft.
func Complete(d models.Draft, now time.Time) (models.Draft, error) {
	if d.Phase != models.PhaseAssigning {
		return d, fmt.Errorf("%w: draft is %s", errs.ErrNotDrafting, d.Phase)
	}
	next := d.Clone()
	next.Phase = models.PhaseComplete
	next.PickExpires = nil
	next.UpdatedAt = now
	return next, nil
}

// Expire marks the current turn as timed out. It reports false, leaving the
// draft untouched, when the deadline is not due or the turn already moved on.
func Expire(d models.Draft, now time.Time) (models.Draft, bool) {
	if d.Phase != models.PhaseDrafting || d.Finished() || d.TurnExpired || d.PickExpires == nil {
		return d, false
	}
	if now.Before(*d.PickExpires) {
		return d, false
	}

	next := d.Clone()
	next.TurnExpired = true
	next.PickExpires = nil
	next.UpdatedAt = now
	return next, true
}

func missing(e models.QueueEntry, roles ...models.Role) []models.RoleChange {
	var out []models.RoleChange
	for _, r := range roles {
		if !e.HasRole(r) {
			out = append(out, models.RoleChange{PlayerID: e.PlayerID, Role: r})
		}
	}
	return out
}
