// Package strategy holds the per-distribution join/leave rules and queue
// rendering.
package strategy

import (
	"fmt"
	"time"

	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/internal/requirement"
)

// JoinPlan is the tag set sent in a single remote join request.
type JoinPlan struct {
	Roles []models.Role
}

type QueueGroup struct {
	Title   string      `json:"title"`
	Team    models.Team `json:"team,omitempty"`
	Role    string      `json:"role,omitempty"`
	Needed  int         `json:"needed"`
	Players []string    `json:"players"`
}

type DraftView struct {
	Phase       models.Phase `json:"phase"`
	Picker      string       `json:"picker,omitempty"`
	Position    int          `json:"position"`
	Total       int          `json:"total"`
	PickExpires *time.Time   `json:"pick_expires,omitempty"`
	TurnExpired bool         `json:"turn_expired"`
}

// QueueView is the render-ready grouping of a lobby's queue.
type QueueView struct {
	LobbyID      string              `json:"lobby_id"`
	Distribution models.Distribution `json:"distribution"`
	Status       models.LobbyStatus  `json:"status"`
	Ready        bool                `json:"ready"`
	Groups       []QueueGroup        `json:"groups"`
	Draft        *DraftView          `json:"draft,omitempty"`
}

type Strategy interface {
	Distribution() models.Distribution
	ValidateJoin(lobby models.Lobby, playerID string, declared []models.Role) (JoinPlan, error)
	// ValidateLeave accepts a nil draft for lobbies without one.
	ValidateLeave(lobby models.Lobby, d *models.Draft, playerID string) error
	// ShouldStartDraft is true only the first time a captain-draft lobby is
	// ready.
	ShouldStartDraft(lobby models.Lobby, d *models.Draft) bool
	Render(lobby models.Lobby, d *models.Draft) QueueView
}

// For returns the strategy for a distribution.
func For(dist models.Distribution) (Strategy, error) {
	switch dist {
	case models.DistributionOpen:
		return openStrategy{}, nil
	case models.DistributionTeamRole:
		return teamRoleStrategy{}, nil
	case models.DistributionCaptainDraft:
		return captainDraftStrategy{}, nil
	default:
		return nil, errs.NewValidationError("distribution", fmt.Sprintf("unknown distribution %q", dist))
	}
}

// checkJoinable applies the rules every strategy shares.
func checkJoinable(lobby models.Lobby, playerID string, declared []models.Role) error {
	if lobby.Status != models.LobbyStatusQueuing {
		return fmt.Errorf("%w: lobby is %s", errs.ErrLobbyClosed, lobby.Status)
	}
	if lobby.IsQueued(playerID) {
		return errs.ErrAlreadyQueued
	}
	if lobby.MaxPlayers > 0 && len(lobby.Queue) >= lobby.MaxPlayers {
		return errs.ErrLobbyFull
	}
	if len(declared) == 0 {
		return errs.NewValidationError("roles", "at least one role is required")
	}

	seen := make(map[models.Role]struct{}, len(declared))
	for _, r := range declared {
		if _, dup := seen[r]; dup {
			return errs.NewValidationError("roles", fmt.Sprintf("%s declared twice", r))
		}
		seen[r] = struct{}{}
		if r.IsColored() {
			return errs.NewValidationError("roles", fmt.Sprintf("%s is assigned by the draft", r))
		}
	}
	return nil
}

func checkLeavable(lobby models.Lobby, playerID string) error {
	if lobby.Status.Terminal() {
		return fmt.Errorf("%w: lobby is %s", errs.ErrLobbyClosed, lobby.Status)
	}
	if !lobby.IsQueued(playerID) {
		return errs.ErrNotQueued
	}
	return nil
}

func requireSlot(lobby models.Lobby, r models.Role) (models.Requirement, error) {
	req, ok := lobby.Requirement(r)
	if !ok {
		return models.Requirement{}, fmt.Errorf("%w: %s is not needed in this lobby", errs.ErrRoleUnavailable, r)
	}
	return req, nil
}

func playerNames(lobby models.Lobby, match func(models.QueueEntry) bool) []string {
	names := []string{}
	for _, e := range lobby.Queue {
		if match(e) {
			names = append(names, e.Name)
		}
	}
	return names
}

func baseView(lobby models.Lobby) QueueView {
	return QueueView{
		LobbyID:      lobby.ID,
		Distribution: lobby.Distribution,
		Status:       lobby.Status,
		Ready:        requirement.IsReady(lobby),
	}
}
