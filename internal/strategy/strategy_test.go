package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
)

var (
	scout    = models.NewRole(models.RoleScout)
	soldier  = models.NewRole(models.RoleSoldier)
	medic    = models.NewRole(models.RoleMedic)
	player   = models.NewRole(models.RolePlayer)
	picked   = models.NewRole(models.RolePicked)
	captainA = models.NewRole(models.RoleCaptainA)
	captainB = models.NewRole(models.RoleCaptainB)
)

func entry(id string, roles ...models.Role) models.QueueEntry {
	return models.QueueEntry{PlayerID: id, Name: "name-" + id, Roles: roles}
}

func mustFor(t *testing.T, d models.Distribution) Strategy {
	t.Helper()
	s, err := For(d)
	require.NoError(t, err)
	return s
}

func TestFor_Unknown(t *testing.T) {
	_, err := For("random")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

// Scenario A
func TestOpen_NonOverfillCap(t *testing.T) {
	s := mustFor(t, models.DistributionOpen)
	lobby := models.Lobby{
		Distribution: models.DistributionOpen,
		Status:       models.LobbyStatusQueuing,
		MaxPlayers:   12,
		Requirements: []models.Requirement{{Role: scout, Count: 1}},
	}

	plan, err := s.ValidateJoin(lobby, "p1", []models.Role{scout})
	require.NoError(t, err)
	assert.Equal(t, []models.Role{scout}, plan.Roles)

	lobby.Queue = append(lobby.Queue, entry("p1", plan.Roles...))
	before := len(lobby.Queue)

	_, err = s.ValidateJoin(lobby, "p2", []models.Role{scout})
	assert.ErrorIs(t, err, errs.ErrRoleUnavailable)
	assert.Len(t, lobby.Queue, before)
}

func TestOpen_JoinRules(t *testing.T) {
	s := mustFor(t, models.DistributionOpen)
	lobby := models.Lobby{
		Status:       models.LobbyStatusQueuing,
		MaxPlayers:   2,
		Requirements: []models.Requirement{{Role: scout, Count: 2}, {Role: medic, Count: 2}},
		Queue:        []models.QueueEntry{entry("p1", scout)},
	}

	tests := []struct {
		name     string
		lobby    func() models.Lobby
		player   string
		declared []models.Role
		want     error
	}{
		{"already queued", func() models.Lobby { return lobby }, "p1", []models.Role{medic}, errs.ErrAlreadyQueued},
		{"two roles", func() models.Lobby { return lobby }, "p2", []models.Role{scout, medic}, errs.ErrInvalidInput},
		{"no roles", func() models.Lobby { return lobby }, "p2", nil, errs.ErrInvalidInput},
		{"team tag", func() models.Lobby { return lobby }, "p2", []models.Role{models.TeamA.Tag()}, errs.ErrInvalidInput},
		{"unrequired role", func() models.Lobby { return lobby }, "p2", []models.Role{soldier}, errs.ErrRoleUnavailable},
		{"full lobby", func() models.Lobby {
			l := lobby.Clone()
			l.Queue = append(l.Queue, entry("p3", medic))
			return l
		}, "p2", []models.Role{medic}, errs.ErrLobbyFull},
		{"not queuing", func() models.Lobby {
			l := lobby.Clone()
			l.Status = models.LobbyStatusInProgress
			return l
		}, "p2", []models.Role{medic}, errs.ErrLobbyClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ValidateJoin(tt.lobby(), tt.player, tt.declared)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTeamRole_JoinAssignsRoleAndTeamTogether(t *testing.T) {
	s := mustFor(t, models.DistributionTeamRole)
	lobby := models.Lobby{
		Status:       models.LobbyStatusQueuing,
		MaxPlayers:   12,
		Requirements: []models.Requirement{{Role: scout, Count: 2}},
		Queue:        []models.QueueEntry{entry("p1", scout, models.TeamA.Tag())},
	}

	_, err := s.ValidateJoin(lobby, "p2", []models.Role{scout, models.TeamA.Tag()})
	assert.ErrorIs(t, err, errs.ErrRoleUnavailable)

	plan, err := s.ValidateJoin(lobby, "p2", []models.Role{models.TeamB.Tag(), scout})
	require.NoError(t, err)
	assert.Equal(t, []models.Role{scout, models.TeamB.Tag()}, plan.Roles)

	_, err = s.ValidateJoin(lobby, "p2", []models.Role{scout})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = s.ValidateJoin(lobby, "p2", []models.Role{scout, models.TeamA.Tag(), models.TeamB.Tag()})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func captainLobby() models.Lobby {
	return models.Lobby{
		ID:           "l1",
		Distribution: models.DistributionCaptainDraft,
		Status:       models.LobbyStatusQueuing,
		MaxPlayers:   4,
		Requirements: []models.Requirement{
			{Role: captainA, Count: 1},
			{Role: captainB, Count: 1},
			{Role: scout, Count: 2},
			{Role: medic, Count: 2},
		},
		Queue: []models.QueueEntry{
			entry("cA", captainA),
			entry("cB", captainB),
			entry("p1", scout, medic),
		},
	}
}

func TestCaptainDraft_JoinDeclaresEligibility(t *testing.T) {
	s := mustFor(t, models.DistributionCaptainDraft)
	lobby := captainLobby()

	plan, err := s.ValidateJoin(lobby, "p2", []models.Role{scout, medic})
	require.NoError(t, err)
	assert.Equal(t, []models.Role{scout, medic}, plan.Roles)

	_, err = s.ValidateJoin(lobby, "p2", []models.Role{captainA})
	assert.ErrorIs(t, err, errs.ErrRoleUnavailable)

	_, err = s.ValidateJoin(lobby, "p2", []models.Role{scout, models.TeamA.Tag()})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = s.ValidateJoin(lobby, "p2", []models.Role{scout.Colored(models.TeamA)})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestCaptainDraft_ShouldStartDraftOnlyOnce(t *testing.T) {
	s := mustFor(t, models.DistributionCaptainDraft)
	lobby := captainLobby()

	assert.False(t, s.ShouldStartDraft(lobby, nil), "not full yet")

	lobby.Queue = append(lobby.Queue, entry("p2", scout, medic))
	assert.True(t, s.ShouldStartDraft(lobby, nil))
	assert.True(t, s.ShouldStartDraft(lobby, models.NewDraft("l1")))

	drafting := &models.Draft{Phase: models.PhaseDrafting}
	assert.False(t, s.ShouldStartDraft(lobby, drafting))

	complete := &models.Draft{Phase: models.PhaseComplete}
	assert.False(t, s.ShouldStartDraft(lobby, complete))
}

func TestCaptainDraft_LeaveDuringDraft(t *testing.T) {
	s := mustFor(t, models.DistributionCaptainDraft)
	lobby := captainLobby()
	lobby.Queue = append(lobby.Queue, entry("p2", scout, scout.Colored(models.TeamA), picked))

	assert.NoError(t, s.ValidateLeave(lobby, nil, "cA"))
	assert.ErrorIs(t, s.ValidateLeave(lobby, nil, "ghost"), errs.ErrNotQueued)

	d := &models.Draft{Phase: models.PhaseDrafting, Captains: [2]string{"cA", "cB"}, Picks: []string{"cA", "cB"}}
	assert.ErrorIs(t, s.ValidateLeave(lobby, d, "cA"), errs.ErrPlayerLocked)
	assert.ErrorIs(t, s.ValidateLeave(lobby, d, "p2"), errs.ErrPlayerLocked)
	assert.NoError(t, s.ValidateLeave(lobby, d, "p1"))
}

func TestRender(t *testing.T) {
	t.Run("open groups by role", func(t *testing.T) {
		s := mustFor(t, models.DistributionOpen)
		lobby := models.Lobby{
			Requirements: []models.Requirement{{Role: scout, Count: 2}, {Role: medic, Count: 1}},
			Queue:        []models.QueueEntry{entry("p1", scout), entry("p2", medic)},
		}

		view := s.Render(lobby, nil)
		require.Len(t, view.Groups, 2)
		assert.Equal(t, []string{"name-p1"}, view.Groups[0].Players)
		assert.Equal(t, 1, view.Groups[0].Needed)
		assert.Equal(t, 0, view.Groups[1].Needed)
	})

	t.Run("team role groups by team and role", func(t *testing.T) {
		s := mustFor(t, models.DistributionTeamRole)
		lobby := models.Lobby{
			Requirements: []models.Requirement{{Role: scout, Count: 2}},
			Queue:        []models.QueueEntry{entry("p1", scout, models.TeamB.Tag())},
		}

		view := s.Render(lobby, nil)
		require.Len(t, view.Groups, 2)
		assert.Equal(t, "red-scout", view.Groups[0].Title)
		assert.Empty(t, view.Groups[0].Players)
		assert.Equal(t, "blu-scout", view.Groups[1].Title)
		assert.Equal(t, []string{"name-p1"}, view.Groups[1].Players)
	})

	t.Run("captain draft shows teams and pool", func(t *testing.T) {
		s := mustFor(t, models.DistributionCaptainDraft)
		lobby := captainLobby()
		lobby.Queue = append(lobby.Queue, entry("p2", scout, scout.Colored(models.TeamA), picked))
		expires := time.Now().Add(time.Minute)
		d := &models.Draft{
			Phase:       models.PhaseDrafting,
			Captains:    [2]string{"cA", "cB"},
			Picks:       []string{"cA", "cB"},
			Position:    1,
			PickExpires: &expires,
		}

		view := s.Render(lobby, d)
		require.NotNil(t, view.Draft)
		assert.Equal(t, "cB", view.Draft.Picker)
		require.Len(t, view.Groups, 3)
		assert.Equal(t, []string{"name-cA", "name-p2"}, view.Groups[0].Players)
		assert.Equal(t, []string{"name-cB"}, view.Groups[1].Players)
		assert.Equal(t, []string{"name-p1"}, view.Groups[2].Players)
	})
}
