package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
)

type fakeStore struct {
	configs map[string]models.AccessConfigs
	lists   map[string]models.AccessLists
	err     error
}

func (s *fakeStore) GetConfigs(ctx context.Context, owner string) (models.AccessConfigs, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.configs[owner], nil
}

func (s *fakeStore) GetLists(ctx context.Context, owner string) (models.AccessLists, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.lists[owner], nil
}

type fakeRoster struct {
	groups map[string][]string
	err    error
	calls  int
}

func (r *fakeRoster) Groups(ctx context.Context, playerID string) ([]string, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.groups[playerID], nil
}

var (
	sniper = models.NewRole(models.RoleSniper)
	medic  = models.NewRole(models.RoleMedic)
	scout  = models.NewRole(models.RoleScout)
)

func lobbyWith(cfg string) models.Lobby {
	return models.Lobby{ID: "l1", CreatedBy: "creator", AccessConfig: cfg}
}

func newResolver(store Store, r *fakeRoster) Resolver {
	if r == nil {
		r = &fakeRoster{}
	}
	return NewResolver(store, r, "guild", pkgLog.InitializeTestZapLogger())
}

func TestCanAssumeRole_NoConfigured(t *testing.T) {
	res := newResolver(&fakeStore{err: errors.New("must not be called")}, nil)

	d, err := res.CanAssumeRole(context.Background(), lobbyWith(""), "p", sniper)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonNoConfig, d.Reason)
}

func TestCanAssumeRole_MissingConfigFailsOpen(t *testing.T) {
	res := newResolver(&fakeStore{}, nil)

	d, err := res.CanAssumeRole(context.Background(), lobbyWith("ghost"), "p", sniper)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonConfigNotFound, d.Reason)
}

// Scenario C
func TestCanAssumeRole_NoRuleForRole(t *testing.T) {
	store := &fakeStore{
		configs: map[string]models.AccessConfigs{
			"creator": {"cfg1": {Name: "cfg1", Owner: "creator", Rules: map[models.Role]models.AccessRule{
				sniper: {Blacklist: "banned"},
			}}},
			"guild": {"cfg1": {Name: "cfg1", Owner: "guild", Rules: map[models.Role]models.AccessRule{
				medic: {Whitelist: "medics"},
			}}},
		},
		lists: map[string]models.AccessLists{
			"guild": {"medics": {Name: "medics", Players: []string{"someone-else"}}},
		},
	}
	res := newResolver(store, nil)

	d, err := res.CanAssumeRole(context.Background(), lobbyWith("cfg1"), "p", medic)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonNoRule, d.Reason)
	assert.Equal(t, "creator", d.Scope)
}

// Scenario D
func TestCanAssumeRole_Blacklist(t *testing.T) {
	store := &fakeStore{
		configs: map[string]models.AccessConfigs{
			"creator": {"cfg1": {Name: "cfg1", Rules: map[models.Role]models.AccessRule{sniper: {Blacklist: "banned"}}}},
		},
		lists: map[string]models.AccessLists{
			"creator": {"banned": {Name: "banned", Players: []string{"P"}}},
		},
	}
	res := newResolver(store, nil)
	ctx := context.Background()

	d, err := res.CanAssumeRole(ctx, lobbyWith("cfg1"), "P", sniper)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "banned", d.List)
	assert.Equal(t, errs.ListKindBlacklist, d.Kind)

	var denied *errs.PermissionDeniedError
	require.ErrorAs(t, d.Err("P", sniper), &denied)
	assert.Equal(t, "banned", denied.List)
	assert.ErrorIs(t, d.Err("P", sniper), errs.ErrAccessDenied)

	for _, r := range []models.Role{medic, scout} {
		d, err := res.CanAssumeRole(ctx, lobbyWith("cfg1"), "P", r)
		require.NoError(t, err)
		assert.True(t, d.Allowed, r.String())
	}

	d, err = res.CanAssumeRole(ctx, lobbyWith("cfg1"), "Q", sniper)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonNotBlacklisted, d.Reason)
}

func TestCanAssumeRole_ColoredRoleUsesBaseRule(t *testing.T) {
	store := &fakeStore{
		configs: map[string]models.AccessConfigs{
			"creator": {"cfg1": {Name: "cfg1", Rules: map[models.Role]models.AccessRule{sniper: {Blacklist: "banned"}}}},
		},
		lists: map[string]models.AccessLists{
			"creator": {"banned": {Name: "banned", Players: []string{"P"}}},
		},
	}
	res := newResolver(store, nil)

	d, err := res.CanAssumeRole(context.Background(), lobbyWith("cfg1"), "P", sniper.Colored(models.TeamB))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestCanAssumeRole_CreatorScopeWins(t *testing.T) {
	store := &fakeStore{
		configs: map[string]models.AccessConfigs{
			"creator": {"cfg1": {Name: "cfg1", Rules: map[models.Role]models.AccessRule{sniper: {Whitelist: "snipers"}}}},
			"guild":   {"cfg1": {Name: "cfg1", Rules: map[models.Role]models.AccessRule{sniper: {Blacklist: "snipers"}}}},
		},
		lists: map[string]models.AccessLists{
			"creator": {"snipers": {Name: "snipers", Players: []string{"P"}}},
			"guild":   {"snipers": {Name: "snipers", Players: []string{"Q"}}},
		},
	}
	res := newResolver(store, nil)
	ctx := context.Background()

	d, err := res.CanAssumeRole(ctx, lobbyWith("cfg1"), "P", sniper)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonWhitelisted, d.Reason)
	assert.Equal(t, "creator", d.Scope)

	d, err = res.CanAssumeRole(ctx, lobbyWith("cfg1"), "Q", sniper)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotWhitelisted, d.Reason)
}

func TestCanAssumeRole_ListFallsBackToSharedScope(t *testing.T) {
	store := &fakeStore{
		configs: map[string]models.AccessConfigs{
			"guild": {"cfg1": {Name: "cfg1", Rules: map[models.Role]models.AccessRule{sniper: {Whitelist: "snipers"}}}},
		},
		lists: map[string]models.AccessLists{
			"guild": {"snipers": {Name: "snipers", Players: []string{"P"}}},
		},
	}
	res := newResolver(store, nil)

	d, err := res.CanAssumeRole(context.Background(), lobbyWith("cfg1"), "P", sniper)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, "guild", d.Scope)
}

func TestCanAssumeRole_BlacklistBeforeWhitelist(t *testing.T) {
	store := &fakeStore{
		configs: map[string]models.AccessConfigs{
			"creator": {"cfg1": {Name: "cfg1", Rules: map[models.Role]models.AccessRule{
				sniper: {Whitelist: "snipers", Blacklist: "banned"},
			}}},
		},
		lists: map[string]models.AccessLists{
			"creator": {
				"snipers": {Name: "snipers", Players: []string{"P", "Q"}},
				"banned":  {Name: "banned", Players: []string{"P"}},
			},
		},
	}
	res := newResolver(store, nil)
	ctx := context.Background()

	d, err := res.CanAssumeRole(ctx, lobbyWith("cfg1"), "P", sniper)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "banned", d.List)

	d, err = res.CanAssumeRole(ctx, lobbyWith("cfg1"), "Q", sniper)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, "snipers", d.List)

	d, err = res.CanAssumeRole(ctx, lobbyWith("cfg1"), "R", sniper)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "snipers", d.List)
}

func TestCanAssumeRole_UnresolvedListsFailOpen(t *testing.T) {
	store := &fakeStore{
		configs: map[string]models.AccessConfigs{
			"creator": {"cfg1": {Name: "cfg1", Rules: map[models.Role]models.AccessRule{sniper: {Whitelist: "ghost"}}}},
		},
	}
	res := newResolver(store, nil)

	d, err := res.CanAssumeRole(context.Background(), lobbyWith("cfg1"), "P", sniper)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonListsUnresolved, d.Reason)
}

func TestCanAssumeRole_GroupMembership(t *testing.T) {
	store := &fakeStore{
		configs: map[string]models.AccessConfigs{
			"creator": {"cfg1": {Name: "cfg1", Rules: map[models.Role]models.AccessRule{
				sniper: {Whitelist: "vets"},
				medic:  {Whitelist: "medics"},
			}}},
		},
		lists: map[string]models.AccessLists{
			"creator": {
				"vets":   {Name: "vets", Groups: []string{"veteran"}},
				"medics": {Name: "medics", Players: []string{"P"}, Groups: []string{"veteran"}},
			},
		},
	}
	ros := &fakeRoster{groups: map[string][]string{"P": {"veteran"}}}
	res := newResolver(store, ros)
	ctx := context.Background()

	d, err := res.CanAssumeRole(ctx, lobbyWith("cfg1"), "P", sniper)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, ros.calls)

	d, err = res.CanAssumeRole(ctx, lobbyWith("cfg1"), "P", medic)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, ros.calls, "player id match must not trigger a roster lookup")
}

func TestCanAssumeRole_RosterFailurePropagates(t *testing.T) {
	store := &fakeStore{
		configs: map[string]models.AccessConfigs{
			"creator": {"cfg1": {Name: "cfg1", Rules: map[models.Role]models.AccessRule{sniper: {Blacklist: "banned"}}}},
		},
		lists: map[string]models.AccessLists{
			"creator": {"banned": {Name: "banned", Groups: []string{"trolls"}}},
		},
	}
	ros := &fakeRoster{err: &errs.RemoteError{Service: "roster", Op: "groups", Status: 502}}
	res := newResolver(store, ros)

	_, err := res.CanAssumeRole(context.Background(), lobbyWith("cfg1"), "P", sniper)
	require.Error(t, err)
	assert.True(t, errs.IsRemote(err))
}

func TestCanAssumeRole_StoreFailurePropagates(t *testing.T) {
	res := newResolver(&fakeStore{err: errors.New("connection refused")}, nil)

	_, err := res.CanAssumeRole(context.Background(), lobbyWith("cfg1"), "P", sniper)
	require.Error(t, err)
	assert.True(t, errs.IsRemote(err))
}

func TestScopeChain(t *testing.T) {
	res := newResolver(&fakeStore{}, nil)

	assert.Equal(t, []string{"creator", "guild"}, res.ScopeChain(models.Lobby{CreatedBy: "creator"}))
	assert.Equal(t, []string{"guild"}, res.ScopeChain(models.Lobby{}))
}
