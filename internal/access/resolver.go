// Package access decides whether a player may hold a role in a lobby, based
// on named whitelist/blacklist sets resolved across ordered owner scopes.
package access

import (
	"context"

	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/internal/roster"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
)

// Reason explains how a decision was reached.
type Reason string

const (
	ReasonNoConfig        Reason = "no-config"
	ReasonConfigNotFound  Reason = "config-not-found"
	ReasonNoRule          Reason = "no-rule"
	ReasonListsUnresolved Reason = "lists-unresolved"
	ReasonBlacklisted     Reason = "blacklisted"
	ReasonNotBlacklisted  Reason = "not-blacklisted"
	ReasonWhitelisted     Reason = "whitelisted"
	ReasonNotWhitelisted  Reason = "not-whitelisted"
)

type Decision struct {
	Allowed bool          `json:"allowed"`
	Reason  Reason        `json:"reason"`
	Config  string        `json:"config,omitempty"`
	Scope   string        `json:"scope,omitempty"`
	List    string        `json:"list,omitempty"`
	Kind    errs.ListKind `json:"kind,omitempty"`
}

// Err converts a denial into a PermissionDeniedError.
func (d Decision) Err(playerID string, role models.Role) error {
	if d.Allowed {
		return nil
	}
	return &errs.PermissionDeniedError{
		PlayerID: playerID,
		Role:     role.String(),
		Config:   d.Config,
		List:     d.List,
		Kind:     d.Kind,
	}
}

// Store is the read side of the preference store.
type Store interface {
	GetConfigs(ctx context.Context, owner string) (models.AccessConfigs, error)
	GetLists(ctx context.Context, owner string) (models.AccessLists, error)
}

type Resolver interface {
	CanAssumeRole(ctx context.Context, lobby models.Lobby, playerID string, role models.Role) (Decision, error)
	// ScopeChain lists the owners searched for names, highest priority first.
	ScopeChain(lobby models.Lobby) []string
}

type implResolver struct {
	store       Store
	roster      roster.Roster
	sharedScope string
	l           pkgLog.Logger
}

func NewResolver(store Store, r roster.Roster, sharedScope string, l pkgLog.Logger) Resolver {
	return &implResolver{
		store:       store,
		roster:      r,
		sharedScope: sharedScope,
		l:           l,
	}
}

func (r *implResolver) ScopeChain(lobby models.Lobby) []string {
	chain := make([]string, 0, 2)
	if lobby.CreatedBy != "" {
		chain = append(chain, lobby.CreatedBy)
	}
	if r.sharedScope != "" && r.sharedScope != lobby.CreatedBy {
		chain = append(chain, r.sharedScope)
	}
	return chain
}

func (r *implResolver) CanAssumeRole(ctx context.Context, lobby models.Lobby, playerID string, role models.Role) (Decision, error) {
	if lobby.AccessConfig == "" {
		return Decision{Allowed: true, Reason: ReasonNoConfig}, nil
	}

	chain := r.ScopeChain(lobby)

	cfg, scope, err := r.resolveConfig(ctx, chain, lobby.AccessConfig)
	if err != nil {
		return Decision{}, err
	}
	if cfg == nil {
		r.l.Warnf(ctx, "access.resolver: lobby %s references missing access config %q, allowing %s as %s",
			lobby.ID, lobby.AccessConfig, playerID, role)
		return Decision{Allowed: true, Reason: ReasonConfigNotFound, Config: lobby.AccessConfig}, nil
	}

	rule, ok := cfg.Rule(role)
	if !ok && role.IsColored() {
		rule, ok = cfg.Rule(role.Plain())
	}
	if !ok || rule.Empty() {
		return Decision{Allowed: true, Reason: ReasonNoRule, Config: cfg.Name, Scope: scope}, nil
	}

	lists, err := r.listsByScope(ctx, chain)
	if err != nil {
		return Decision{}, err
	}

	m := &membership{playerID: playerID, roster: r.roster}
	base := Decision{Config: cfg.Name, Scope: scope}

	blacklist := r.resolveList(ctx, lists, chain, rule.Blacklist, lobby.ID)
	whitelist := r.resolveList(ctx, lists, chain, rule.Whitelist, lobby.ID)

	if blacklist != nil {
		member, err := m.in(ctx, blacklist)
		if err != nil {
			return Decision{}, err
		}
		if member {
			d := base
			d.Reason, d.List, d.Kind = ReasonBlacklisted, blacklist.Name, errs.ListKindBlacklist
			return d, nil
		}
		if whitelist == nil {
			d := base
			d.Allowed, d.Reason, d.List, d.Kind = true, ReasonNotBlacklisted, blacklist.Name, errs.ListKindBlacklist
			return d, nil
		}
	}

	if whitelist != nil {
		member, err := m.in(ctx, whitelist)
		if err != nil {
			return Decision{}, err
		}
		d := base
		d.Allowed, d.List, d.Kind = member, whitelist.Name, errs.ListKindWhitelist
		d.Reason = ReasonNotWhitelisted
		if member {
			d.Reason = ReasonWhitelisted
		}
		return d, nil
	}

	d := base
	d.Allowed, d.Reason = true, ReasonListsUnresolved
	return d, nil
}

func (r *implResolver) resolveConfig(ctx context.Context, chain []string, name string) (*models.AccessConfig, string, error) {
	for _, owner := range chain {
		configs, err := r.store.GetConfigs(ctx, owner)
		if err != nil {
			r.l.Errorf(ctx, "access.resolver.resolveConfig: owner %s: %v", owner, err)
			return nil, "", errs.Remote("preference-store", "get-configs", err)
		}
		if cfg, ok := configs[name]; ok {
			return &cfg, owner, nil
		}
	}
	return nil, "", nil
}

func (r *implResolver) listsByScope(ctx context.Context, chain []string) ([]models.AccessLists, error) {
	out := make([]models.AccessLists, 0, len(chain))
	for _, owner := range chain {
		lists, err := r.store.GetLists(ctx, owner)
		if err != nil {
			r.l.Errorf(ctx, "access.resolver.listsByScope: owner %s: %v", owner, err)
			return nil, errs.Remote("preference-store", "get-lists", err)
		}
		out = append(out, lists)
	}
	return out, nil
}

func (r *implResolver) resolveList(ctx context.Context, byScope []models.AccessLists, chain []string, name, lobbyID string) *models.AccessList {
	if name == "" {
		return nil
	}
	for _, lists := range byScope {
		if l, ok := lists[name]; ok {
			return &l
		}
	}
	r.l.Warnf(ctx, "access.resolver: lobby %s references missing access list %q in scopes %v, ignoring it", lobbyID, name, chain)
	return nil
}

// membership fetches the player's groups at most once, and only when a list
// has groups the player id alone did not match.
type membership struct {
	playerID string
	roster   roster.Roster
	groups   []string
	fetched  bool
}

func (m *membership) in(ctx context.Context, list *models.AccessList) (bool, error) {
	if list.HasPlayer(m.playerID) {
		return true, nil
	}
	if len(list.Groups) == 0 || m.roster == nil {
		return false, nil
	}
	if !m.fetched {
		groups, err := m.roster.Groups(ctx, m.playerID)
		if err != nil {
			return false, err
		}
		m.groups, m.fetched = groups, true
	}
	return list.HasAnyGroup(m.groups), nil
}
