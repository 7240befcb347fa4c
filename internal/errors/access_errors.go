package errors

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound = errors.New("access config not found")
	ErrListNotFound   = errors.New("access list not found")
	ErrConfigExists   = errors.New("access config already exists")
	ErrListExists     = errors.New("access list already exists")
	ErrAccessDenied   = errors.New("access denied")
)

// ListKind says which kind of list decided an access check.
type ListKind string

const (
	ListKindBlacklist ListKind = "blacklist"
	ListKindWhitelist ListKind = "whitelist"
)

// PermissionDeniedError records the list that denied a role to a player.
type PermissionDeniedError struct {
	PlayerID string
	Role     string
	Config   string
	List     string
	Kind     ListKind
}

func (e *PermissionDeniedError) Error() string {
	if e.Kind == ListKindBlacklist {
		return fmt.Sprintf("%s may not play %s: listed in blacklist %q (config %q)", e.PlayerID, e.Role, e.List, e.Config)
	}
	return fmt.Sprintf("%s may not play %s: not in whitelist %q (config %q)", e.PlayerID, e.Role, e.List, e.Config)
}

func (e *PermissionDeniedError) Unwrap() error {
	return ErrAccessDenied
}

var ErrScopeForbidden = errors.New("scope requires an admin token")
