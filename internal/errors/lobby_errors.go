package errors

import "errors"

var (
	ErrLobbyNotFound   = errors.New("lobby not found")
	ErrLobbyFull       = errors.New("lobby is full")
	ErrAlreadyQueued   = errors.New("player is already queued")
	ErrNotQueued       = errors.New("player is not queued")
	ErrRoleUnavailable = errors.New("role is unavailable")
	ErrLobbyClosed     = errors.New("lobby is no longer accepting changes")
	ErrNotLobbyOwner   = errors.New("only the lobby creator can do this")
	ErrPlayerLocked    = errors.New("player is locked in by the draft")
)
