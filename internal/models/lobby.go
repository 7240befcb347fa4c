package models

import (
	"slices"
	"time"
)

type Distribution string

const (
	DistributionOpen         Distribution = "open"
	DistributionTeamRole     Distribution = "team-role"
	DistributionCaptainDraft Distribution = "captain-draft"
)

func (d Distribution) Valid() bool {
	switch d {
	case DistributionOpen, DistributionTeamRole, DistributionCaptainDraft:
		return true
	}
	return false
}

type LobbyStatus string

const (
	LobbyStatusQueuing    LobbyStatus = "queuing"
	LobbyStatusDrafting   LobbyStatus = "drafting"
	LobbyStatusCreating   LobbyStatus = "creating"
	LobbyStatusInProgress LobbyStatus = "in-progress"
	LobbyStatusCompleted  LobbyStatus = "completed"
	LobbyStatusClosed     LobbyStatus = "closed"
	LobbyStatusExpired    LobbyStatus = "expired"
)

// Active reports whether the lobby still accepts queue changes.
func (s LobbyStatus) Active() bool {
	return s == LobbyStatusQueuing || s == LobbyStatusDrafting
}

// Terminal reports whether the remote service has finished with the lobby.
func (s LobbyStatus) Terminal() bool {
	return s == LobbyStatusCompleted || s == LobbyStatusClosed || s == LobbyStatusExpired
}

// Requirement is a role slot a lobby must fill. Immutable once the lobby exists.
type Requirement struct {
	Role     Role `json:"role"`
	Count    int  `json:"count"`
	Overfill bool `json:"overfill"`
}

type QueueEntry struct {
	PlayerID   string `json:"player_id"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id,omitempty"`
	Roles      []Role `json:"roles"`
}

func (e QueueEntry) HasRole(r Role) bool {
	return slices.Contains(e.Roles, r)
}

// Team returns the team tag the entry holds, if any.
func (e QueueEntry) Team() Team {
	switch {
	case e.HasRole(TeamA.Tag()):
		return TeamA
	case e.HasRole(TeamB.Tag()):
		return TeamB
	default:
		return NoTeam
	}
}

func (e QueueEntry) IsPicked() bool {
	return e.HasRole(NewRole(RolePicked))
}

// ClassRoles returns the plain class tags the entry declared.
func (e QueueEntry) ClassRoles() []Role {
	var out []Role
	for _, r := range e.Roles {
		if r.IsClass() && !r.IsColored() {
			out = append(out, r)
		}
	}
	return out
}

func (e QueueEntry) clone() QueueEntry {
	e.Roles = slices.Clone(e.Roles)
	return e
}

type Lobby struct {
	ID           string        `json:"id"`
	Distribution Distribution  `json:"distribution"`
	Requirements []Requirement `json:"requirements"`
	Queue        []QueueEntry  `json:"queue"`
	MaxPlayers   int           `json:"max_players"`
	Status       LobbyStatus   `json:"status"`
	CreatedBy    string        `json:"created_by"`
	Region       string        `json:"region,omitempty"`
	Format       string        `json:"format,omitempty"`
	MatchID      string        `json:"match_id,omitempty"`
	AccessConfig string        `json:"access_config,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Entry finds a queued player by id.
func (l *Lobby) Entry(playerID string) (*QueueEntry, bool) {
	for i := range l.Queue {
		if l.Queue[i].PlayerID == playerID {
			return &l.Queue[i], true
		}
	}
	return nil, false
}

func (l *Lobby) IsQueued(playerID string) bool {
	_, ok := l.Entry(playerID)
	return ok
}

// Requirement finds the requirement slot for a role.
func (l *Lobby) Requirement(r Role) (Requirement, bool) {
	for _, req := range l.Requirements {
		if req.Role == r {
			return req, true
		}
	}
	return Requirement{}, false
}

// Holders returns the ids of every queued player holding r.
func (l *Lobby) Holders(r Role) []string {
	var ids []string
	for _, e := range l.Queue {
		if e.HasRole(r) {
			ids = append(ids, e.PlayerID)
		}
	}
	return ids
}

// Clone deep-copies the lobby so local plans never alias a remote snapshot.
func (l Lobby) Clone() Lobby {
	l.Requirements = slices.Clone(l.Requirements)
	queue := make([]QueueEntry, len(l.Queue))
	for i, e := range l.Queue {
		queue[i] = e.clone()
	}
	l.Queue = queue
	return l
}

// WithRoles returns a copy of the lobby with the given tags added to players.
func (l Lobby) WithRoles(adds []RoleChange) Lobby {
	out := l.Clone()
	for _, c := range adds {
		e, ok := out.Entry(c.PlayerID)
		if !ok || e.HasRole(c.Role) {
			continue
		}
		e.Roles = append(e.Roles, c.Role)
	}
	return out
}

// RoleChange is one tag addition or removal against a queued player.
type RoleChange struct {
	PlayerID string `json:"player_id"`
	Role     Role   `json:"role"`
}

type Announcement struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}
