package models

import (
	"fmt"
	"strings"

	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
)

// RoleName is the base (uncolored) name of a role tag.
type RoleName string

const (
	RolePlayer          RoleName = "player"
	RoleCreator         RoleName = "creator"
	RoleActive          RoleName = "active"
	RoleNeedsSubstitute RoleName = "needs-substitute"
	RolePicked          RoleName = "picked"
	RoleCaptainA        RoleName = "captain-a"
	RoleCaptainB        RoleName = "captain-b"

	RoleTeamA RoleName = "team_a"
	RoleTeamB RoleName = "team_b"

	RoleScout    RoleName = "scout"
	RoleSoldier  RoleName = "soldier"
	RolePyro     RoleName = "pyro"
	RoleDemoman  RoleName = "demoman"
	RoleHeavy    RoleName = "heavy"
	RoleEngineer RoleName = "engineer"
	RoleMedic    RoleName = "medic"
	RoleSniper   RoleName = "sniper"
	RoleSpy      RoleName = "spy"
)

var genericRoles = map[RoleName]struct{}{
	RolePlayer:          {},
	RoleCreator:         {},
	RoleActive:          {},
	RoleNeedsSubstitute: {},
	RolePicked:          {},
	RoleCaptainA:        {},
	RoleCaptainB:        {},
}

var classRoles = map[RoleName]struct{}{
	RoleScout:    {},
	RoleSoldier:  {},
	RolePyro:     {},
	RoleDemoman:  {},
	RoleHeavy:    {},
	RoleEngineer: {},
	RoleMedic:    {},
	RoleSniper:   {},
	RoleSpy:      {},
}

// ClassRoles returns the class vocabulary in display order.
func ClassRoles() []RoleName {
	return []RoleName{
		RoleScout, RoleSoldier, RolePyro,
		RoleDemoman, RoleHeavy, RoleEngineer,
		RoleMedic, RoleSniper, RoleSpy,
	}
}

func (n RoleName) IsClass() bool {
	_, ok := classRoles[n]
	return ok
}

func (n RoleName) IsGeneric() bool {
	_, ok := genericRoles[n]
	return ok
}

func (n RoleName) IsTeam() bool {
	return n == RoleTeamA || n == RoleTeamB
}

func (n RoleName) Known() bool {
	return n.IsClass() || n.IsGeneric() || n.IsTeam()
}

// Team identifies a side once team assignment is locked.
type Team string

const (
	NoTeam Team = ""
	TeamA  Team = "team_a"
	TeamB  Team = "team_b"
)

func (t Team) Valid() bool {
	return t == TeamA || t == TeamB
}

// Color is the prefix used by color-qualified class tags.
func (t Team) Color() string {
	switch t {
	case TeamA:
		return "red"
	case TeamB:
		return "blu"
	default:
		return ""
	}
}

// Tag is the team tag a player holds while on this team.
func (t Team) Tag() Role {
	return Role{Base: RoleName(t)}
}

func (t Team) Other() Team {
	switch t {
	case TeamA:
		return TeamB
	case TeamB:
		return TeamA
	default:
		return NoTeam
	}
}

// CaptainRole is the generic tag marking the captain of the team.
func (t Team) CaptainRole() Role {
	if t == TeamB {
		return Role{Base: RoleCaptainB}
	}
	return Role{Base: RoleCaptainA}
}

func teamFromColor(color string) Team {
	switch color {
	case "red":
		return TeamA
	case "blu":
		return TeamB
	default:
		return NoTeam
	}
}

// Role is a role tag. Team is set only for color-qualified class tags.
type Role struct {
	Base RoleName
	Team Team
}

// NewRole builds an uncolored role tag.
func NewRole(name RoleName) Role {
	return Role{Base: name}
}

// Colored returns the color-qualified variant of a class role for team t.
func (r Role) Colored(t Team) Role {
	return Role{Base: r.Base, Team: t}
}

// Plain strips the team qualifier.
func (r Role) Plain() Role {
	return Role{Base: r.Base}
}

func (r Role) IsColored() bool {
	return r.Team != NoTeam
}

func (r Role) IsClass() bool {
	return r.Base.IsClass()
}

func (r Role) String() string {
	if r.Team != NoTeam {
		return r.Team.Color() + "-" + string(r.Base)
	}
	return string(r.Base)
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRole converts a wire tag into a Role.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if color, base, ok := strings.Cut(s, "-"); ok {
		if t := teamFromColor(color); t != NoTeam {
			if !RoleName(base).IsClass() {
				return Role{}, fmt.Errorf("%w: %q", errs.ErrInvalidRole, s)
			}
			return Role{Base: RoleName(base), Team: t}, nil
		}
	}

	name := RoleName(s)
	if !name.Known() {
		return Role{}, fmt.Errorf("%w: %q", errs.ErrInvalidRole, s)
	}
	return Role{Base: name}, nil
}

// ParseRoles parses every tag, failing on the first unknown one.
func ParseRoles(tags []string) ([]Role, error) {
	out := make([]Role, 0, len(tags))
	for _, tag := range tags {
		r, err := ParseRole(tag)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// RoleStrings renders roles for the wire.
func RoleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = r.String()
	}
	return out
}
