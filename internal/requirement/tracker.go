// Package requirement computes role occupancy and availability for a queue
// snapshot.
package requirement

import (
	"slices"

	"github.com/vogiaan1904/lobbydraft/internal/models"
)

// Occupancy counts, for each requirement role, how many entries hold it.
// An entry holding several tags counts toward each of them.
func Occupancy(queue []models.QueueEntry, reqs []models.Requirement) map[models.Role]int {
	occ := make(map[models.Role]int, len(reqs))
	for _, req := range reqs {
		occ[req.Role] = 0
	}
	for _, e := range queue {
		for _, r := range e.Roles {
			if _, ok := occ[r]; ok {
				occ[r]++
			}
		}
	}
	return occ
}

// IsReady reports whether every requirement is filled without a disallowed
// overfill. Captain-draft lobbies also need the queue at max size.
func IsReady(lobby models.Lobby) bool {
	occ := Occupancy(lobby.Queue, lobby.Requirements)
	for _, req := range lobby.Requirements {
		n := occ[req.Role]
		if n < req.Count {
			return false
		}
		if n > req.Count && !req.Overfill {
			return false
		}
	}

	if lobby.Distribution == models.DistributionCaptainDraft {
		return len(lobby.Queue) >= lobby.MaxPlayers
	}
	return true
}

// AvailableRoles returns the requirement roles still open.
//
// With team == NoTeam the candidate's declared tags are filtered to those
// whose occupancy among unpicked entries is below the required count, unless
// the requirement allows overfill.
//
// With a team set, each class requirement contributes Count/2 slots to the
// team and is returned while the team has slots left. The candidate's tags
// are ignored.
func AvailableRoles(candidate []models.Role, queue []models.QueueEntry, reqs []models.Requirement, team models.Team) []models.Role {
	if team != models.NoTeam {
		return teamAvailable(queue, reqs, team)
	}

	declared := make(map[models.Role]struct{}, len(candidate))
	for _, r := range candidate {
		declared[r] = struct{}{}
	}

	unlocked := make([]models.QueueEntry, 0, len(queue))
	for _, e := range queue {
		if !e.IsPicked() {
			unlocked = append(unlocked, e)
		}
	}
	occ := Occupancy(unlocked, reqs)

	var out []models.Role
	for _, req := range reqs {
		if _, ok := declared[req.Role]; !ok {
			continue
		}
		if req.Overfill || occ[req.Role] < req.Count {
			out = append(out, req.Role)
		}
	}
	return out
}

func teamAvailable(queue []models.QueueEntry, reqs []models.Requirement, team models.Team) []models.Role {
	var out []models.Role
	for _, req := range reqs {
		if !req.Role.IsClass() || req.Role.IsColored() {
			continue
		}
		if req.Count/2-TeamOccupancy(queue, req.Role, team) > 0 {
			out = append(out, req.Role)
		}
	}
	return out
}

// TeamOccupancy counts entries locked into role for team: holders of the
// colored tag, or holders of both the team tag and the plain role.
func TeamOccupancy(queue []models.QueueEntry, role models.Role, team models.Team) int {
	colored := role.Plain().Colored(team)
	plain := role.Plain()
	n := 0
	for _, e := range queue {
		if e.HasRole(colored) || (e.HasRole(team.Tag()) && e.HasRole(plain)) {
			n++
		}
	}
	return n
}

// CanFill reports whether one more holder of role fits the requirement,
// counting the same unlocked holders AvailableRoles does. Roles without a
// requirement are unconstrained.
func CanFill(queue []models.QueueEntry, reqs []models.Requirement, role models.Role) bool {
	for _, req := range reqs {
		if req.Role == role {
			return slices.Contains(AvailableRoles([]models.Role{role}, queue, reqs, models.NoTeam), role)
		}
	}
	return true
}
