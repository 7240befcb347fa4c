package lobbyapi

import (
	"context"
	"time"

	"github.com/vogiaan1904/lobbydraft/internal/models"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
)

type requirementDTO struct {
	Role     string `json:"role"`
	Count    int    `json:"count"`
	Overfill bool   `json:"overfill"`
}

type playerDTO struct {
	Name      string   `json:"name"`
	DiscordID string   `json:"discordId"`
	SteamID   string   `json:"steamId,omitempty"`
	Roles     []string `json:"roles"`
}

type lobbyDTO struct {
	ID            string           `json:"id"`
	Status        string           `json:"status"`
	Distribution  string           `json:"distribution"`
	Requirements  []requirementDTO `json:"requirements"`
	QueuedPlayers []playerDTO      `json:"queuedPlayers"`
	MaxPlayers    int              `json:"maxPlayers"`
	CreatedBy     string           `json:"createdBy"`
	Region        string           `json:"region,omitempty"`
	Format        string           `json:"format,omitempty"`
	MatchID       string           `json:"matchId,omitempty"`
	CreatedAt     *time.Time       `json:"createdAt,omitempty"`
}

type errorDTO struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateRequest is the body of a lobby creation call.
type CreateRequest struct {
	Distribution models.Distribution
	Requirements []models.Requirement
	Queue        []models.QueueEntry
	MaxPlayers   int
	Region       string
	Format       string
	CreatedBy    string
}

type createDTO struct {
	Distribution string           `json:"distribution"`
	Requirements []requirementDTO `json:"requirements"`
	Queue        []playerDTO      `json:"queue"`
	MaxPlayers   int              `json:"maxPlayers"`
	Region       string           `json:"region,omitempty"`
	Format       string           `json:"format,omitempty"`
	CreatedBy    string           `json:"createdBy"`
}

func toPlayerDTO(e models.QueueEntry) playerDTO {
	return playerDTO{
		Name:      e.Name,
		DiscordID: e.PlayerID,
		SteamID:   e.ExternalID,
		Roles:     models.RoleStrings(e.Roles),
	}
}

func toCreateDTO(req CreateRequest) createDTO {
	out := createDTO{
		Distribution: string(req.Distribution),
		MaxPlayers:   req.MaxPlayers,
		Region:       req.Region,
		Format:       req.Format,
		CreatedBy:    req.CreatedBy,
		Requirements: make([]requirementDTO, 0, len(req.Requirements)),
		Queue:        make([]playerDTO, 0, len(req.Queue)),
	}
	for _, r := range req.Requirements {
		out.Requirements = append(out.Requirements, requirementDTO{Role: r.Role.String(), Count: r.Count, Overfill: r.Overfill})
	}
	for _, e := range req.Queue {
		out.Queue = append(out.Queue, toPlayerDTO(e))
	}
	return out
}

// toModel converts a wire document. Tags outside the vocabulary are dropped
// with a warning so one odd tag does not hide the whole lobby.
func (d lobbyDTO) toModel(ctx context.Context, l pkgLog.Logger) *models.Lobby {
	lobby := &models.Lobby{
		ID:           d.ID,
		Distribution: models.Distribution(d.Distribution),
		Status:       models.LobbyStatus(d.Status),
		MaxPlayers:   d.MaxPlayers,
		CreatedBy:    d.CreatedBy,
		Region:       d.Region,
		Format:       d.Format,
		MatchID:      d.MatchID,
		Requirements: make([]models.Requirement, 0, len(d.Requirements)),
		Queue:        make([]models.QueueEntry, 0, len(d.QueuedPlayers)),
	}
	if d.CreatedAt != nil {
		lobby.CreatedAt = *d.CreatedAt
	}

	for _, r := range d.Requirements {
		role, err := models.ParseRole(r.Role)
		if err != nil {
			l.Warnf(ctx, "lobbyapi: lobby %s: skipping requirement: %v", d.ID, err)
			continue
		}
		lobby.Requirements = append(lobby.Requirements, models.Requirement{Role: role, Count: r.Count, Overfill: r.Overfill})
	}

	for _, p := range d.QueuedPlayers {
		entry := models.QueueEntry{
			PlayerID:   p.DiscordID,
			Name:       p.Name,
			ExternalID: p.SteamID,
			Roles:      make([]models.Role, 0, len(p.Roles)),
		}
		for _, tag := range p.Roles {
			role, err := models.ParseRole(tag)
			if err != nil {
				l.Warnf(ctx, "lobbyapi: lobby %s player %s: skipping tag: %v", d.ID, p.DiscordID, err)
				continue
			}
			entry.Roles = append(entry.Roles, role)
		}
		lobby.Queue = append(lobby.Queue, entry)
	}

	return lobby
}
