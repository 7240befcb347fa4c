package service

import (
	"time"

	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/internal/strategy"
)

type RequirementInput struct {
	Role     string `json:"role" validate:"required"`
	Count    int    `json:"count" validate:"gte=1"`
	Overfill bool   `json:"overfill"`
}

type CreateLobbyInput struct {
	Distribution string             `json:"distribution" validate:"required,oneof=open team-role captain-draft"`
	Requirements []RequirementInput `json:"requirements" validate:"required,min=1,dive"`
	MaxPlayers   int                `json:"max_players" validate:"gte=2"`
	Region       string             `json:"region"`
	Format       string             `json:"format"`
	AccessConfig string             `json:"access_config"`
}

type JoinLobbyInput struct {
	LobbyID    string   `json:"lobby_id" validate:"required"`
	Roles      []string `json:"roles" validate:"required,min=1"`
	ExternalID string   `json:"external_id"`
}

// RoleInput targets one tag on one queued player. An empty PlayerID means
// the caller.
type RoleInput struct {
	LobbyID  string `json:"lobby_id" validate:"required"`
	PlayerID string `json:"player_id"`
	Role     string `json:"role" validate:"required"`
}

type PickInput struct {
	LobbyID  string `json:"lobby_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

type PlayerInput struct {
	PlayerID   string `json:"player_id" validate:"required"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
}

type SubstituteInput struct {
	LobbyID     string      `json:"lobby_id" validate:"required"`
	PlayerID    string      `json:"player_id" validate:"required"`
	Replacement PlayerInput `json:"replacement"`
}

type AvailableRolesInput struct {
	LobbyID  string `json:"lobby_id" validate:"required"`
	PlayerID string `json:"player_id"`
	Team     string `json:"team"`
}

type LobbyClosedInput struct {
	LobbyID   string
	Reason    string
	Timestamp time.Time
}

// LobbyOutput is a remote snapshot joined with local bookkeeping.
type LobbyOutput struct {
	Lobby *models.Lobby      `json:"lobby"`
	Draft *models.Draft      `json:"draft,omitempty"`
	View  strategy.QueueView `json:"view"`
}

type PickOutput struct {
	LobbyOutput
	// Expired is set when the pick was made after the turn timed out.
	Expired   bool `json:"expired"`
	Completed bool `json:"completed"`
}

type ProcessorStatus struct {
	IsRunning      bool      `json:"is_running"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	LastProcessed  time.Time `json:"last_processed,omitempty"`
	TotalProcessed int64     `json:"total_processed"`
	ErrorCount     int64     `json:"error_count"`
}
