package models

import "time"

type UpdateType string

const (
	UpdateTypePlayerJoined   UpdateType = "player_joined"
	UpdateTypePlayerLeft     UpdateType = "player_left"
	UpdateTypeRoleAdded      UpdateType = "role_added"
	UpdateTypeRoleRemoved    UpdateType = "role_removed"
	UpdateTypeSubstituted    UpdateType = "substituted"
	UpdateTypeDraftStarted   UpdateType = "draft_started"
	UpdateTypePickMade       UpdateType = "pick_made"
	UpdateTypePickExpired    UpdateType = "pick_expired"
	UpdateTypeDraftCompleted UpdateType = "draft_completed"
	UpdateTypeLobbyClosed    UpdateType = "lobby_closed"
)

// LobbyUpdateEvent is published to Redis Pub/Sub when a lobby changes.
type LobbyUpdateEvent struct {
	EventID    string     `json:"event_id"`
	LobbyID    string     `json:"lobby_id"`
	UpdateType UpdateType `json:"update_type"`
	PlayerID   string     `json:"player_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}
