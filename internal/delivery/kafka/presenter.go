package kafka

import "time"

// Events published by the lobby draft service. All are keyed by lobby id.

type PlayerJoinedEvent struct {
	LobbyID   string    `json:"lobby_id"`
	PlayerID  string    `json:"player_id"`
	Roles     []string  `json:"roles"`
	Timestamp time.Time `json:"timestamp"`
}

type PlayerLeftEvent struct {
	LobbyID   string    `json:"lobby_id"`
	PlayerID  string    `json:"player_id"`
	Reason    string    `json:"reason"` // left, kicked, substituted
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type DraftStartedEvent struct {
	LobbyID     string     `json:"lobby_id"`
	Captains    [2]string  `json:"captains"`
	Picks       []string   `json:"picks"`
	PickExpires *time.Time `json:"pick_expires,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

type PickMadeEvent struct {
	LobbyID   string    `json:"lobby_id"`
	Position  int       `json:"position"`
	PickerID  string    `json:"picker_id"`
	TargetID  string    `json:"target_id"`
	Team      string    `json:"team"`
	Role      string    `json:"role"`
	Expired   bool      `json:"expired"`
	Timestamp time.Time `json:"timestamp"`
}

type PickExpiredEvent struct {
	LobbyID   string    `json:"lobby_id"`
	Position  int       `json:"position"`
	PickerID  string    `json:"picker_id"`
	Timestamp time.Time `json:"timestamp"`
}

type DraftCompletedEvent struct {
	LobbyID   string    `json:"lobby_id"`
	Captains  [2]string `json:"captains"`
	Timestamp time.Time `json:"timestamp"`
}

type DraftDivergedEvent struct {
	LobbyID   string    `json:"lobby_id"`
	Position  int       `json:"position"`
	Cause     string    `json:"cause"`
	Timestamp time.Time `json:"timestamp"`
}

// Events consumed from the remote lobby service.

type LobbyClosedEvent struct {
	LobbyID   string    `json:"lobby_id"`
	Reason    string    `json:"reason"` // closed, expired, completed
	Timestamp time.Time `json:"timestamp"`
}
