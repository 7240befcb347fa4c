package models

// Caller is the authenticated identity behind a request.
type Caller struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Admin    bool   `json:"admin"`
}
