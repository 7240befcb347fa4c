package models

import (
	"slices"
	"time"
)

type Phase string

const (
	PhaseCollecting Phase = "COLLECTING"
	PhaseDrafting   Phase = "DRAFTING"
	PhaseAssigning  Phase = "ASSIGNING"
	PhaseComplete   Phase = "COMPLETE"
)

// PickOrder selects how turns are laid out between the two captains.
type PickOrder string

const (
	PickOrderAlternate PickOrder = "alternate"
	PickOrderSnake     PickOrder = "snake"
)

func (o PickOrder) Valid() bool {
	return o == PickOrderAlternate || o == PickOrderSnake
}

// Draft is the local bookkeeping for a captain-draft lobby.
// Invariant: 0 <= Position <= len(Picks).
type Draft struct {
	LobbyID     string     `json:"lobby_id"`
	Phase       Phase      `json:"phase"`
	Position    int        `json:"position"`
	Picks       []string   `json:"picks"`
	Captains    [2]string  `json:"captains"`
	PickExpires *time.Time `json:"pick_expires,omitempty"`
	TurnExpired bool       `json:"turn_expired"`
	Version     int64      `json:"version"`
	Diverged    bool       `json:"diverged"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func NewDraft(lobbyID string) *Draft {
	return &Draft{
		LobbyID: lobbyID,
		Phase:   PhaseCollecting,
	}
}

// Started reports whether the draft has moved past COLLECTING.
func (d *Draft) Started() bool {
	return d != nil && d.Phase != PhaseCollecting && d.Phase != ""
}

func (d *Draft) Finished() bool {
	return d.Position >= len(d.Picks)
}

// CurrentPicker is the captain whose turn it is, or "" once finished.
func (d *Draft) CurrentPicker() string {
	if d.Finished() {
		return ""
	}
	return d.Picks[d.Position]
}

// TeamOf maps a captain to their team.
func (d *Draft) TeamOf(captainID string) Team {
	switch captainID {
	case d.Captains[0]:
		return TeamA
	case d.Captains[1]:
		return TeamB
	default:
		return NoTeam
	}
}

func (d *Draft) IsCaptain(playerID string) bool {
	return d.TeamOf(playerID) != NoTeam
}

// Captain returns the captain of team t.
func (d *Draft) Captain(t Team) string {
	if t == TeamB {
		return d.Captains[1]
	}
	return d.Captains[0]
}

// ReplaceCaptain rewrites a captain identity in both the captain pair and
// the turn order. Positions are unchanged.
func (d *Draft) ReplaceCaptain(oldID, newID string) bool {
	replaced := false
	for i := range d.Captains {
		if d.Captains[i] == oldID {
			d.Captains[i] = newID
			replaced = true
		}
	}
	for i := range d.Picks {
		if d.Picks[i] == oldID {
			d.Picks[i] = newID
		}
	}
	return replaced
}

func (d Draft) Clone() Draft {
	d.Picks = slices.Clone(d.Picks)
	if d.PickExpires != nil {
		t := *d.PickExpires
		d.PickExpires = &t
	}
	return d
}
