package scanner

import (
	"time"

	"github.com/tphakala/rfscan-go/internal/radio"
)

// State is the orchestrator lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a point-in-time view of the orchestrator for observers.
type Snapshot struct {
	State          State           `json:"state"`
	Scanning       bool            `json:"scanning"`
	NewEntities    int64           `json:"new_entities"`
	TotalSightings int64           `json:"total_sightings"`
	Position       *radio.Position `json:"position,omitempty"`
	SessionID      string          `json:"session_id,omitempty"`
	Errors         []string        `json:"errors,omitempty"`
	StartedAt      time.Time       `json:"started_at,omitzero"`
}
