package domain

import "time"

type State string

const (
	StateStartup  State = "startup"
	StateRising   State = "rising"
	StateUp       State = "up"
	StateFalling  State = "falling"
	StateDown     State = "down"
	StateDisabled State = "disabled"
)

// CheckState is a snapshot of one check's health. Transitions replace the
// whole value; fields are never updated in place.
type CheckState struct {
	State      State        `json:"state"`
	Advertised bool         `json:"advertised"`
	LastResult *ProbeResult `json:"last_result,omitempty"`
	UpSince    *time.Time   `json:"up_since,omitempty"`
	DownSince  *time.Time   `json:"down_since,omitempty"`
	// Rise and Fall count consecutive results while rising or falling.
	Rise int `json:"rise,omitempty"`
	Fall int `json:"fall,omitempty"`
}

func Initial() CheckState {
	return CheckState{State: StateStartup}
}
