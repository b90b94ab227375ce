// Package alert latches fire and smoke alerts so that a sustained status is
// presented once per run rather than on every poll.
package alert

import (
	"fmt"
	"sync"

	"github.com/banshee-data/firewatch/internal/sensor"
)

// State is the presentation state of the alert latch.
type State int

const (
	Idle State = iota
	FireAlertShown
	SmokeAlertShown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case FireAlertShown:
		return "FireAlertShown"
	case SmokeAlertShown:
		return "SmokeAlertShown"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Kind identifies what an Effect asks its sinks to do.
type Kind int

const (
	ShowFireAlert Kind = iota + 1
	ShowSmokeAlert
	UpdateChart
)

func (k Kind) String() string {
	switch k {
	case ShowFireAlert:
		return "ShowFireAlert"
	case ShowSmokeAlert:
		return "ShowSmokeAlert"
	case UpdateChart:
		return "UpdateChart"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Effect is an instruction for the presentation layer. Fire alerts carry
// temperature and gas, smoke alerts carry gas; both read them from Reading.
type Effect struct {
	Kind    Kind           `json:"kind"`
	Status  sensor.Status  `json:"status"`
	Reading sensor.Reading `json:"reading"`
}

// IsAlert reports whether the effect shows an alert.
func (e Effect) IsAlert() bool {
	return e.Kind == ShowFireAlert || e.Kind == ShowSmokeAlert
}

// Message is the human readable alert text.
func (e Effect) Message() string {
	switch e.Kind {
	case ShowFireAlert:
		return fmt.Sprintf("FIRE DETECTED! Temperature: %.1f°C, Gas: %.0f", e.Reading.Temperature, e.Reading.GasLevel)
	case ShowSmokeAlert:
		return fmt.Sprintf("SMOKE DETECTED! Gas level: %.0f", e.Reading.GasLevel)
	default:
		return ""
	}
}

// Decide computes the next state and the effects of observing status.
// Entering a shown state emits its alert; staying in it emits nothing and
// Clear returns to Idle silently.
func Decide(state State, status sensor.Status, r sensor.Reading) (State, []Effect) {
	switch status {
	case sensor.Fire:
		if state == FireAlertShown {
			return state, nil
		}
		return FireAlertShown, []Effect{{Kind: ShowFireAlert, Status: status, Reading: r}}
	case sensor.Smoke:
		if state == SmokeAlertShown {
			return state, nil
		}
		return SmokeAlertShown, []Effect{{Kind: ShowSmokeAlert, Status: status, Reading: r}}
	default:
		return Idle, nil
	}
}

// Controller holds the latch state between polls. It has no timers;
// dismissing a presented alert is the caller's business and does not reset
// the latch.
type Controller struct {
	mu    sync.Mutex
	state State
}

// NewController returns a controller in Idle.
func NewController() *Controller {
	return &Controller{}
}

// OnStatus advances the latch and returns the resulting effects.
func (c *Controller) OnStatus(status sensor.Status, r sensor.Reading) []Effect {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, effects := Decide(c.state, status, r)
	c.state = next
	return effects
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset returns the latch to Idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Idle
}
