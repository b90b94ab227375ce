// Package monitor ties the appliance to the alert latch and the history: a
// Session holds the dashboard state and a Poller feeds it readings on a
// fixed interval.
package monitor

import (
	"sync"
	"time"

	"github.com/banshee-data/firewatch/internal/alert"
	"github.com/banshee-data/firewatch/internal/device"
	"github.com/banshee-data/firewatch/internal/history"
	"github.com/banshee-data/firewatch/internal/sensor"
	"github.com/banshee-data/firewatch/internal/timeutil"
)

// PresentedAlert is the alert currently shown to the operator.
type PresentedAlert struct {
	Effect    alert.Effect `json:"effect"`
	Message   string       `json:"message"`
	ShownAt   time.Time    `json:"shown_at"`
	Dismissed bool         `json:"dismissed"`
}

// State is a consistent copy of the session for presentation.
type State struct {
	Reading      *sensor.Reading      `json:"reading"`
	AIConfidence *float64             `json:"ai_confidence,omitempty"`
	Status       sensor.Status        `json:"status"`
	LastUpdated  *time.Time           `json:"last_updated"`
	AlertState   alert.State          `json:"alert_state"`
	Alert        *PresentedAlert      `json:"alert"`
	Counts       history.Counts       `json:"counts"`
	Records      int                  `json:"records"`
	Device       *sensor.DeviceStatus `json:"device"`
	Output       device.Output        `json:"output"`
}

// Session owns the state the dashboard presents. All methods are safe for
// concurrent use; Process calls are serialised.
type Session struct {
	mu sync.Mutex

	thresholds sensor.Thresholds
	controller *alert.Controller
	store      *history.Store
	clock      timeutil.Clock

	last        *sensor.Sample
	lastStatus  sensor.Status
	lastUpdated time.Time
	presented   *PresentedAlert
	device      *sensor.DeviceStatus
	output      device.Output
}

// NewSession builds a session over store. A nil clock uses the real one.
func NewSession(thresholds sensor.Thresholds, store *history.Store, clock timeutil.Clock) *Session {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Session{
		thresholds: thresholds,
		controller: alert.NewController(),
		store:      store,
		clock:      clock,
	}
}

// Store returns the history store.
func (s *Session) Store() *history.Store {
	return s.store
}

func (s *Session) Thresholds() sensor.Thresholds {
	return s.thresholds
}

// Process classifies a sample, advances the alert latch and records the
// sample. It returns the alert effects followed by one UpdateChart effect.
func (s *Session) Process(sample sensor.Sample) []alert.Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.thresholds.Classify(sample.Reading)
	effects := s.controller.OnStatus(status, sample.Reading)
	s.store.Record(sample.Reading, status, sample.AIConfidence)

	last := sample
	s.last = &last
	s.lastStatus = status
	s.lastUpdated = s.clock.Now()

	for _, e := range effects {
		if e.IsAlert() {
			s.presented = &PresentedAlert{Effect: e, Message: e.Message(), ShownAt: s.lastUpdated}
		}
	}

	return append(effects, alert.Effect{Kind: alert.UpdateChart, Status: status, Reading: sample.Reading})
}

// Dismiss hides the presented alert. The latch is untouched, so a sustained
// status does not alert again. It reports whether there was an alert to
// dismiss.
func (s *Session) Dismiss() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presented == nil || s.presented.Dismissed {
		return false
	}
	s.presented.Dismissed = true
	return true
}

// ClearHistory empties the history store. The live reading and the alert
// latch are kept.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Clear()
}

// SetDeviceStatus caches the appliance's /status response.
func (s *Session) SetDeviceStatus(st sensor.DeviceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = &st
}

// Output is the camera output the dashboard shows by default.
func (s *Session) Output() device.Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

func (s *Session) SetOutput(o device.Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = o
}

// ToggleOutput switches between the annotated and raw output and returns
// the new selection.
func (s *Session) ToggleOutput() device.Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = s.output.Toggle()
	return s.output
}

// Snapshot copies the presentation state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Status:     s.lastStatus,
		AlertState: s.controller.State(),
		Counts:     s.store.Counts(),
		Records:    s.store.Len(),
		Output:     s.output,
	}
	if s.last != nil {
		r := s.last.Reading
		st.Reading = &r
		if s.last.AIConfidence != nil {
			c := *s.last.AIConfidence
			st.AIConfidence = &c
		}
		t := s.lastUpdated
		st.LastUpdated = &t
	}
	if s.presented != nil {
		p := *s.presented
		st.Alert = &p
	}
	if s.device != nil {
		d := *s.device
		st.Device = &d
	}
	return st
}
