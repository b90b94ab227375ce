package monitor

import (
	"context"
	"sync"

	"github.com/banshee-data/firewatch/internal/monitoring"
	"github.com/banshee-data/firewatch/internal/sensor"
	"github.com/banshee-data/firewatch/internal/serialmux"
	"github.com/banshee-data/firewatch/internal/timeutil"
)

// LineSubscriber is the part of a serial mux a SerialSource consumes.
type LineSubscriber interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
}

// SerialSource turns the JSON lines printed by a UART sensor board into
// samples. The board pushes at its own rate; Latest hands out the newest
// line not yet reported.
type SerialSource struct {
	lines LineSubscriber
	clock timeutil.Clock

	mu     sync.Mutex
	latest sensor.Sample
	fresh  bool
}

func NewSerialSource(lines LineSubscriber, clock timeutil.Clock) *SerialSource {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &SerialSource{lines: lines, clock: clock}
}

// Run consumes lines until ctx is done or the mux closes.
func (s *SerialSource) Run(ctx context.Context) error {
	id, ch := s.lines.Subscribe()
	defer s.lines.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-ch:
			if !ok {
				return nil
			}
			s.handleLine(line)
		}
	}
}

func (s *SerialSource) handleLine(line string) {
	if serialmux.ClassifyLine(line) != serialmux.LineReading {
		monitoring.Debugf("serial: ignoring line %q", line)
		return
	}
	sample, err := sensor.DecodeSensorPayload([]byte(line), s.clock.Now())
	if err != nil {
		monitoring.Debugf("serial: %v", err)
		return
	}
	s.mu.Lock()
	s.latest = sample
	s.fresh = true
	s.mu.Unlock()
}

// Latest returns the newest unreported sample, or ErrNoReading.
func (s *SerialSource) Latest(context.Context) (sensor.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh {
		return sensor.Sample{}, ErrNoReading
	}
	s.fresh = false
	return s.latest, nil
}
