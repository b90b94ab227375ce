package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/banshee-data/firewatch/internal/alert"
	"github.com/banshee-data/firewatch/internal/monitoring"
	"github.com/banshee-data/firewatch/internal/sensor"
	"github.com/banshee-data/firewatch/internal/timeutil"
)

// DefaultPollInterval is how often the appliance is polled.
const DefaultPollInterval = 5000 * time.Millisecond

// ErrNoReading is returned by a Source with nothing new to report. The tick
// is skipped without logging a failure.
var ErrNoReading = errors.New("no new reading")

// Source produces one sample per poll.
type Source interface {
	Latest(ctx context.Context) (sensor.Sample, error)
}

// EffectSink presents effects. Apply must not block for long; it runs on the
// poll goroutine.
type EffectSink interface {
	Apply(alert.Effect)
}

// SinkFunc adapts a function to EffectSink.
type SinkFunc func(alert.Effect)

func (f SinkFunc) Apply(e alert.Effect) { f(e) }

// PollerOptions configures a Poller.
type PollerOptions struct {
	Interval time.Duration
	Clock    timeutil.Clock
	Sinks    []EffectSink
}

// Poller polls a Source on a fixed interval and feeds the Session.
//
// Every tick polls in its own goroutine, so a slow response never delays
// the next tick and results are processed in the order they complete.
// Polls are detached from the Run context: stopping the loop stops new
// ticks but lets in-flight polls finish.
type Poller struct {
	source   Source
	session  *Session
	interval time.Duration
	clock    timeutil.Clock

	sinksMu sync.RWMutex
	sinks   []EffectSink

	// dispatchMu keeps processing and sink delivery of one result together.
	dispatchMu sync.Mutex
	inflight   sync.WaitGroup
}

func NewPoller(source Source, session *Session, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Poller{
		source:   source,
		session:  session,
		interval: opts.Interval,
		clock:    opts.Clock,
		sinks:    append([]EffectSink(nil), opts.Sinks...),
	}
}

// AddSink registers a sink for subsequent results.
func (p *Poller) AddSink(s EffectSink) {
	p.sinksMu.Lock()
	defer p.sinksMu.Unlock()
	p.sinks = append(p.sinks, s)
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run polls once immediately and then every interval until ctx is done.
// It returns ctx.Err() without waiting for in-flight polls; use Wait.
func (p *Poller) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	monitoring.Logf("polling every %v", p.interval)
	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			p.tick(ctx)
		}
	}
}

// Wait blocks until every started poll has finished.
func (p *Poller) Wait() {
	p.inflight.Wait()
}

// WaitTimeout is Wait bounded by d. It reports whether every poll finished;
// polls still running after d are left to complete in the background.
func (p *Poller) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (p *Poller) tick(ctx context.Context) {
	detached := context.WithoutCancel(ctx)
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.PollOnce(detached)
	}()
}

// PollOnce fetches one sample and, on success, processes it and hands the
// effects to every sink. Failures leave the session untouched.
func (p *Poller) PollOnce(ctx context.Context) error {
	sample, err := p.source.Latest(ctx)
	if err != nil {
		if errors.Is(err, ErrNoReading) {
			monitoring.Debugf("poll: %v", err)
		} else {
			monitoring.Logf("Error fetching sensor data: %v", err)
		}
		return err
	}

	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()

	effects := p.session.Process(sample)

	p.sinksMu.RLock()
	sinks := p.sinks
	p.sinksMu.RUnlock()

	for _, e := range effects {
		for _, s := range sinks {
			s.Apply(e)
		}
	}
	return nil
}

// LogSink writes alert effects to the log.
type LogSink struct{}

func (LogSink) Apply(e alert.Effect) {
	if e.IsAlert() {
		monitoring.Logf("ALERT: %s", e.Message())
	}
}
