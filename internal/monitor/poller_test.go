package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/firewatch/internal/alert"
	"github.com/banshee-data/firewatch/internal/device"
	"github.com/banshee-data/firewatch/internal/history"
	"github.com/banshee-data/firewatch/internal/httputil"
	"github.com/banshee-data/firewatch/internal/monitoring"
	"github.com/banshee-data/firewatch/internal/sensor"
	"github.com/banshee-data/firewatch/internal/timeutil"
)

// scriptedSource hands out one queued result per call; calls beyond the
// script block until released.
type scriptedSource struct {
	mu      sync.Mutex
	results []result
	calls   chan context.Context
}

type result struct {
	sample sensor.Sample
	err    error
	gate   chan struct{}
}

func newScriptedSource(results ...result) *scriptedSource {
	return &scriptedSource{results: results, calls: make(chan context.Context, 64)}
}

func (s *scriptedSource) Latest(ctx context.Context) (sensor.Sample, error) {
	s.mu.Lock()
	var r result
	if len(s.results) > 0 {
		r = s.results[0]
		s.results = s.results[1:]
	} else {
		r = result{err: ErrNoReading}
	}
	s.mu.Unlock()

	s.calls <- ctx
	if r.gate != nil {
		<-r.gate
	}
	return r.sample, r.err
}

func (s *scriptedSource) waitCall(t *testing.T) context.Context {
	t.Helper()
	select {
	case ctx := <-s.calls:
		return ctx
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for poll")
	}
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	effects []alert.Effect
}

func (r *recordingSink) Apply(e alert.Effect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = append(r.effects, e)
}

func (r *recordingSink) kinds() []alert.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return effectKinds(r.effects)
}

func waitRecords(t *testing.T, s *Session, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Store().Len() == n }, 2*time.Second, 5*time.Millisecond)
}

func muteLogs(t *testing.T) *[]string {
	t.Helper()
	var mu sync.Mutex
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(nil) })
	return &lines
}

func TestPollerPollsImmediatelyThenEveryInterval(t *testing.T) {
	muteLogs(t)
	session, clock := newTestSession()
	src := newScriptedSource(result{sample: clearSample}, result{sample: fireSample}, result{sample: fireSample})
	sink := &recordingSink{}
	p := NewPoller(src, session, PollerOptions{Clock: clock, Sinks: []EffectSink{sink}})
	assert.Equal(t, DefaultPollInterval, p.Interval())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	src.waitCall(t)
	waitRecords(t, session, 1)
	require.Len(t, clock.Tickers(), 1)
	assert.Equal(t, 5*time.Second, clock.Tickers()[0].Interval())

	clock.Advance(4 * time.Second)
	select {
	case <-src.calls:
		t.Fatal("polled before the interval elapsed")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Second)
	src.waitCall(t)
	waitRecords(t, session, 2)
	clock.Advance(5 * time.Second)
	src.waitCall(t)
	waitRecords(t, session, 3)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	p.Wait()

	assert.Equal(t, 3, session.Store().Len())
	assert.Equal(t, []alert.Kind{alert.UpdateChart, alert.ShowFireAlert, alert.UpdateChart, alert.UpdateChart}, sink.kinds())
	assert.True(t, clock.Tickers()[0].Stopped())
}

func TestPollerFailuresLeaveStateUnchanged(t *testing.T) {
	logs := muteLogs(t)
	session, _ := newTestSession()
	src := newScriptedSource(
		result{sample: smokeSample},
		result{err: fmt.Errorf("GET /sensor_data: %w: 500", device.ErrBadStatus)},
		result{err: errors.New("connection refused")},
		result{err: ErrNoReading},
		result{sample: fireSample},
	)
	sink := &recordingSink{}
	p := NewPoller(src, session, PollerOptions{Sinks: []EffectSink{sink}})

	require.NoError(t, p.PollOnce(context.Background()))
	before := session.Snapshot()

	for i := 0; i < 3; i++ {
		require.Error(t, p.PollOnce(context.Background()))
		assert.Equal(t, before, session.Snapshot(), "failure %d changed the session", i)
	}
	assert.Len(t, *logs, 2, "no-reading skips are not logged as failures")

	require.NoError(t, p.PollOnce(context.Background()))
	assert.Equal(t, sensor.Fire, session.Snapshot().Status)
	assert.Equal(t, []alert.Kind{alert.ShowSmokeAlert, alert.UpdateChart, alert.ShowFireAlert, alert.UpdateChart}, sink.kinds())
}

func TestPollerInFlightPollSurvivesStop(t *testing.T) {
	muteLogs(t)
	session, clock := newTestSession()
	gate := make(chan struct{})
	src := newScriptedSource(result{sample: fireSample, gate: gate})
	p := NewPoller(src, session, PollerOptions{Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	pollCtx := src.waitCall(t)
	cancel()
	<-done

	assert.NoError(t, pollCtx.Err(), "poll context must not be cancelled with the loop")
	close(gate)
	p.Wait()

	assert.Equal(t, 1, session.Store().Len())
	assert.Equal(t, sensor.Fire, session.Snapshot().Status)
}

func TestPollerWaitTimeoutDoesNotBlockOnHungPoll(t *testing.T) {
	muteLogs(t)
	session, clock := newTestSession()
	gate := make(chan struct{})
	src := newScriptedSource(result{sample: fireSample, gate: gate})
	p := NewPoller(src, session, PollerOptions{Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	src.waitCall(t)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	start := time.Now()
	assert.False(t, p.WaitTimeout(50*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 0, session.Store().Len())

	close(gate)
	assert.True(t, p.WaitTimeout(2*time.Second))
	assert.Equal(t, 1, session.Store().Len())
}

func TestPollerProcessesInCompletionOrder(t *testing.T) {
	muteLogs(t)
	session, clock := newTestSession()
	slow := make(chan struct{})
	src := newScriptedSource(
		result{sample: smokeSample, gate: slow},
		result{sample: clearSample},
	)
	p := NewPoller(src, session, PollerOptions{Clock: clock, Interval: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	src.waitCall(t)
	clock.Advance(time.Second)
	src.waitCall(t)

	// the second poll finishes while the first is still outstanding
	require.Eventually(t, func() bool { return session.Store().Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, sensor.Clear, session.Snapshot().Status)

	close(slow)
	require.Eventually(t, func() bool { return session.Store().Len() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, sensor.Smoke, session.Snapshot().Status)

	records := session.Store().Records()
	assert.Equal(t, sensor.Clear, records[0].Status)
	assert.Equal(t, sensor.Smoke, records[1].Status)
}

func TestPollerWithDeviceClient(t *testing.T) {
	muteLogs(t)
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(200, `{"field1": 55, "field2": 35, "field3": 2500}`)
	mock.AddResponse(503, "busy")
	mock.AddResponse(200, `{"field1": 21, "field2": 35, "field3": 100}`)

	clock := timeutil.NewMockClock(t0)
	client, err := device.NewClient("http://camera:5000", mock, clock)
	require.NoError(t, err)

	session := NewSession(sensor.DefaultThresholds(), history.NewStore(history.Options{}), clock)
	var alerts []string
	p := NewPoller(client, session, PollerOptions{Clock: clock, Sinks: []EffectSink{
		SinkFunc(func(e alert.Effect) {
			if e.IsAlert() {
				alerts = append(alerts, e.Message())
			}
		}),
		LogSink{},
	}})

	require.NoError(t, p.PollOnce(context.Background()))
	require.Error(t, p.PollOnce(context.Background()))
	require.NoError(t, p.PollOnce(context.Background()))

	assert.Equal(t, []string{"FIRE DETECTED! Temperature: 55.0°C, Gas: 2500"}, alerts)
	assert.Equal(t, history.Counts{Fire: 1, Clear: 1}, session.Store().Counts())
}

func TestPollerAddSink(t *testing.T) {
	muteLogs(t)
	session, _ := newTestSession()
	src := newScriptedSource(result{sample: clearSample}, result{sample: clearSample})
	p := NewPoller(src, session, PollerOptions{})

	require.NoError(t, p.PollOnce(context.Background()))
	sink := &recordingSink{}
	p.AddSink(sink)
	require.NoError(t, p.PollOnce(context.Background()))
	assert.Equal(t, []alert.Kind{alert.UpdateChart}, sink.kinds())
}
