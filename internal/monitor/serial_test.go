package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/firewatch/internal/sensor"
	"github.com/banshee-data/firewatch/internal/serialmux"
	"github.com/banshee-data/firewatch/internal/timeutil"
)

func TestSerialSourceReadsBoardLines(t *testing.T) {
	muteLogs(t)
	port := serialmux.NewTestableSerialPort()
	port.BlockReads = true
	mux := serialmux.NewSerialMux(port)

	clock := timeutil.NewMockClock(t0)
	src := NewSerialSource(mux, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)
	runDone := make(chan error, 1)
	go func() { runDone <- src.Run(ctx) }()

	require.Eventually(t, func() bool { return mux.SubscriberCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err := src.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoReading)

	port.AddReadData([]byte("# MQ-2 warm-up\nnot json\n{\"field1\": 21, \"field2\": 40, \"field3\": 100}\n{\"field1\": 52, \"field2\": 38, \"field3\": \"2300\"}\n"))

	var got sensor.Sample
	require.Eventually(t, func() bool {
		s, err := src.Latest(ctx)
		if err != nil {
			return false
		}
		got = s
		return got.Reading.Temperature == 52
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, sensor.Reading{Temperature: 52, Humidity: 38, GasLevel: 2300, Timestamp: t0}, got.Reading)

	_, err = src.Latest(ctx)
	assert.True(t, errors.Is(err, ErrNoReading), "a sample is reported once")

	mux.Close()
	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the mux closed")
	}
}

func TestSerialSourceFeedsPoller(t *testing.T) {
	muteLogs(t)
	src := NewSerialSource(serialmux.NewSerialMux(serialmux.NewTestableSerialPort()), timeutil.NewMockClock(t0))
	src.handleLine(`{"field1": 70, "field2": 20, "field3": 10}`)

	session, _ := newTestSession()
	p := NewPoller(src, session, PollerOptions{})
	require.NoError(t, p.PollOnce(context.Background()))
	assert.Equal(t, sensor.Smoke, session.Snapshot().Status)
	assert.ErrorIs(t, p.PollOnce(context.Background()), ErrNoReading)
}
