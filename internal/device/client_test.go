package device

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/firewatch/internal/httputil"
	"github.com/banshee-data/firewatch/internal/sensor"
	"github.com/banshee-data/firewatch/internal/timeutil"
)

var now = time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T) (*Client, *httputil.MockHTTPClient, *timeutil.MockClock) {
	t.Helper()
	mock := httputil.NewMockHTTPClient()
	clock := timeutil.NewMockClock(now)
	c, err := NewClient("http://camera.local:5000/", mock, clock)
	require.NoError(t, err)
	return c, mock, clock
}

func TestNewClientValidatesURL(t *testing.T) {
	_, err := NewClient("ftp://camera", nil, nil)
	assert.Error(t, err)
	_, err = NewClient("://bad", nil, nil)
	assert.Error(t, err)

	c, err := NewClient("", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestLatest(t *testing.T) {
	c, mock, _ := newTestClient(t)
	mock.AddResponse(http.StatusOK, `{"field1": "51.5", "field2": 40, "field3": 2100, "ai_confidence": 0.87}`)

	got, err := c.Latest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, sensor.Reading{Temperature: 51.5, Humidity: 40, GasLevel: 2100, Timestamp: now}, got.Reading)
	require.NotNil(t, got.AIConfidence)
	assert.Equal(t, 0.87, *got.AIConfidence)

	req := mock.GetRequest(0)
	require.NotNil(t, req)
	assert.Equal(t, "http://camera.local:5000/sensor_data", req.URL.String())
	assert.Equal(t, http.MethodGet, req.Method)
}

func TestLatestFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*httputil.MockHTTPClient)
		is    error
	}{
		{"transport", func(m *httputil.MockHTTPClient) { m.AddErrorResponse(errors.New("connection refused")) }, nil},
		{"server error", func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusInternalServerError, "oops") }, ErrBadStatus},
		{"not found", func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusNotFound, "") }, ErrBadStatus},
		{"malformed", func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusOK, "<html>") }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mock, _ := newTestClient(t)
			tt.setup(mock)
			_, err := c.Latest(context.Background())
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	c, mock, _ := newTestClient(t)
	mock.AddResponse(http.StatusOK, `{"device":"cpu","img_max_width":960,"frame_skip":2,"stream_fps":30,"target_inf_fps":30}`)

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sensor.DeviceStatus{Device: "cpu", ImgMaxWidth: 960, FrameSkip: 2, StreamFPS: 30, TargetInfFPS: 30}, st)
	assert.Equal(t, "/status", mock.GetRequest(0).URL.Path)
}

func TestSnapshot(t *testing.T) {
	c, mock, clock := newTestClient(t)
	mock.AddResponseWithHeaders(http.StatusOK, []byte{0xff, 0xd8, 0xff}, http.Header{"Content-Type": {"image/jpeg"}})
	mock.AddResponse(http.StatusOK, "jpeg")
	clock.Advance(1500 * time.Millisecond)

	snap, err := c.Snapshot(context.Background(), Raw)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, snap.Data)
	assert.Equal(t, "image/jpeg", snap.ContentType)
	assert.Equal(t, "snapshot_raw_1777636801500.jpg", snap.Filename())
	assert.Equal(t, "raw", mock.GetRequest(0).URL.Query().Get("type"))

	snap, err = c.Snapshot(context.Background(), Annotated)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", snap.ContentType, "missing content type defaults to jpeg")
	assert.Equal(t, "annot", mock.GetRequest(1).URL.Query().Get("type"))
}

func TestStreamURLAndOutput(t *testing.T) {
	c, _, _ := newTestClient(t)
	assert.Equal(t, "http://camera.local:5000/video_feed", c.StreamURL(Annotated))
	assert.Equal(t, "http://camera.local:5000/video_feed_raw", c.StreamURL(Raw))

	assert.Equal(t, Raw, Annotated.Toggle())
	assert.Equal(t, Annotated, Raw.Toggle())

	for in, want := range map[string]Output{"": Annotated, "annot": Annotated, "Annotated": Annotated, " raw ": Raw} {
		got, err := ParseOutput(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseOutput("thermal")
	assert.Error(t, err)
}

func TestAgainstRealServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sensor_data":
			io.WriteString(w, `{"field1": 22, "field2": null, "field3": "n/a"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil, timeutil.NewMockClock(now))
	require.NoError(t, err)

	got, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sensor.Reading{Temperature: 22, Timestamp: now}, got.Reading)
	assert.Nil(t, got.AIConfidence)

	_, err = c.Status(context.Background())
	assert.ErrorIs(t, err, ErrBadStatus)
}
