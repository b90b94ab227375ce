// Package device is the HTTP client for the detection appliance.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/banshee-data/firewatch/internal/httputil"
	"github.com/banshee-data/firewatch/internal/sensor"
	"github.com/banshee-data/firewatch/internal/timeutil"
)

// DefaultBaseURL is where the appliance listens when run locally.
const DefaultBaseURL = "http://127.0.0.1:5000"

const (
	maxJSONBytes     = 1 << 20
	maxSnapshotBytes = 16 << 20
)

// ErrBadStatus is returned when the appliance answers with a non-2xx code.
var ErrBadStatus = errors.New("device: unexpected response status")

// Output selects the annotated or the raw camera output.
type Output int

const (
	Annotated Output = iota
	Raw
)

func (o Output) String() string {
	if o == Raw {
		return "raw"
	}
	return "annot"
}

func (o Output) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Toggle returns the other output.
func (o Output) Toggle() Output {
	if o == Raw {
		return Annotated
	}
	return Raw
}

// ParseOutput accepts "annot", "annotated" and "raw". The empty string
// selects Annotated.
func ParseOutput(s string) (Output, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "annot", "annotated":
		return Annotated, nil
	case "raw":
		return Raw, nil
	default:
		return Annotated, fmt.Errorf("unknown output %q", s)
	}
}

func (o Output) streamPath() string {
	if o == Raw {
		return "/video_feed_raw"
	}
	return "/video_feed"
}

// Snapshot is a still frame fetched from the appliance.
type Snapshot struct {
	Output      Output
	ContentType string
	Data        []byte
	TakenAt     time.Time
}

// Filename names the snapshot for download.
func (s Snapshot) Filename() string {
	return SnapshotFilename(s.Output, s.TakenAt)
}

// SnapshotFilename returns snapshot_<output>_<epoch-ms>.jpg.
func SnapshotFilename(o Output, t time.Time) string {
	return fmt.Sprintf("snapshot_%s_%d.jpg", o, t.UnixMilli())
}

// Client talks to one appliance.
type Client struct {
	base  *url.URL
	http  httputil.HTTPClient
	clock timeutil.Clock
}

// NewClient returns a client for the appliance at baseURL. A nil hc uses
// http.DefaultClient and a nil clock the real one. No request timeout is
// added: callers bound requests through their context if they need to.
func NewClient(baseURL string, hc httputil.HTTPClient, clock timeutil.Clock) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid device url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid device url %q: scheme must be http or https", baseURL)
	}
	if hc == nil {
		hc = httputil.NewStandardClient(nil)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Client{base: u, http: hc, clock: clock}, nil
}

// BaseURL returns the appliance base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// StreamURL is the MJPEG stream for the output. Streams are referenced, not
// proxied.
func (c *Client) StreamURL(o Output) string {
	return c.endpoint(o.streamPath(), nil)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, limit int64) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, limit))
		return nil, nil, fmt.Errorf("GET %s: %w: %d", path, ErrBadStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, nil, fmt.Errorf("GET %s: failed to read body: %w", path, err)
	}
	return resp, body, nil
}

// Status fetches /status.
func (c *Client) Status(ctx context.Context) (sensor.DeviceStatus, error) {
	_, body, err := c.get(ctx, "/status", nil, maxJSONBytes)
	if err != nil {
		return sensor.DeviceStatus{}, err
	}
	return sensor.DecodeDeviceStatus(body)
}

// Latest fetches /sensor_data. The sample is stamped when the response
// arrives, not when the request was issued.
func (c *Client) Latest(ctx context.Context) (sensor.Sample, error) {
	_, body, err := c.get(ctx, "/sensor_data", nil, maxJSONBytes)
	if err != nil {
		return sensor.Sample{}, err
	}
	return sensor.DecodeSensorPayload(body, c.clock.Now())
}

// Snapshot fetches /snapshot?type=<output>.
func (c *Client) Snapshot(ctx context.Context, o Output) (Snapshot, error) {
	resp, body, err := c.get(ctx, "/snapshot", url.Values{"type": {o.String()}}, maxSnapshotBytes)
	if err != nil {
		return Snapshot{}, err
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	return Snapshot{Output: o, ContentType: ct, Data: body, TakenAt: c.clock.Now()}, nil
}
