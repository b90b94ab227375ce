// Package charts keeps the rolling trend window shown on the dashboard and
// renders it as an interactive page, a PNG, or summary statistics.
package charts

import (
	"sync"
	"time"

	"github.com/banshee-data/firewatch/internal/alert"
	"github.com/banshee-data/firewatch/internal/sensor"
)

// DefaultPoints is the trend window length when none is configured.
const DefaultPoints = 20

// Point is one sample in the trend window.
type Point struct {
	Time        time.Time     `json:"time"`
	Temperature float64       `json:"temperature"`
	Humidity    float64       `json:"humidity"`
	GasLevel    float64       `json:"gas_level"`
	Status      sensor.Status `json:"status"`
}

// Trend is a fixed-length window of the most recent readings. It is an
// effect sink: every UpdateChart effect appends one point.
type Trend struct {
	mu       sync.RWMutex
	points   []Point
	capacity int
}

// NewTrend creates an empty window holding at most capacity points.
func NewTrend(capacity int) *Trend {
	if capacity <= 0 {
		capacity = DefaultPoints
	}
	return &Trend{capacity: capacity}
}

// Apply appends the reading of an UpdateChart effect and ignores the rest.
func (t *Trend) Apply(e alert.Effect) {
	if e.Kind != alert.UpdateChart {
		return
	}
	t.Add(e.Reading, e.Status)
}

// Add appends a point, dropping the oldest when the window is full.
func (t *Trend) Add(r sensor.Reading, status sensor.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.points = append(t.points, Point{
		Time:        r.Timestamp,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		GasLevel:    r.GasLevel,
		Status:      status,
	})
	if over := len(t.points) - t.capacity; over > 0 {
		t.points = append(t.points[:0], t.points[over:]...)
	}
}

// Points returns a copy of the window, oldest first.
func (t *Trend) Points() []Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Point, len(t.points))
	copy(out, t.points)
	return out
}

// Len is the number of points held.
func (t *Trend) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.points)
}

func (t *Trend) Capacity() int {
	return t.capacity
}

// Reset empties the window.
func (t *Trend) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.points = nil
}
