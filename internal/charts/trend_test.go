package charts

import (
	"bytes"
	"encoding/json"
	"image/png"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/firewatch/internal/alert"
	"github.com/banshee-data/firewatch/internal/sensor"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func reading(i int, temp, hum, gas float64) sensor.Reading {
	return sensor.Reading{
		Temperature: temp,
		Humidity:    hum,
		GasLevel:    gas,
		Timestamp:   t0.Add(time.Duration(i) * 5 * time.Second),
	}
}

func TestTrend_AppliesOnlyChartUpdates(t *testing.T) {
	tr := NewTrend(5)
	tr.Apply(alert.Effect{Kind: alert.ShowFireAlert, Status: sensor.Fire, Reading: reading(0, 60, 30, 2500)})
	assert.Equal(t, 0, tr.Len())

	tr.Apply(alert.Effect{Kind: alert.UpdateChart, Status: sensor.Fire, Reading: reading(0, 60, 30, 2500)})
	require.Equal(t, 1, tr.Len())
	p := tr.Points()[0]
	assert.Equal(t, 60.0, p.Temperature)
	assert.Equal(t, 2500.0, p.GasLevel)
	assert.Equal(t, sensor.Fire, p.Status)
	assert.True(t, p.Time.Equal(t0))
}

func TestTrend_WindowDropsOldest(t *testing.T) {
	tr := NewTrend(3)
	for i := 0; i < 5; i++ {
		tr.Add(reading(i, float64(i), 0, 0), sensor.Clear)
	}
	pts := tr.Points()
	require.Len(t, pts, 3)
	for i, p := range pts {
		assert.Equal(t, float64(i+2), p.Temperature)
	}
	assert.Equal(t, 3, tr.Capacity())

	tr.Reset()
	assert.Equal(t, 0, tr.Len())
}

func TestTrend_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultPoints, NewTrend(0).Capacity())
	assert.Equal(t, DefaultPoints, NewTrend(-4).Capacity())
}

func TestTrend_PointsIsACopy(t *testing.T) {
	tr := NewTrend(3)
	tr.Add(reading(0, 20, 40, 100), sensor.Clear)
	pts := tr.Points()
	pts[0].Temperature = 999
	assert.Equal(t, 20.0, tr.Points()[0].Temperature)
}

func TestTrend_Concurrent(t *testing.T) {
	tr := NewTrend(10)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				tr.Add(reading(i, float64(g), 0, 0), sensor.Clear)
				_ = tr.Points()
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, 10, tr.Len())
}

func TestParseSeries(t *testing.T) {
	for in, want := range map[string]Series{
		"temperature": Temperature,
		"TEMP":        Temperature,
		" humidity ":  Humidity,
		"gas":         GasLevel,
		"gas_level":   GasLevel,
	} {
		got, err := ParseSeries(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseSeries("pressure")
	assert.Error(t, err)

	list, err := ParseSeriesList("temperature,gas")
	require.NoError(t, err)
	assert.Equal(t, []Series{Temperature, GasLevel}, list)

	list, err = ParseSeriesList("")
	require.NoError(t, err)
	assert.Nil(t, list)

	_, err = ParseSeriesList("temperature,bogus")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	pts := []Point{
		{Time: t0, Temperature: 20, Humidity: 40, GasLevel: 100},
		{Time: t0.Add(time.Second), Temperature: 30, Humidity: 50, GasLevel: 300},
		{Time: t0.Add(2 * time.Second), Temperature: 40, Humidity: 60, GasLevel: 200},
	}
	s := Summarize(pts)
	assert.Equal(t, 3, s.Points)
	assert.True(t, s.From.Equal(t0))
	assert.True(t, s.To.Equal(t0.Add(2*time.Second)))

	assert.InDelta(t, 30, s.Temperature.Mean, 1e-9)
	assert.Equal(t, 20.0, s.Temperature.Min)
	assert.Equal(t, 40.0, s.Temperature.Max)
	assert.InDelta(t, 10, s.Temperature.StdDev, 1e-9) // sample stddev of 20,30,40
	assert.Equal(t, 40.0, s.Temperature.Latest)

	assert.Equal(t, 300.0, s.GasLevel.Max)
	assert.Equal(t, 200.0, s.GasLevel.Latest)
}

func TestSummarize_EdgeCases(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	s := Summarize([]Point{{Time: t0, Temperature: 25}})
	assert.Equal(t, 0.0, s.Temperature.StdDev)
	assert.Equal(t, 25.0, s.Temperature.Mean)

	_, err := json.Marshal(s)
	require.NoError(t, err, "single point summary must be JSON encodable")
}

func TestRenderHTML(t *testing.T) {
	pts := []Point{
		{Time: t0, Temperature: 20, Humidity: 40, GasLevel: 100},
		{Time: t0.Add(5 * time.Second), Temperature: 55, Humidity: 35, GasLevel: 2100},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, pts))
	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "Firewatch sensor trend")

	buf.Reset()
	require.NoError(t, RenderHTML(&buf, nil))
	assert.True(t, strings.Contains(buf.String(), "0 points"))
}

func TestRenderPNG(t *testing.T) {
	pts := []Point{
		{Time: t0, Temperature: 20, Humidity: 40, GasLevel: 100},
		{Time: t0.Add(5 * time.Second), Temperature: 55, Humidity: 35, GasLevel: 2100},
		{Time: t0.Add(10 * time.Second), Temperature: math.NaN(), Humidity: 35, GasLevel: 2100},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, pts, 0, 0))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())

	buf.Reset()
	require.NoError(t, RenderPNG(&buf, nil, DefaultPNGWidth, DefaultPNGHeight, GasLevel))
	_, err = png.Decode(&buf)
	require.NoError(t, err)
}
