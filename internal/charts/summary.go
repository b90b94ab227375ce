package charts

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SeriesSummary describes one series over the window.
type SeriesSummary struct {
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
	Latest float64 `json:"latest"`
}

// Summary describes the whole window.
type Summary struct {
	Points      int           `json:"points"`
	From        time.Time     `json:"from,omitempty"`
	To          time.Time     `json:"to,omitempty"`
	Temperature SeriesSummary `json:"temperature"`
	Humidity    SeriesSummary `json:"humidity"`
	GasLevel    SeriesSummary `json:"gas_level"`
}

// Summarize computes per-series statistics. An empty window yields a zero
// Summary; a single point has zero deviation.
func Summarize(points []Point) Summary {
	sum := Summary{Points: len(points)}
	if len(points) == 0 {
		return sum
	}
	sum.From = points[0].Time
	sum.To = points[len(points)-1].Time
	sum.Temperature = summarizeSeries(values(points, Temperature))
	sum.Humidity = summarizeSeries(values(points, Humidity))
	sum.GasLevel = summarizeSeries(values(points, GasLevel))
	return sum
}

func summarizeSeries(xs []float64) SeriesSummary {
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 || math.IsNaN(std) {
		std = 0
	}
	return SeriesSummary{
		Mean:   mean,
		Min:    floats.Min(xs),
		Max:    floats.Max(xs),
		StdDev: std,
		Latest: xs[len(xs)-1],
	}
}
