package charts

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Default PNG dimensions.
const (
	DefaultPNGWidth  = 8 * vg.Inch
	DefaultPNGHeight = 4 * vg.Inch
)

// RenderPNG plots the selected series against time. With no series given it
// plots temperature and humidity. Non-finite values are skipped, and a
// series with nothing left is left out of the legend.
func RenderPNG(w io.Writer, points []Point, width, height vg.Length, series ...Series) error {
	if len(series) == 0 {
		series = []Series{Temperature, Humidity}
	}
	if width <= 0 {
		width = DefaultPNGWidth
	}
	if height <= 0 {
		height = DefaultPNGHeight
	}

	p := plot.New()
	p.Title.Text = "Sensor trend"
	p.X.Label.Text = "Time (UTC)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "15:04:05"}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	if len(series) == 1 {
		p.Y.Label.Text = series[0].Label()
	}

	for i, s := range series {
		pts := make(plotter.XYs, 0, len(points))
		for _, pt := range points {
			v := s.Value(pt)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(pt.Time.UnixMilli()) / 1000, Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("%s line: %w", s, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Label(), line)
	}

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
