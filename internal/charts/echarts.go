package charts

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderHTML writes an interactive page with one line chart for the
// environment series and one for gas. Gas readings run orders of magnitude
// above the others and get their own axis.
func RenderHTML(w io.Writer, points []Point) error {
	x := make([]string, len(points))
	for i, p := range points {
		x[i] = p.Time.Local().Format("15:04:05")
	}
	subtitle := fmt.Sprintf("%d points", len(points))
	if len(points) > 0 {
		subtitle = fmt.Sprintf("%d points, last %s", len(points), points[len(points)-1].Time.Local().Format(time.RFC3339))
	}

	env := newLine("Temperature & Humidity", subtitle, "")
	env.SetXAxis(x)
	for _, s := range []Series{Temperature, Humidity} {
		env.AddSeries(s.Label(), lineData(points, s),
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}

	gas := newLine("Gas level", subtitle, GasLevel.Label())
	gas.SetXAxis(x).AddSeries(GasLevel.Label(), lineData(points, GasLevel))

	page := components.NewPage()
	page.PageTitle = "Firewatch sensor trend"
	page.AddCharts(env, gas)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render trend page: %w", err)
	}
	return nil
}

func newLine(title, subtitle, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)
	return line
}

func lineData(points []Point, s Series) []opts.LineData {
	out := make([]opts.LineData, len(points))
	for i, p := range points {
		out[i] = opts.LineData{Value: s.Value(p)}
	}
	return out
}
