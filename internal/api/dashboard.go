package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/banshee-data/firewatch/internal/device"
	"github.com/banshee-data/firewatch/internal/history"
	"github.com/banshee-data/firewatch/internal/httputil"
	"github.com/banshee-data/firewatch/internal/monitor"
	"github.com/banshee-data/firewatch/internal/sensor"
	"github.com/banshee-data/firewatch/internal/units"
	"github.com/banshee-data/firewatch/internal/version"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const recentEvents = 10

var dashboardTmpl = template.Must(template.New("dashboard.html.tmpl").Funcs(template.FuncMap{
	"statusClass": func(s sensor.Status) string {
		switch s {
		case sensor.Fire:
			return "fire"
		case sensor.Smoke:
			return "smoke"
		default:
			return "clear"
		}
	},
	"confidence": func(c *float64) string { return fmt.Sprintf("%.2f", *c) },
}).ParseFS(templateFS, "templates/dashboard.html.tmpl"))

type dashboardData struct {
	State        monitor.State
	Thresholds   sensor.Thresholds
	StreamURL    string
	AnnotatedURL string
	RawURL       string
	Events       []history.DetectionEvent
	Version      string
	Display      units.Display
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httputil.NotFound(w, "not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputil.MethodNotAllowed(w)
		return
	}

	st := s.session.Snapshot()
	data := dashboardData{
		State:      st,
		Thresholds: s.session.Thresholds(),
		Version:    version.Version,
		Display:    s.display,
	}
	if s.device != nil {
		data.StreamURL = s.device.StreamURL(st.Output)
		data.AnnotatedURL = s.device.StreamURL(device.Annotated)
		data.RawURL = s.device.StreamURL(device.Raw)
	}
	events := s.session.Store().Events()
	for i := len(events) - 1; i >= 0 && len(data.Events) < recentEvents; i-- {
		data.Events = append(data.Events, events[i])
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, data); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
