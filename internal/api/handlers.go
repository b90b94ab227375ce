package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/firewatch/internal/charts"
	"github.com/banshee-data/firewatch/internal/device"
	"github.com/banshee-data/firewatch/internal/history"
	"github.com/banshee-data/firewatch/internal/httputil"
	"github.com/banshee-data/firewatch/internal/monitor"
	"github.com/banshee-data/firewatch/internal/sensor"
	"github.com/banshee-data/firewatch/internal/version"
)

type stateResponse struct {
	monitor.State
	Thresholds sensor.Thresholds `json:"thresholds"`
	StreamURL  string            `json:"stream_url,omitempty"`
	Version    string            `json:"version"`

	// TemperatureText is the live temperature in the configured unit.
	TemperatureText string `json:"temperature_text,omitempty"`
}

type historyResponse struct {
	Records []history.Record `json:"records"`
	Total   int              `json:"total"`
}

type eventsResponse struct {
	Events []history.DetectionEvent `json:"events"`
	Counts history.Counts           `json:"counts"`
}

type countsResponse struct {
	history.Counts
	Total int `json:"total"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	st := s.session.Snapshot()
	resp := stateResponse{
		State:      st,
		Thresholds: s.session.Thresholds(),
		Version:    version.Version,
	}
	if s.device != nil {
		resp.StreamURL = s.device.StreamURL(st.Output)
	}
	if st.Reading != nil {
		resp.TemperatureText = s.display.Temperature(st.Reading.Temperature)
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	store := s.session.Store()
	httputil.WriteJSONOK(w, historyResponse{Records: store.Recent(limit), Total: store.Len()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	store := s.session.Store()
	httputil.WriteJSONOK(w, eventsResponse{Events: store.Events(), Counts: store.Counts()})
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	c := s.session.Store().Counts()
	httputil.WriteJSONOK(w, countsResponse{Counts: c, Total: c.Total()})
}

// handleExport downloads the history as CSV. An empty history has nothing
// to download and answers 204.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	data, ok := s.session.Store().ExportCSV()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.WriteAttachment(w, "text/csv; charset=utf-8", history.ExportFilename(s.clock.Now()), data)
}

// handleClear deletes the history. The caller must send confirm=true;
// anything else is refused with 409 and changes nothing.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	confirmed, _ := strconv.ParseBool(r.FormValue("confirm"))
	if !confirmed {
		httputil.Conflict(w, "clearing history is irreversible; resend with confirm=true")
		return
	}
	s.session.ClearHistory()
	httputil.WriteJSONOK(w, map[string]interface{}{
		"cleared": true,
		"counts":  s.session.Store().Counts(),
	})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]bool{"dismissed": s.session.Dismiss()})
}

func (s *Server) handleAlertStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.ServeEvents(w, r, s.alerts)
}

// handleStream redirects GET to the selected camera output. POST switches
// the default output: to the one named by output=, or to the other one.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.device == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no device configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		o := s.session.Output()
		if v := r.URL.Query().Get("output"); v != "" {
			parsed, err := device.ParseOutput(v)
			if err != nil {
				httputil.BadRequest(w, err.Error())
				return
			}
			o = parsed
		}
		http.Redirect(w, r, s.device.StreamURL(o), http.StatusFound)
	case http.MethodPost:
		var o device.Output
		if v := r.FormValue("output"); v != "" {
			parsed, err := device.ParseOutput(v)
			if err != nil {
				httputil.BadRequest(w, err.Error())
				return
			}
			s.session.SetOutput(parsed)
			o = parsed
		} else {
			o = s.session.ToggleOutput()
		}
		httputil.WriteJSONOK(w, map[string]interface{}{
			"output":     o,
			"stream_url": s.device.StreamURL(o),
		})
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleSnapshot proxies one still image from the appliance as a download.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.device == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no device configured")
		return
	}
	o, err := device.ParseOutput(r.URL.Query().Get("type"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	snap, err := s.device.Snapshot(r.Context(), o)
	if err != nil {
		httputil.BadGateway(w, fmt.Sprintf("failed to fetch snapshot: %v", err))
		return
	}
	httputil.WriteAttachment(w, snap.ContentType, snap.Filename(), snap.Data)
}

func (s *Server) handleTrendSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, charts.Summarize(s.trend.Points()))
}

func (s *Server) handleTrendChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	var buf bytes.Buffer
	if err := charts.RenderHTML(&buf, s.trend.Points()); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleTrendPNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	series, err := charts.ParseSeriesList(r.URL.Query().Get("series"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := charts.RenderPNG(&buf, s.trend.Points(), charts.DefaultPNGWidth, charts.DefaultPNGHeight, series...); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}
