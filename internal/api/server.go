// Package api serves the firewatch dashboard and its JSON API.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/firewatch/internal/charts"
	"github.com/banshee-data/firewatch/internal/device"
	"github.com/banshee-data/firewatch/internal/monitor"
	"github.com/banshee-data/firewatch/internal/timeutil"
	"github.com/banshee-data/firewatch/internal/units"
)

// ANSI escape codes for the request log
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Device is the part of the appliance client the API proxies to.
type Device interface {
	StreamURL(o device.Output) string
	Snapshot(ctx context.Context, o device.Output) (device.Snapshot, error)
}

// Options configures a Server. Session is required; a nil Device disables
// the stream and snapshot routes, and a nil Trend or Alerts gets a fresh one.
type Options struct {
	Session *monitor.Session
	Device  Device
	Trend   *charts.Trend
	Alerts  *AlertHub
	Clock   timeutil.Clock
	// Display controls temperature units and time zone on the dashboard.
	Display units.Display
}

type Server struct {
	session *monitor.Session
	device  Device
	trend   *charts.Trend
	alerts  *AlertHub
	clock   timeutil.Clock
	display units.Display
}

func NewServer(opts Options) *Server {
	s := &Server{
		session: opts.Session,
		device:  opts.Device,
		trend:   opts.Trend,
		alerts:  opts.Alerts,
		clock:   opts.Clock,
		display: opts.Display,
	}
	if s.trend == nil {
		s.trend = charts.NewTrend(charts.DefaultPoints)
	}
	if s.alerts == nil {
		s.alerts = NewAlertHub()
	}
	if s.clock == nil {
		s.clock = timeutil.RealClock{}
	}
	return s
}

// Trend is the chart window the server renders.
func (s *Server) Trend() *charts.Trend { return s.trend }

// Alerts is the hub feeding /api/alerts/stream.
func (s *Server) Alerts() *AlertHub { return s.alerts }

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/history/export", s.handleExport)
	mux.HandleFunc("/api/history/clear", s.handleClear)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/counts", s.handleCounts)
	mux.HandleFunc("/api/alert/dismiss", s.handleDismiss)
	mux.HandleFunc("/api/alerts/stream", s.handleAlertStream)
	mux.HandleFunc("/api/stream", s.handleStream)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/trend/summary", s.handleTrendSummary)
	mux.HandleFunc("/charts/trend", s.handleTrendChart)
	mux.HandleFunc("/charts/trend.png", s.handleTrendPNG)
	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ListenAndServe serves h on addr until ctx is cancelled. A listen failure
// is returned; shutdown gets one second before connections are closed.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}
