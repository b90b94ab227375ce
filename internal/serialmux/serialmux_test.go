package serialmux

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/firewatch/internal/httputil"
)

// localHostRequest makes a request that passes tsweb's debug access check.
func localHostRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

func receive(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case line, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
	}
	return ""
}

func TestSerialMux_SubscribeUnsubscribe(t *testing.T) {
	mux := NewSerialMux(NewTestableSerialPort())

	id1, ch1 := mux.Subscribe()
	id2, _ := mux.Subscribe()
	if id1 == "" || id1 == id2 {
		t.Fatalf("expected unique non-empty IDs, got %q and %q", id1, id2)
	}
	if n := mux.SubscriberCount(); n != 2 {
		t.Fatalf("SubscriberCount() = %d, want 2", n)
	}

	mux.Unsubscribe(id1)
	if _, ok := <-ch1; ok {
		t.Error("expected channel to be closed after Unsubscribe")
	}
	mux.Unsubscribe(id1) // second call is a no-op
	if n := mux.SubscriberCount(); n != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", n)
	}
}

func TestSerialMux_SendCommand(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	if err := mux.SendCommand("RATE 5"); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if err := mux.SendCommand("PING\n"); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if got := string(port.GetWrittenData()); got != "RATE 5\nPING\n" {
		t.Errorf("written = %q", got)
	}

	port.WriteError = errors.New("io error")
	if err := mux.SendCommand("X"); err == nil || err.Error() != "io error" {
		t.Errorf("expected io error, got %v", err)
	}

	port.ShortWrite = true
	if err := mux.SendCommand("X"); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("expected ErrWriteFailed, got %v", err)
	}
}

func TestSerialMux_MonitorFansOutLines(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewSerialMux(port)

	_, a := mux.Subscribe()
	_, b := mux.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	port.AddReadData([]byte("{\"field1\": 21}\r\n\n# boot\n"))

	for _, ch := range []chan string{a, b} {
		if got := receive(t, ch); got != `{"field1": 21}` {
			t.Errorf("first line = %q", got)
		}
		if got := receive(t, ch); got != "# boot" {
			t.Errorf("second line = %q", got)
		}
	}

	cancel()
	port.Close()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Monitor returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
}

func TestSerialMux_MonitorEOFAndReadError(t *testing.T) {
	port := NewTestableSerialPort()
	port.AddReadData([]byte("one\n"))
	mux := NewSerialMux(port)
	if err := mux.Monitor(context.Background()); err != nil {
		t.Errorf("Monitor at EOF returned %v, want nil", err)
	}

	port2 := NewTestableSerialPort()
	port2.ReadError = errors.New("device unplugged")
	mux2 := NewSerialMux(port2)
	if err := mux2.Monitor(context.Background()); err == nil || !strings.Contains(err.Error(), "unplugged") {
		t.Errorf("Monitor returned %v, want read error", err)
	}
}

func TestSerialMux_Close(t *testing.T) {
	port := NewTestableSerialPort()
	port.CloseError = errors.New("close failed")
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	if err := mux.Close(); err == nil {
		t.Error("expected close error to propagate")
	}
	if _, ok := <-ch; ok {
		t.Error("expected subscriber channel closed")
	}
	if !port.Closed {
		t.Error("expected port closed")
	}

	_, late := mux.Subscribe()
	if _, ok := <-late; ok {
		t.Error("expected subscription after Close to be closed")
	}
}

func TestAttachAdminRoutes_Send(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	tests := []struct {
		name   string
		method string
		form   url.Values
		want   int
	}{
		{"valid", http.MethodPost, url.Values{"command": {"RATE 5"}}, http.StatusOK},
		{"empty", http.MethodPost, url.Values{"command": {"  "}}, http.StatusBadRequest},
		{"wrong method", http.MethodGet, nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := localHostRequest(tt.method, "/debug/serial/send", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()
			httpMux.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
	if got := string(port.GetWrittenData()); got != "RATE 5\n" {
		t.Errorf("written = %q", got)
	}

	port.WriteError = errors.New("io error")
	req := localHostRequest(http.MethodPost, "/debug/serial/send", strings.NewReader("command=X"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	httpMux.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestAttachAdminRoutes_TailMethod(t *testing.T) {
	mux := NewSerialMux(NewTestableSerialPort())
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	w := httptest.NewRecorder()
	httpMux.ServeHTTP(w, localHostRequest(http.MethodPost, "/debug/serial/tail", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestSerialTailStreamsEvents(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewSerialMux(port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.ServeEvents(w, r, mux)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content-type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	if line, _ := reader.ReadString('\n'); line != ": ping\n" {
		t.Fatalf("first line = %q", line)
	}
	reader.ReadString('\n')

	// the subscription exists once the ping has been flushed
	port.AddReadData([]byte("{\"field1\": 30}\n"))
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if line != "data: {\"field1\": 30}\n" {
		t.Errorf("event = %q", line)
	}

	mux.Close()
}

func TestClassifyLine(t *testing.T) {
	tests := map[string]LineType{
		`{"field1": 21, "field2": 40, "field3": 300}`: LineReading,
		`  {"field3":"1200"}`:                         LineReading,
		"# MQ-2 warming up":                           LineComment,
		`{"ok": true}`:                                LineUnknown,
		"garbage":                                     LineUnknown,
		"":                                            LineUnknown,
	}
	for in, want := range tests {
		if got := ClassifyLine(in); got != want {
			t.Errorf("ClassifyLine(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewMockSerialMux(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := NewMockSerialMux(ctx, []byte(`{"field1": 25}`), 5*time.Millisecond)
	_, ch := mux.Subscribe()
	go mux.Monitor(ctx)

	if got := receive(t, ch); got != `{"field1": 25}` {
		t.Errorf("mock line = %q", got)
	}
	if err := mux.SendCommand("anything"); err != nil {
		t.Errorf("mock SendCommand failed: %v", err)
	}
	mux.Close()
}
