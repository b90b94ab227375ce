package api

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/firewatch/internal/alert"
	"github.com/banshee-data/firewatch/internal/monitoring"
	"github.com/banshee-data/firewatch/internal/sensor"
)

const hubBuffer = 8

// alertEvent is the JSON payload of one server-sent alert.
type alertEvent struct {
	Kind    alert.Kind     `json:"kind"`
	Status  sensor.Status  `json:"status"`
	Message string         `json:"message"`
	Reading sensor.Reading `json:"reading"`
}

// AlertHub fans alert effects out to server-sent event subscribers. A slow
// subscriber misses alerts rather than blocking the poll loop.
type AlertHub struct {
	mu          sync.Mutex
	subscribers map[string]chan string
	closed      bool
}

func NewAlertHub() *AlertHub {
	return &AlertHub{subscribers: make(map[string]chan string)}
}

// Subscribe registers a subscriber. After Close the returned channel is
// already closed.
func (h *AlertHub) Subscribe() (string, chan string) {
	id := uuid.New().String()
	ch := make(chan string, hubBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subscribers[id] = ch
	return id, ch
}

func (h *AlertHub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

func (h *AlertHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Apply forwards alert effects and ignores chart updates.
func (h *AlertHub) Apply(e alert.Effect) {
	if !e.IsAlert() {
		return
	}
	payload, err := json.Marshal(alertEvent{Kind: e.Kind, Status: e.Status, Message: e.Message(), Reading: e.Reading})
	if err != nil {
		monitoring.Logf("alert hub: failed to marshal %s: %v", e.Kind, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subscribers {
		select {
		case ch <- string(payload):
		default:
			monitoring.Debugf("alert hub: subscriber %s is full, dropping alert", id)
		}
	}
}

// Close ends every subscription.
func (h *AlertHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}
