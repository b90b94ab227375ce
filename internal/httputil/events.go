package httputil

import (
	"fmt"
	"io"
	"net/http"
)

// Subscriber hands out a channel of preformatted payloads per subscription.
type Subscriber interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
}

// ServeEvents streams payloads from a fresh subscription to w as
// Server-Sent Events until the client goes away or the channel closes.
func ServeEvents(w http.ResponseWriter, r *http.Request, sub Subscriber) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, c := sub.Subscribe()
	defer sub.Unsubscribe(id)

	io.WriteString(w, ": ping\n\n")
	flusher.Flush()

	for {
		select {
		case payload, ok := <-c:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
