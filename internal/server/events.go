package server

import (
	"fmt"
	"net/http"
	"time"
)

// handleEvents streams the slide index as server-sent events, on every change
// and at least once per SSE interval.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	changes, stop := s.deck.Watch()
	defer stop()

	interval := s.opts.SSEInterval
	if interval < minSSEInterval {
		interval = minSSEInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	send := func(index int) bool {
		_, err := fmt.Fprintf(w, "id: %s\ndata: %d\n\n", time.Now().Format(time.TimeOnly), index)
		if err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(s.deck.Index()) {
		return
	}
	for {
		var ok bool
		select {
		case <-r.Context().Done():
			return
		case i := <-changes:
			ok = send(i)
			ticker.Reset(interval)
		case <-ticker.C:
			ok = send(s.deck.Index())
		}
		if !ok {
			return
		}
	}
}
