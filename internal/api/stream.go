package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/talgya/gridworld/internal/engine"
)

// subscriberBuffer is how many tick results a slow client may fall behind
// before results are dropped for it.
const subscriberBuffer = 64

// hub fans runner tick results out to stream subscribers. The zero value is
// ready to use.
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan engine.TickResult
}

func (h *hub) subscribe() (int, <-chan engine.TickResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]chan engine.TickResult)
	}
	h.nextID++
	ch := make(chan engine.TickResult, subscriberBuffer)
	h.subs[h.nextID] = ch
	return h.nextID, ch
}

func (h *hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// publish never blocks; a full subscriber misses the result.
func (h *hub) publish(res engine.TickResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- res:
		default:
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.AdminKey == "" {
		writeError(w, http.StatusForbidden, "streaming disabled (no admin key)")
		return
	}
	if !s.checkBearerToken(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if s.sseConns.Add(1) > maxSSEConns {
		s.sseConns.Add(-1)
		writeError(w, http.StatusServiceUnavailable, "too many SSE connections")
		return
	}
	defer s.sseConns.Add(-1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, ch := s.hub.subscribe()
	defer s.hub.unsubscribe(id)

	// Catch-up: current status so a client can render before the next tick.
	writeSSE(w, "status", map[string]any{
		"date":       s.World.Date(),
		"population": s.World.Population(),
		"running":    s.Runner.IsRunning(),
	})
	flusher.Flush()

	slog.Info("SSE client connected", "sub_id", id)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, "tick", res)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", id)
			return
		}
	}
}

// writeSSE writes a single event in SSE format.
func writeSSE(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
