// Package api provides the HTTP API for observing and driving the world.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/talgya/gridworld/internal/engine"
	"github.com/talgya/gridworld/internal/persistence"
	"github.com/talgya/gridworld/internal/world"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxSSEConns = 2

// Server serves the world over HTTP and owns the host-side controls: the
// runner speed, the world seed, autosave and the population report.
type Server struct {
	World    *engine.World
	Runner   *engine.Runner
	DB       *persistence.DB // nil disables the archive endpoints
	Map      *world.Map
	Port     int
	AdminKey string // Bearer token for POST endpoints and the stream. Empty = disabled.
	SavePath string

	Restart        engine.RestartConfig
	AdminPerMinute int
	ReportEvery    int // ticks between population reports, 0 = off
	AutosaveEvery  int // ticks between archive saves, 0 = off

	mu   sync.Mutex // guards host
	host hostState

	ticks    atomic.Uint64
	sseConns atomic.Int32
	hub      hub
	srv      *http.Server
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	adminLimiter := NewRateLimiter(s.AdminPerMinute, time.Minute)
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return s.adminOnly(RateLimitMiddleware(adminLimiter, h))
	}

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/demographics", s.handleDemographics)
	mux.HandleFunc("GET /api/v1/locations", s.handleLocations)
	mux.HandleFunc("GET /api/v1/locations/{id}", s.handleLocationDetail)
	mux.HandleFunc("GET /api/v1/people", s.handlePeople)
	mux.HandleFunc("GET /api/v1/people/{id}", s.handlePerson)
	mux.HandleFunc("GET /api/v1/stats/vital", s.handleVitalStats)
	mux.HandleFunc("GET /api/v1/stats/current", s.handleCurrentStats)
	mux.HandleFunc("GET /api/v1/stats/recent", s.handleRecentStats)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/archive/events", s.handleArchiveEvents)
	mux.HandleFunc("GET /api/v1/speeds", s.handleSpeeds)
	mux.HandleFunc("GET /api/v1/map", s.handleMap)
	mux.HandleFunc("GET /api/v1/export", s.handleExport)

	// SSE tick stream (GET, requires bearer token).
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	// Admin endpoints.
	mux.HandleFunc("POST /api/v1/tick", admin(s.handleTick))
	mux.HandleFunc("POST /api/v1/seed", admin(s.handleSeed))
	mux.HandleFunc("POST /api/v1/runner/start", admin(s.handleRunnerStart))
	mux.HandleFunc("POST /api/v1/runner/stop", admin(s.handleRunnerStop))
	mux.HandleFunc("POST /api/v1/speed", admin(s.handleSpeed))
	mux.HandleFunc("POST /api/v1/import", admin(s.handleImport))
	mux.HandleFunc("POST /api/v1/save", admin(s.handleSave))
	mux.HandleFunc("POST /api/v1/load", admin(s.handleLoad))
	mux.HandleFunc("POST /api/v1/archive", admin(s.handleArchive))
	mux.HandleFunc("POST /api/v1/restart", admin(s.handleRestart))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the runner, archives and saves the world, then closes the
// HTTP listener. Errors from each step are joined.
func (s *Server) Shutdown(ctx context.Context) error {
	s.StopRunner()
	s.hub.closeAll()

	var errs []error
	if s.DB != nil {
		if err := s.Archive(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.SavePath != "" {
		if _, err := s.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.srv != nil {
		if err := s.srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "admin endpoints disabled (no GRIDWORLD_ADMIN_KEY set)")
			return
		}
		if !s.checkBearerToken(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	writeStatusJSON(w, http.StatusOK, data)
}

func writeStatusJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Warn("write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeStatusJSON(w, status, map[string]string{"error": msg})
}
