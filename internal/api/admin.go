package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/talgya/gridworld/internal/agents"
	"github.com/talgya/gridworld/internal/engine"
	"github.com/talgya/gridworld/internal/snapshot"
)

const (
	maxTicksPerRequest = 96 * 100
	maxImportBytes     = 64 << 20
)

// decodeBody reads an optional JSON body into v. An empty body leaves v as is.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "n", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if n < 1 || n > maxTicksPerRequest {
		writeError(w, http.StatusBadRequest, "n must be between 1 and 9600")
		return
	}
	writeJSON(w, s.World.TickN(n))
}

type seedRequest struct {
	Count    int               `json:"count"`
	Min      int               `json:"min"`
	Max      int               `json:"max"`
	Location agents.LocationID `json:"location"`
}

// handleSeed adds founders. A positive count seeds exactly that many;
// otherwise a uniform count in [min, max] is drawn.
func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	var req seedRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if s.Map != nil && s.Map.Tile(req.Location) == nil {
		writeError(w, http.StatusBadRequest, "location is not on the map")
		return
	}

	added := req.Count
	switch {
	case req.Count > 0:
		s.World.SeedPopulationAt(req.Count, req.Location)
	case req.Max > 0 || req.Min > 0:
		added = s.World.SeedPopulationRange(req.Min, req.Max, req.Location)
	default:
		writeError(w, http.StatusBadRequest, "count or min/max required")
		return
	}
	slog.Info("population seeded", "location", req.Location, "added", added)
	writeJSON(w, map[string]any{
		"added":      added,
		"location":   req.Location,
		"population": s.World.Population(),
	})
}

func (s *Server) handleRunnerStart(w http.ResponseWriter, r *http.Request) {
	started := s.StartRunner()
	writeJSON(w, map[string]any{"started": started, "running": s.Runner.IsRunning(), "speed": s.Speed()})
}

func (s *Server) handleRunnerStop(w http.ResponseWriter, r *http.Request) {
	s.StopRunner()
	writeJSON(w, map[string]any{"running": s.Runner.IsRunning()})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed string `json:"speed"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	key := s.SetSpeed(req.Speed)
	writeJSON(w, map[string]any{
		"speed":       key,
		"interval_ms": engine.SpeedInterval(key).Milliseconds(),
		"running":     s.Runner.IsRunning(),
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	res, err := s.World.Import(body)
	if err != nil {
		status := http.StatusInternalServerError
		if engine.IsSnapshotError(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.SavePath == "" {
		writeError(w, http.StatusNotFound, "no save path configured")
		return
	}
	res, err := s.Save()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if s.SavePath == "" {
		writeError(w, http.StatusNotFound, "no save path configured")
		return
	}
	res, err := s.Load()
	switch {
	case errors.Is(err, snapshot.ErrInvalidState):
		// The world was replaced; only the host state was dropped.
		writeJSON(w, map[string]any{"result": res, "warning": err.Error()})
	case errors.Is(err, snapshot.ErrIO):
		writeError(w, http.StatusNotFound, err.Error())
	case engine.IsSnapshotError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, res)
	}
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, errNoArchive.Error())
		return
	}
	if err := s.Archive(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"archived": true, "population": s.World.Population()})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if s.Map == nil {
		writeError(w, http.StatusNotFound, "no map loaded")
		return
	}
	var req struct {
		Seed uint32 `json:"seed"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	res, err := s.RestartWorld(req.Seed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, res)
}
