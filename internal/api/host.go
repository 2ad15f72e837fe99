package api

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/dustin/go-humanize"

	"github.com/talgya/gridworld/internal/engine"
	"github.com/talgya/gridworld/internal/snapshot"
)

// errNoArchive is returned by archive operations when no database is attached.
var errNoArchive = errors.New("archive database not configured")

// hostState is the opaque blob stored next to the world in save files and
// the archive.
type hostState struct {
	Seed    uint32 `json:"-"`
	Speed   string `json:"speed"`
	Running bool   `json:"running"`
	Ticks   uint64 `json:"ticks"`
}

func encodeState(h hostState) string {
	b, err := json.Marshal(h)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// decodeState parses a blob written by encodeState. Foreign or empty blobs
// yield the zero state.
func decodeState(raw string) hostState {
	var h hostState
	if raw == "" {
		return h
	}
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		slog.Warn("ignoring unreadable host state", "error", err)
		return hostState{}
	}
	return h
}

// normalizeSpeed maps unknown keys to engine.DefaultSpeed.
func normalizeSpeed(key string) string {
	for _, sp := range engine.Speeds {
		if sp.Key == key {
			return key
		}
	}
	return engine.DefaultSpeed
}

// Seed returns the seed the current world was restarted with.
func (s *Server) Seed() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host.Seed
}

// SetSeed records the seed of the current world.
func (s *Server) SetSeed(seed uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.host.Seed = seed
}

// Speed returns the current runner speed key.
func (s *Server) Speed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return normalizeSpeed(s.host.Speed)
}

func (s *Server) state() (uint32, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.host
	h.Speed = normalizeSpeed(h.Speed)
	h.Running = s.Runner.IsRunning()
	h.Ticks = s.ticks.Load()
	return h.Seed, encodeState(h)
}

// adopt applies a restored seed and state blob.
func (s *Server) adopt(seed uint32, raw string) hostState {
	h := decodeState(raw)
	h.Seed = seed
	h.Speed = normalizeSpeed(h.Speed)

	s.mu.Lock()
	s.host = h
	s.mu.Unlock()
	s.ticks.Store(h.Ticks)
	return h
}

// StartRunner starts ticking the world at the current speed.
func (s *Server) StartRunner() bool {
	return s.Runner.Start(s.World, engine.SpeedInterval(s.Speed()), s.onTick)
}

// StopRunner stops the runner and waits for an in-flight tick.
func (s *Server) StopRunner() {
	s.Runner.Stop()
}

// SetSpeed changes the runner speed, restarting the runner if it is going.
// Unknown keys select the default speed. It returns the key in effect.
func (s *Server) SetSpeed(key string) string {
	key = normalizeSpeed(key)
	s.mu.Lock()
	s.host.Speed = key
	s.mu.Unlock()

	if s.Runner.IsRunning() {
		s.Runner.Stop()
		s.StartRunner()
	}
	slog.Info("runner speed changed", "speed", key)
	return key
}

// onTick runs after every runner tick with the world lock released.
func (s *Server) onTick(res engine.TickResult) {
	n := s.ticks.Add(1)
	s.hub.publish(res)

	if s.ReportEvery > 0 && n%uint64(s.ReportEvery) == 0 {
		slog.Info("population report",
			"date", res.Date.String(),
			"population", res.Population,
			"events", s.World.EventCount(),
		)
	}
	if s.AutosaveEvery > 0 && s.DB != nil && n%uint64(s.AutosaveEvery) == 0 {
		if err := s.Archive(); err != nil {
			slog.Error("autosave failed", "error", err)
		}
	}
}

// Archive writes the world and host state to the database.
func (s *Server) Archive() error {
	if s.DB == nil {
		return errNoArchive
	}
	seed, state := s.state()
	d := s.World.Snapshot()
	if err := s.DB.SaveWorldState(d, seed, state); err != nil {
		return fmt.Errorf("archive world: %w", err)
	}
	slog.Debug("world archived", "population", len(d.People), "events", len(d.Events))
	return nil
}

// RestoreArchive replaces the world with the archived one and adopts its
// seed and host state.
func (s *Server) RestoreArchive() (engine.ImportResult, error) {
	if s.DB == nil {
		return engine.ImportResult{}, errNoArchive
	}
	a, err := s.DB.LoadWorldState()
	if err != nil {
		return engine.ImportResult{}, fmt.Errorf("restore archive: %w", err)
	}
	res := s.World.Restore(a.Data)
	h := s.adopt(a.Seed, a.State)
	slog.Info("world restored from archive",
		"world_id", a.WorldID,
		"population", res.Population,
		"year", res.CalendarYear,
		"seed", h.Seed,
		"speed", h.Speed,
		"saved", humanize.Time(a.SavedAt),
	)
	return res, nil
}

// Save writes the world and host state to SavePath.
func (s *Server) Save() (engine.SaveResult, error) {
	seed, state := s.state()
	return s.World.SaveToFile(s.SavePath, []byte(state), seed)
}

// Load replaces the world with the file at SavePath. When the state blob
// is unreadable the world is still replaced, the seed is adopted, and the
// error wraps snapshot.ErrInvalidState.
func (s *Server) Load() (engine.LoadResult, error) {
	res, err := s.World.LoadFromFile(s.SavePath)
	switch {
	case errors.Is(err, snapshot.ErrInvalidState):
		s.adopt(res.Seed, "")
		return res, err
	case err != nil:
		return res, err
	}
	s.adopt(res.Seed, res.State)
	return res, nil
}

// RestartWorld resets the world onto the habitable tiles of the map. A zero
// seed picks a random one. With an archive attached a new world id is
// issued.
func (s *Server) RestartWorld(seed uint32) (engine.RestartResult, error) {
	for seed == 0 {
		seed = rand.Uint32()
	}
	res := s.World.Restart(s.Map.Habitable(), seed, s.Restart)

	s.mu.Lock()
	s.host.Seed = seed
	s.mu.Unlock()
	s.ticks.Store(0)

	if s.DB != nil {
		id, err := s.DB.StartNewWorld()
		if err != nil {
			return res, fmt.Errorf("restart world: %w", err)
		}
		slog.Info("new world id", "world_id", id)
		if err := s.Archive(); err != nil {
			return res, err
		}
	}
	slog.Info("world restarted", "seed", seed, "tiles", res.Tiles, "population", res.Population)
	return res, nil
}
