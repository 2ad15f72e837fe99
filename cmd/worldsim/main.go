// Command worldsim hosts the gridworld demographic simulation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/gridworld/internal/agents"
	"github.com/talgya/gridworld/internal/api"
	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/config"
	"github.com/talgya/gridworld/internal/engine"
	"github.com/talgya/gridworld/internal/persistence"
	"github.com/talgya/gridworld/internal/snapshot"
	"github.com/talgya/gridworld/internal/world"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worldsim failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.Logging, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	slog.Info("gridworld demographic simulation",
		"start_year", cfg.Simulation.StartYear,
		"days_per_month", calendar.DaysPerMonth,
		"months_per_year", calendar.MonthsPerYear,
	)

	// ── Names ─────────────────────────────────────────────────────────
	var names agents.Names = agents.DefaultNames()
	if cfg.Names.Path != "" {
		nl, err := agents.LoadNames(cfg.Names.Path)
		if err != nil {
			return err
		}
		names = nl
		slog.Info("name lists loaded", "path", cfg.Names.Path)
	}

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := persistence.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Storage.DBPath)

	w := engine.NewWorld(engine.Options{
		Start:         calendar.New(cfg.Simulation.StartYear, 1, 1),
		EventCapacity: cfg.Simulation.EventCapacity,
		Names:         names,
	})

	srv := &api.Server{
		World:          w,
		Runner:         engine.NewRunner(),
		DB:             db,
		Port:           cfg.API.Port,
		AdminKey:       cfg.AdminKey,
		SavePath:       cfg.Storage.SavePath,
		AdminPerMinute: cfg.API.AdminPerMinute,
		ReportEvery:    cfg.Runner.ReportEvery,
		AutosaveEvery:  cfg.Storage.AutosaveEvery,
		Restart: engine.RestartConfig{
			TilePercent: cfg.World.TilePercent,
			PopMin:      cfg.World.PopMin,
			PopMax:      cfg.World.PopMax,
		},
	}
	srv.SetSpeed(cfg.Runner.Speed)

	// ── Load or Generate World State ─────────────────────────────────
	// The map is regenerated from the world seed, so it is built after the
	// seed is known.
	fresh, err := restore(srv)
	if err != nil {
		return err
	}
	seed := srv.Seed()
	if fresh {
		seed = cfg.Simulation.Seed
		for seed == 0 {
			seed = rand.Uint32()
		}
	}

	gen := world.GenConfig{
		Radius:      cfg.World.Radius,
		Seed:        int64(seed),
		SeaLevel:    cfg.World.SeaLevel,
		MountainLvl: cfg.World.MountainLvl,
	}
	srv.Map = world.Generate(gen)
	for t, c := range world.TerrainCounts(srv.Map) {
		slog.Info("terrain", "type", t.String(), "count", c)
	}
	slog.Info("map generated", "map", srv.Map.String())

	if fresh {
		if _, err := srv.RestartWorld(seed); err != nil {
			return err
		}
	}

	slog.Info("world ready",
		"population", w.Population(),
		"date", w.Date().String(),
		"seed", srv.Seed(),
		"locations", len(w.PopulationByLocation()),
	)

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn(config.EnvAdminKey + " not set, admin POST endpoints will be disabled")
	}
	srv.Start()

	if cfg.Runner.Autostart {
		srv.StartRunner()
	}

	// ── Run until signalled ───────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\ngridworld is alive: %d people across %d locations.\n", w.Population(), len(w.PopulationByLocation()))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)

	<-ctx.Done()
	slog.Info("received signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	fmt.Println("Simulation stopped. World state saved.")
	return nil
}

// restore loads the archived world, falling back to the save file. It
// reports true when neither exists and a new world must be created.
func restore(srv *api.Server) (bool, error) {
	if srv.DB.HasWorldState() {
		slog.Info("found archived world state, loading...")
		if _, err := srv.RestoreArchive(); err != nil {
			return false, err
		}
		return false, nil
	}

	_, err := srv.Load()
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, snapshot.ErrIO):
		slog.Info("no saved state found, generating new world...")
		return true, nil
	case errors.Is(err, snapshot.ErrInvalidState):
		slog.Warn("save file host state discarded", "error", err)
		return false, nil
	default:
		return false, err
	}
}
