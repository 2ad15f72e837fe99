// Package config loads the gridworld host configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

// Environment variables read by FromEnv.
const (
	EnvConfigPath = "GRIDWORLD_CONFIG"
	EnvAdminKey   = "GRIDWORLD_ADMIN_KEY"
)

// DefaultPath is used when EnvConfigPath is unset.
const DefaultPath = "config/gridworld.toml"

type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	Runner     RunnerConfig     `toml:"runner"`
	World      WorldConfig      `toml:"world"`
	Storage    StorageConfig    `toml:"storage"`
	API        APIConfig        `toml:"api"`
	Logging    LoggingConfig    `toml:"logging"`
	Names      NamesConfig      `toml:"names"`

	AdminKey string `toml:"-"` // from the environment only
}

type SimulationConfig struct {
	StartYear     uint32 `toml:"start_year"`
	EventCapacity int    `toml:"event_capacity"`
	Seed          uint32 `toml:"seed"` // 0 = random at restart
}

type RunnerConfig struct {
	Speed       string `toml:"speed"` // key into engine.Speeds
	Autostart   bool   `toml:"autostart"`
	ReportEvery int    `toml:"report_every"` // ticks between population reports, 0 = off
}

type WorldConfig struct {
	Radius      int     `toml:"radius"`
	SeaLevel    float64 `toml:"sea_level"`
	MountainLvl float64 `toml:"mountain_level"`
	TilePercent int     `toml:"tile_percent"`
	PopMin      int     `toml:"pop_min"`
	PopMax      int     `toml:"pop_max"`
}

type StorageConfig struct {
	DBPath        string `toml:"db_path"`
	SavePath      string `toml:"save_path"`
	AutosaveEvery int    `toml:"autosave_every"` // ticks between archive saves, 0 = off
}

type APIConfig struct {
	Port           int `toml:"port"`
	AdminPerMinute int `toml:"admin_per_minute"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "auto", "text" or "json"
}

type NamesConfig struct {
	Path string `toml:"path"` // empty = embedded lists
}

// Load decodes path over Defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv loads the file named by GRIDWORLD_CONFIG (or DefaultPath) and
// applies GRIDWORLD_ADMIN_KEY.
func FromEnv() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		path = DefaultPath
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.AdminKey = os.Getenv(EnvAdminKey)
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		Simulation: SimulationConfig{
			StartYear:     4000,
			EventCapacity: 10000,
		},
		Runner: RunnerConfig{
			Speed:       "1_day",
			Autostart:   true,
			ReportEvery: 96,
		},
		World: WorldConfig{
			Radius:      12,
			SeaLevel:    0.25,
			MountainLvl: 0.72,
			TilePercent: 40,
			PopMin:      5,
			PopMax:      15,
		},
		Storage: StorageConfig{
			DBPath:        "data/gridworld.db",
			SavePath:      "data/world.sav",
			AutosaveEvery: 96,
		},
		API: APIConfig{
			Port:           8080,
			AdminPerMinute: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}
