package engine

import (
	"github.com/talgya/gridworld/internal/agents"
	"github.com/talgya/gridworld/internal/calendar"
)

// RestartConfig controls how a fresh world is populated. Each zero field takes
// its default from DefaultRestartConfig on its own. PopMax is raised to PopMin
// when it is smaller.
type RestartConfig struct {
	TilePercent int // share of habitable tiles to settle, clamped to 1..100
	PopMin      int
	PopMax      int
}

func DefaultRestartConfig() RestartConfig {
	return RestartConfig{TilePercent: 40, PopMin: 5, PopMax: 15}
}

func (c RestartConfig) withDefaults() RestartConfig {
	def := DefaultRestartConfig()
	if c.TilePercent == 0 {
		c.TilePercent = def.TilePercent
	}
	c.TilePercent = min(max(c.TilePercent, 1), 100)
	if c.PopMin <= 0 {
		c.PopMin = def.PopMin
	}
	if c.PopMax <= 0 {
		c.PopMax = def.PopMax
	}
	c.PopMax = max(c.PopMax, c.PopMin)
	return c
}

// RestartResult describes a freshly populated world.
type RestartResult struct {
	Seed       uint32        `json:"seed"`
	Population int           `json:"population"`
	Tiles      int           `json:"tiles"`
	Date       calendar.Date `json:"date"`
}

// Restart empties the world and settles a seed-determined subset of the
// habitable locations, each with a random founder count in
// [PopMin, PopMax]. The same seed and location list always select the same
// tiles.
func (w *World) Restart(habitable []agents.LocationID, seed uint32, cfg RestartConfig) RestartResult {
	cfg = cfg.withDefaults()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.reset(w.start)

	tiles := (len(habitable)*cfg.TilePercent + 99) / 100
	res := RestartResult{Seed: seed, Tiles: tiles}
	for _, idx := range shuffledIndices(len(habitable), seed)[:tiles] {
		res.Population += w.seedRange(cfg.PopMin, cfg.PopMax, habitable[idx])
	}
	res.Date = w.date
	return res
}

const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407
)

// shuffledIndices returns a Fisher-Yates permutation of [0, n) driven by a
// 64-bit LCG seeded with seed.
func shuffledIndices(n int, seed uint32) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	state := uint64(seed)
	for i := n - 1; i >= 1; i-- {
		state = state*lcgMultiplier + lcgIncrement
		j := int((state >> 33) % uint64(i+1))
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx
}
