package engine

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/gridworld/internal/agents"
	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/entropy"
)

func TestShuffledIndices(t *testing.T) {
	a := shuffledIndices(20, 1234)
	b := shuffledIndices(20, 1234)
	assert.Equal(t, a, b)

	sorted := slices.Clone(a)
	slices.Sort(sorted)
	for i, v := range sorted {
		require.Equal(t, i, v, "result is a permutation")
	}
	assert.NotEqual(t, a, shuffledIndices(20, 4321))
	assert.Empty(t, shuffledIndices(0, 1))
	assert.Equal(t, []int{0}, shuffledIndices(1, 1))
}

func TestRestart(t *testing.T) {
	habitable := make([]agents.LocationID, 10)
	for i := range habitable {
		habitable[i] = agents.LocationID(100 + i)
	}

	w := newTestWorld(entropy.NewSource(1))
	w.SeedPopulation(50)
	w.TickN(200)

	res := w.Restart(habitable, 77, RestartConfig{})
	assert.Equal(t, uint32(77), res.Seed)
	assert.Equal(t, 4, res.Tiles)
	assert.Equal(t, calendar.Start(), res.Date)
	assert.Equal(t, res.Population, w.Population())
	assert.Zero(t, w.EventCount())
	assert.Equal(t, agents.PersonID(res.Population+1), w.NextPersonID())

	occupied := w.PopulationByLocation()
	require.Len(t, occupied, 4)
	for _, lc := range occupied {
		assert.GreaterOrEqual(t, lc.Count, 5)
		assert.LessOrEqual(t, lc.Count, 15)
	}

	other := newTestWorld(entropy.NewSource(99))
	other.Restart(habitable, 77, RestartConfig{})
	var a, b []agents.LocationID
	for _, lc := range occupied {
		a = append(a, lc.Location)
	}
	for _, lc := range other.PopulationByLocation() {
		b = append(b, lc.Location)
	}
	assert.Equal(t, a, b, "the seed alone picks the tiles")
}

func TestRestartConfigDefaults(t *testing.T) {
	c := RestartConfig{TilePercent: 500}.withDefaults()
	assert.Equal(t, 100, c.TilePercent)
	assert.Equal(t, 5, c.PopMin)
	assert.Equal(t, 15, c.PopMax)

	c = RestartConfig{TilePercent: -3, PopMin: 1, PopMax: 2}.withDefaults()
	assert.Equal(t, 1, c.TilePercent)
	assert.Equal(t, 1, c.PopMin)
	assert.Equal(t, 2, c.PopMax)

	tests := []struct {
		name     string
		in       RestartConfig
		min, max int
	}{
		{"only min set above default max", RestartConfig{PopMin: 20}, 20, 20},
		{"only min set", RestartConfig{PopMin: 8}, 8, 15},
		{"only max set", RestartConfig{PopMax: 30}, 5, 30},
		{"max below min", RestartConfig{PopMin: 12, PopMax: 3}, 12, 12},
		{"negative", RestartConfig{PopMin: -1, PopMax: -1}, 5, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.in.withDefaults()
			assert.Equal(t, tt.min, c.PopMin)
			assert.Equal(t, tt.max, c.PopMax)
		})
	}
}

func TestRestart_MinOnlyConfigNeverSeedsBelowMin(t *testing.T) {
	habitable := []agents.LocationID{1, 2, 3, 4, 5}
	w := newTestWorld(entropy.NewSource(3))
	w.Restart(habitable, 5, RestartConfig{TilePercent: 100, PopMin: 8})

	occupied := w.PopulationByLocation()
	require.Len(t, occupied, 5)
	for _, lc := range occupied {
		assert.GreaterOrEqual(t, lc.Count, 8)
		assert.LessOrEqual(t, lc.Count, 15)
	}
}
