// Package world generates the hex map whose tiles are the locations people
// live on. Coordinates are axial (q, r).
package world

import "github.com/talgya/gridworld/internal/agents"

// HexCoord is a position on the grid in axial coordinates. The third cube
// coordinate is s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// ring returns max(|q|, |r|, |s|), the distance from the origin.
func (h HexCoord) ring() int {
	return max(abs(h.Q), abs(h.R), abs(h.S()))
}

// HexNeighborDirections are the six axial neighbor offsets.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	return HexCoord{Q: a.Q - b.Q, R: a.R - b.R}.ring()
}

// Terrain is the landform of a tile.
type Terrain uint8

const (
	TerrainOcean Terrain = iota
	TerrainFlats
	TerrainHills
	TerrainMountains
)

var terrainNames = [...]string{"ocean", "flats", "hills", "mountains"}

func (t Terrain) String() string {
	if int(t) < len(terrainNames) {
		return terrainNames[t]
	}
	return "unknown"
}

func (t Terrain) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Biome is the climate of a land tile. Ocean tiles have BiomeNone.
type Biome uint8

const (
	BiomeNone Biome = iota
	BiomeGrassland
	BiomePlains
	BiomeDesert
	BiomeTundra
	BiomeAlpine
)

var biomeNames = [...]string{"", "grassland", "plains", "desert", "tundra", "alpine"}

func (b Biome) String() string {
	if int(b) < len(biomeNames) {
		return biomeNames[b]
	}
	return "unknown"
}

func (b Biome) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// Tile is one location on the map.
type Tile struct {
	ID        agents.LocationID `json:"id"`
	Coord     HexCoord          `json:"coord"`
	Terrain   Terrain           `json:"terrain"`
	Biome     Biome             `json:"biome,omitempty"`
	Elevation float64           `json:"elevation"` // 0.0 (deep sea) to 1.0 (peak)
	Fertility uint32            `json:"fertility"` // 0 to 100
	Habitable bool              `json:"habitable"`
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
