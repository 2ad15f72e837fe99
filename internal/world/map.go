package world

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/talgya/gridworld/internal/agents"
)

// Map is the generated grid. Tile IDs are indices into Tiles, assigned in
// row-major coordinate order, so the same radius always yields the same IDs.
type Map struct {
	Radius int     `json:"radius"`
	Tiles  []*Tile `json:"tiles"`

	index map[HexCoord]agents.LocationID
}

// NewMap lays out every coordinate within radius with an ocean tile.
func NewMap(radius int) *Map {
	var coords []HexCoord
	for q := -radius; q <= radius; q++ {
		for r := -radius; r <= radius; r++ {
			if c := (HexCoord{Q: q, R: r}); c.ring() <= radius {
				coords = append(coords, c)
			}
		}
	}
	slices.SortFunc(coords, func(a, b HexCoord) int {
		return cmp.Or(cmp.Compare(a.R, b.R), cmp.Compare(a.Q, b.Q))
	})

	m := &Map{
		Radius: radius,
		Tiles:  make([]*Tile, len(coords)),
		index:  make(map[HexCoord]agents.LocationID, len(coords)),
	}
	for i, c := range coords {
		id := agents.LocationID(i)
		m.Tiles[i] = &Tile{ID: id, Coord: c}
		m.index[c] = id
	}
	return m
}

// Get returns the tile at coord, or nil if it is off the map.
func (m *Map) Get(coord HexCoord) *Tile {
	id, ok := m.index[coord]
	if !ok {
		return nil
	}
	return m.Tiles[id]
}

// Tile returns the tile with the given ID, or nil.
func (m *Map) Tile(id agents.LocationID) *Tile {
	if int(id) >= len(m.Tiles) {
		return nil
	}
	return m.Tiles[id]
}

// InBounds reports whether coord lies within the map radius.
func (m *Map) InBounds(coord HexCoord) bool {
	return coord.ring() <= m.Radius
}

// Habitable returns the IDs of every habitable tile in ascending order.
func (m *Map) Habitable() []agents.LocationID {
	var out []agents.LocationID
	for _, t := range m.Tiles {
		if t.Habitable {
			out = append(out, t.ID)
		}
	}
	return out
}

// Len returns the number of tiles.
func (m *Map) Len() int {
	return len(m.Tiles)
}

func (m *Map) String() string {
	return fmt.Sprintf("Map(radius=%d, tiles=%d, habitable=%d)", m.Radius, m.Len(), len(m.Habitable()))
}
