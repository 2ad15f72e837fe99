// World generation from layered simplex noise: elevation decides land and
// sea, latitude and a climate layer decide the biome, and the biome decides
// fertility and habitability.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Radius      int     // hex grid radius
	Seed        int64   // 0 = random
	SeaLevel    float64 // elevation below which a tile is ocean
	MountainLvl float64 // elevation above which a tile is mountains
}

// DefaultGenConfig returns the standard world shape.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:      12,
		SeaLevel:    0.25,
		MountainLvl: 0.72,
	}
}

// Generate builds a map. The same config always produces the same map.
func Generate(cfg GenConfig) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	climateNoise := opensimplex.NewNormalized(seed + 1)
	soilNoise := opensimplex.NewNormalized(seed + 2)

	m := NewMap(cfg.Radius)
	halfHeight := math.Max(float64(cfg.Radius)*math.Sqrt(3.0)/2.0, 1)

	for _, t := range m.Tiles {
		// Axial to cartesian.
		x := float64(t.Coord.Q) + float64(t.Coord.R)*0.5
		y := float64(t.Coord.R) * math.Sqrt(3.0) / 2.0

		elev := octaveNoise(elevNoise, x, y, 4, 0.08, 0.5)

		// Sink the rim so the map is ringed by ocean.
		dist := math.Sqrt(x*x+y*y) / math.Max(float64(cfg.Radius), 1)
		elev *= math.Max(0, 1-math.Pow(dist, 3.5))

		t.Elevation = elev
		t.Terrain = deriveTerrain(elev, cfg)
		latitude := math.Min(math.Abs(y)/halfHeight, 1) * 90
		t.Biome = deriveBiome(t.Terrain, latitude, climateNoise.Eval2(x*0.3, y*0.3))
		t.Fertility = deriveFertility(t.Terrain, t.Biome, soilNoise.Eval2(x*0.5, y*0.5))
		t.Habitable = isHabitable(t.Terrain, t.Biome)
	}
	return m
}

func deriveTerrain(elev float64, cfg GenConfig) Terrain {
	hills := cfg.SeaLevel + (cfg.MountainLvl-cfg.SeaLevel)*0.6
	switch {
	case elev < cfg.SeaLevel:
		return TerrainOcean
	case elev > cfg.MountainLvl:
		return TerrainMountains
	case elev > hills:
		return TerrainHills
	default:
		return TerrainFlats
	}
}

// deriveBiome picks a climate from latitude in degrees and a [0,1) roll.
func deriveBiome(terrain Terrain, latitude, roll float64) Biome {
	pick := func(p float64, a, b Biome) Biome {
		if roll < p {
			return a
		}
		return b
	}
	switch {
	case terrain == TerrainOcean:
		return BiomeNone
	case terrain == TerrainMountains:
		return BiomeAlpine
	case latitude > 60:
		return pick(0.8, BiomeTundra, BiomeAlpine)
	case latitude > 45:
		return pick(0.7, BiomePlains, BiomeTundra)
	case latitude > 30:
		return pick(0.6, BiomeGrassland, BiomePlains)
	case latitude > 15:
		return pick(0.5, BiomeGrassland, BiomeDesert)
	default:
		return pick(0.7, BiomeGrassland, BiomeDesert)
	}
}

var biomeFertility = map[Biome]int{
	BiomeGrassland: 80,
	BiomePlains:    70,
	BiomeDesert:    20,
	BiomeTundra:    30,
	BiomeAlpine:    25,
}

// deriveFertility is the biome base varied by up to ten points either way.
func deriveFertility(terrain Terrain, biome Biome, roll float64) uint32 {
	if terrain == TerrainOcean || terrain == TerrainMountains {
		return 0
	}
	base, ok := biomeFertility[biome]
	if !ok {
		base = 50
	}
	return uint32(min(max(base+int((roll-0.5)*20), 0), 100))
}

func isHabitable(terrain Terrain, biome Biome) bool {
	if terrain == TerrainOcean || terrain == TerrainMountains {
		return false
	}
	switch biome {
	case BiomeDesert, BiomeTundra, BiomeAlpine:
		return false
	}
	return true
}

// octaveNoise layers several frequencies of normalized noise.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TerrainCounts returns how many tiles have each terrain.
func TerrainCounts(m *Map) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, t := range m.Tiles {
		counts[t.Terrain]++
	}
	return counts
}
