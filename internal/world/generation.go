// Level generation using simplex noise.
// Produces a walled room with furniture blocks scattered where the noise field peaks.
package world

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds level generation parameters.
type GenConfig struct {
	Width      int     // In tiles, including the outer wall
	Height     int     // In tiles, including the outer wall
	Seed       int64   // Random seed (0 = random)
	Clutter    float64 // Noise threshold above which a cell becomes furniture (0.0–1.0)
	SpawnClear int     // Tiles kept free around the room centre
}

// DefaultGenConfig returns a living-room sized level.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:      30,
		Height:     17,
		Seed:       0,
		Clutter:    0.78,
		SpawnClear: 3,
	}
}

// SmallTestConfig returns a tiny level for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:      12,
		Height:     8,
		Seed:       42,
		Clutter:    0.8,
		SpawnClear: 2,
	}
}

// Generate creates a complete level.
func Generate(cfg GenConfig) *TileMap {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	noise := opensimplex.NewNormalized(seed)
	m := NewTileMap(cfg.Width, cfg.Height)

	cx, cy := cfg.Width/2, cfg.Height/2
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			// Outer wall.
			if x == 0 || y == 0 || x == cfg.Width-1 || y == cfg.Height-1 {
				m.SetTile(x, y, TileWall)
				continue
			}
			// Inner ring stays floor.
			if x == 1 || y == 1 || x == cfg.Width-2 || y == cfg.Height-2 {
				continue
			}
			if abs(x-cx) <= cfg.SpawnClear && abs(y-cy) <= cfg.SpawnClear {
				continue
			}

			v := octaveNoise(noise, float64(x), float64(y), 3, 0.18, 0.5)
			if v > cfg.Clutter {
				m.SetTile(x, y, TileWall)
			}
		}
	}

	return m
}

// SpawnPoint returns the centre of the guaranteed-clear spawn area in scene space.
func SpawnPoint(m *TileMap) Vec2 {
	return m.CellBox(m.Width/2, m.Height/2).Center()
}

// octaveNoise generates fractal noise by layering multiple frequencies.
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

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
