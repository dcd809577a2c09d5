package maps

import (
	"errors"
	"fmt"
	"math"

	"isles-of-conquest/pkg/geom"
)

// NoiseLayer configures one fractal noise layer.
type NoiseLayer struct {
	Frequency   float64 `json:"frequency"`
	Octaves     int     `json:"octaves"`
	Persistence float64 `json:"persistence"`
	Lacunarity  float64 `json:"lacunarity"`
}

// Config holds everything the generator needs. Identical configs generate
// identical worlds.
type Config struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Seed int64  `json:"seed"`

	Size     float64 `json:"size"`      // world side length in world units
	TileSize float64 `json:"tile_size"` // world units per tile

	BaseLand     NoiseLayer `json:"base_land"`
	DetailLand   NoiseLayer `json:"detail_land"`
	Forest       NoiseLayer `json:"forest"`
	DetailWeight float64    `json:"detail_weight"`

	HeightCurve     geom.Curve `json:"height_curve"`
	EdgeFalloff     float64    `json:"edge_falloff"` // normalized distance from centre where land starts fading
	LandThreshold   float64    `json:"land_threshold"`
	ForestThreshold float64    `json:"forest_threshold"`

	MinIslandSize    int     `json:"min_island_size"`
	LighthouseRadius int     `json:"lighthouse_radius"`
	CoastRadius      int     `json:"coast_radius"`
	CoastlineEpsilon float64 `json:"coastline_epsilon"` // in tiles
}

// DefaultConfig returns the production-size archipelago.
func DefaultConfig() Config {
	return Config{
		ID:       "standard",
		Name:     "Standard Archipelago",
		Seed:     1,
		Size:     2048,
		TileSize: 4,
		BaseLand: NoiseLayer{
			Frequency:   5,
			Octaves:     4,
			Persistence: 0.5,
			Lacunarity:  2,
		},
		DetailLand: NoiseLayer{
			Frequency:   24,
			Octaves:     3,
			Persistence: 0.5,
			Lacunarity:  2,
		},
		Forest: NoiseLayer{
			Frequency:   12,
			Octaves:     2,
			Persistence: 0.5,
			Lacunarity:  2,
		},
		DetailWeight:     0.25,
		HeightCurve:      geom.Curve{{X: 0, Y: 0}, {X: 0.45, Y: 0.3}, {X: 0.6, Y: 0.6}, {X: 1, Y: 1}},
		EdgeFalloff:      0.7,
		LandThreshold:    0.5,
		ForestThreshold:  0.55,
		MinIslandSize:    300,
		LighthouseRadius: 2,
		CoastRadius:      4,
		CoastlineEpsilon: 1,
	}
}

// TilesPerSide returns the grid dimension.
func (c Config) TilesPerSide() int {
	return int(math.Round(c.Size / c.TileSize))
}

// Validate checks the config for values the generator cannot work with.
func (c Config) Validate() error {
	if c.Size <= 0 || c.TileSize <= 0 {
		return fmt.Errorf("invalid dimensions: size %v, tile size %v", c.Size, c.TileSize)
	}
	side := c.TilesPerSide()
	if math.Abs(float64(side)*c.TileSize-c.Size) > 1e-9 {
		return fmt.Errorf("size %v is not a multiple of tile size %v", c.Size, c.TileSize)
	}
	if side < 8 {
		return fmt.Errorf("world too small: %d tiles per side", side)
	}
	for name, layer := range map[string]NoiseLayer{
		"base_land":   c.BaseLand,
		"detail_land": c.DetailLand,
		"forest":      c.Forest,
	} {
		if layer.Octaves <= 0 {
			return fmt.Errorf("%s: octaves must be positive", name)
		}
		if layer.Frequency <= 0 {
			return fmt.Errorf("%s: frequency must be positive", name)
		}
	}
	if c.DetailWeight < 0 || c.DetailWeight > 1 {
		return fmt.Errorf("detail weight %v outside [0,1]", c.DetailWeight)
	}
	if err := c.HeightCurve.Validate(); err != nil {
		return fmt.Errorf("height curve: %w", err)
	}
	if c.MinIslandSize <= 0 {
		return errors.New("min island size must be positive")
	}
	if c.LighthouseRadius < 0 || c.CoastRadius < 0 {
		return errors.New("radii must not be negative")
	}
	return nil
}
