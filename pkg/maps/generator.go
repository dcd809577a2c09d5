package maps

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"isles-of-conquest/pkg/geom"
)

// Generator builds a World from a Config.
type Generator struct {
	cfg    Config
	side   int
	base   opensimplex.Noise
	detail opensimplex.Noise
	forest opensimplex.Noise
}

// NewGenerator creates a new world generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid world config: %w", err)
	}
	return &Generator{
		cfg:    cfg,
		side:   cfg.TilesPerSide(),
		base:   opensimplex.NewNormalized(cfg.Seed),
		detail: opensimplex.NewNormalized(cfg.Seed + 1),
		forest: opensimplex.NewNormalized(cfg.Seed + 2),
	}, nil
}

// Generate is shorthand for NewGenerator followed by Generate.
func Generate(cfg Config) (*World, error) {
	g, err := NewGenerator(cfg)
	if err != nil {
		return nil, err
	}
	return g.Generate(), nil
}

// Generate creates the world: height field, classification, island
// extraction, lighthouses, coastlines and coast.
func (g *Generator) Generate() *World {
	w := &World{
		Config: g.cfg,
		Side:   g.side,
		Tiles:  make([]Tile, g.side*g.side),
	}

	// Step 1: Height field and terrain classes
	for y := 0; y < g.side; y++ {
		for x := 0; x < g.side; x++ {
			w.Tiles[y*g.side+x] = g.classify(x, y)
		}
	}

	// Step 2: Flood fill the sea and collect land masses
	order, components := floodFill(w)
	w.VisitOrder = order

	// Step 3: Islands, lighthouses, islets and their outlines
	extractIslands(w, components)

	// Step 4: Decorative coast ring
	markCoast(w)

	nameIslands(w)

	return w
}

// classify computes one tile's height and kind.
func (g *Generator) classify(x, y int) Tile {
	// The outer ring is always sea so the fill from tile (0,0) starts in water.
	if x == 0 || y == 0 || x == g.side-1 || y == g.side-1 {
		return Tile{Kind: Water}
	}

	u := (float64(x) + 0.5) / float64(g.side)
	v := (float64(y) + 0.5) / float64(g.side)

	base := fractal(g.base, u, v, g.cfg.BaseLand)
	detail := fractal(g.detail, u, v, g.cfg.DetailLand)
	blend := (1-g.cfg.DetailWeight)*base + g.cfg.DetailWeight*detail

	height := g.cfg.HeightCurve.Eval(blend * g.falloff(u, v))

	if height < g.cfg.LandThreshold {
		return Tile{Kind: Water, Height: height}
	}
	if fractal(g.forest, u, v, g.cfg.Forest) >= g.cfg.ForestThreshold {
		return Tile{Kind: Forest, Height: height}
	}
	return Tile{Kind: Land, Height: height}
}

// falloff fades land out toward the map edge.
func (g *Generator) falloff(u, v float64) float64 {
	d := math.Max(math.Abs(u-0.5), math.Abs(v-0.5)) * 2
	start := g.cfg.EdgeFalloff
	if d <= start || start >= 1 {
		return 1
	}
	t := (d - start) / (1 - start)
	// smoothstep
	return 1 - t*t*(3-2*t)
}

// fractal layers octaves of noise and normalizes the sum to [0,1].
func fractal(noise opensimplex.Noise, u, v float64, layer NoiseLayer) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	frequency := layer.Frequency

	for i := 0; i < layer.Octaves; i++ {
		total += noise.Eval2(u*frequency, v*frequency) * amplitude
		maxVal += amplitude
		amplitude *= layer.Persistence
		frequency *= layer.Lacunarity
	}

	if maxVal == 0 {
		return 0
	}
	return total / maxVal
}

// nameIslands gives every island a seeded, unique name.
func nameIslands(w *World) {
	seen := make(map[string]int)
	for _, isl := range w.Islands {
		name := genName(w.Config.Seed, isl.ID)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s %s", name, roman(n))
		}
		isl.Name = name
	}
}

func genName(seed int64, id IslandID) string {
	prefixes := []string{"North", "South", "East", "West", "Great", "Little", "Old", "Outer"}
	names := []string{"Gull", "Reef", "Tern", "Skerry", "Cairn", "Haven", "Storm", "Kelp",
		"Drift", "Brine", "Shoal", "Heron", "Anchor", "Lantern", "Mist", "Coral"}
	suffixes := []string{" Isle", " Key", " Rock", "holm", "ey", " Cay", " Atoll"}

	r := rand.New(rand.NewSource(seed*31 + int64(id)*7919))
	switch r.Intn(3) {
	case 0:
		return prefixes[r.Intn(len(prefixes))] + " " + names[r.Intn(len(names))] + suffixes[r.Intn(len(suffixes))]
	case 1:
		return names[r.Intn(len(names))] + suffixes[r.Intn(len(suffixes))]
	default:
		return "Isle of " + names[r.Intn(len(names))]
	}
}

func roman(n int) string {
	numerals := []struct {
		v int
		s string
	}{{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"}}
	out := ""
	for _, num := range numerals {
		for n >= num.v {
			out += num.s
			n -= num.v
		}
	}
	return out
}

// tileCenter converts tile coordinates to the world position of the tile centre.
func tileCenter(cfg Config, x, y float64) geom.V2D {
	half := cfg.Size / 2
	return geom.V2D{
		X: (x+0.5)*cfg.TileSize - half,
		Y: (y+0.5)*cfg.TileSize - half,
	}
}
