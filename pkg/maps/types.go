// Package maps generates the archipelago the simulation is played on.
package maps

import "isles-of-conquest/pkg/geom"

// Kind classifies a tile.
type Kind uint8

const (
	Water Kind = iota
	Land
	Forest
	Coast
	Lighthouse
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Water:
		return "water"
	case Land:
		return "land"
	case Forest:
		return "forest"
	case Coast:
		return "coast"
	case Lighthouse:
		return "lighthouse"
	default:
		return "unknown"
	}
}

// IsWater reports whether ships can sail on the tile. Coast and lighthouse
// tiles are water with decoration.
func (k Kind) IsWater() bool {
	return k == Water || k == Coast || k == Lighthouse
}

// IsLand reports whether the tile is part of a land mass.
func (k Kind) IsLand() bool {
	return k == Land || k == Forest
}

// IslandID identifies an island. Zero means no island.
type IslandID uint64

// Tile is one cell of the world grid.
type Tile struct {
	Kind   Kind
	Height float64
	Island IslandID
}

// IslandTile is a land tile belonging to an island.
type IslandTile struct {
	X      int
	Y      int
	Height float64
}

// Island is a land mass large enough to be captured.
type Island struct {
	ID             IslandID
	Name           string
	Tiles          []IslandTile
	Center         geom.V2D
	Lighthouse     geom.V2D
	LighthouseTile geom.Point
	TileSize       float64
	Coastline      []geom.V2D
}

// Islet is a land mass below the island size threshold. It only carries its
// outline and can never be owned.
type Islet struct {
	TileCount int
	Coastline []geom.V2D
}

// World is the generated, immutable map.
type World struct {
	Config  Config
	Side    int // tiles per side
	Tiles   []Tile
	Islands []*Island // Islands[i].ID == i+1
	Islets  []*Islet

	// VisitOrder lists tile indices in the order the generator's flood fill
	// reached them. It covers every tile exactly once.
	VisitOrder []int
}

// Island returns an island by id, or nil.
func (w *World) Island(id IslandID) *Island {
	if id == 0 || int(id) > len(w.Islands) {
		return nil
	}
	return w.Islands[id-1]
}

// IslandCount returns the number of capturable islands.
func (w *World) IslandCount() int {
	return len(w.Islands)
}
