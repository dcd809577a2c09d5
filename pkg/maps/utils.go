package maps

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"lukechampine.com/blake3"

	"isles-of-conquest/pkg/geom"
)

// Width returns the number of tile columns.
func (w *World) Width() int { return w.Side }

// Height returns the number of tile rows.
func (w *World) Height() int { return w.Side }

// TileSize returns the world units per tile.
func (w *World) TileSize() float64 { return w.Config.TileSize }

// Size returns the world side length in world units.
func (w *World) Size() float64 { return w.Config.Size }

// InBounds reports whether a world position lies on the map.
func (w *World) InBounds(p geom.V2D) bool {
	_, _, ok := w.TileOf(p)
	return ok
}

// TileOf converts a world position to tile coordinates.
func (w *World) TileOf(p geom.V2D) (int, int, bool) {
	half := w.Config.Size / 2
	x := int(math.Floor((p.X + half) / w.Config.TileSize))
	y := int(math.Floor((p.Y + half) / w.Config.TileSize))
	if x < 0 || x >= w.Side || y < 0 || y >= w.Side {
		return 0, 0, false
	}
	return x, y, true
}

// TileCenter returns the world position of a tile's centre.
func (w *World) TileCenter(x, y int) geom.V2D {
	return tileCenter(w.Config, float64(x), float64(y))
}

// TileAt returns the tile at tile coordinates, or nil when out of bounds.
func (w *World) TileAt(x, y int) *Tile {
	if x < 0 || x >= w.Side || y < 0 || y >= w.Side {
		return nil
	}
	return &w.Tiles[y*w.Side+x]
}

// IsWaterAt reports whether a world position is sailable water.
func (w *World) IsWaterAt(p geom.V2D) bool {
	x, y, ok := w.TileOf(p)
	if !ok {
		return false
	}
	return w.Tiles[y*w.Side+x].Kind.IsWater()
}

// IslandAt returns the island whose footprint contains p, or 0.
func (w *World) IslandAt(p geom.V2D) IslandID {
	x, y, ok := w.TileOf(p)
	if !ok {
		return 0
	}
	return w.Tiles[y*w.Side+x].Island
}

// Cost is the path planner's tile cost: 1 for water, -1 for blocked.
func (w *World) Cost(x, y int) int {
	t := w.TileAt(x, y)
	if t == nil || !t.Kind.IsWater() {
		return -1
	}
	return 1
}

// Checksum hashes the tile grid. Two worlds with the same checksum were
// generated from the same seed and config.
func (w *World) Checksum() string {
	buf := make([]byte, 0, len(w.Tiles)*17)
	var scratch [8]byte
	for _, t := range w.Tiles {
		buf = append(buf, byte(t.Kind))
		binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(t.Height))
		buf = append(buf, scratch[:]...)
		binary.LittleEndian.PutUint64(scratch[:], uint64(t.Island))
		buf = append(buf, scratch[:]...)
	}
	sum := blake3.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
