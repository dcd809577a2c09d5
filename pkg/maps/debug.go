package maps

import (
	"fmt"
	"strings"
)

// Debug returns an ASCII rendering of the world, sampling every step-th tile.
func (w *World) Debug(step int) string {
	if step < 1 {
		step = 1
	}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("World: %s (seed %d)\n", w.Config.Name, w.Config.Seed))
	sb.WriteString(fmt.Sprintf("Size: %dx%d tiles, %.0f units\n", w.Side, w.Side, w.Config.Size))
	sb.WriteString(fmt.Sprintf("Islands: %d, Islets: %d\n\n", len(w.Islands), len(w.Islets)))

	for y := 0; y < w.Side; y += step {
		for x := 0; x < w.Side; x += step {
			sb.WriteByte(glyph(w.Tiles[y*w.Side+x].Kind))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nIslands:\n")
	for _, isl := range w.Islands {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", isl.ID, isl.Name))
		sb.WriteString(fmt.Sprintf("     Tiles: %d\n", len(isl.Tiles)))
		sb.WriteString(fmt.Sprintf("     Center: (%.1f, %.1f)\n", isl.Center.X, isl.Center.Y))
		sb.WriteString(fmt.Sprintf("     Lighthouse: (%.1f, %.1f)\n", isl.Lighthouse.X, isl.Lighthouse.Y))
		sb.WriteString(fmt.Sprintf("     Coastline: %d points\n", len(isl.Coastline)))
	}

	return sb.String()
}

func glyph(k Kind) byte {
	switch k {
	case Water:
		return '~'
	case Coast:
		return '-'
	case Land:
		return '#'
	case Forest:
		return '^'
	case Lighthouse:
		return 'L'
	default:
		return '?'
	}
}
