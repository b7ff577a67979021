package tui

import (
	"slices"
	"strings"
)

// Chunk map cell glyphs.
const (
	cellPresent = "█"
	cellPartial = "▒"
	cellMissing = "░"
)

// ProgressBar renders a fixed-width bar for percent in [0, 100].
func ProgressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	percent = min(max(percent, 0), 100)
	filled := int(percent / 100 * float64(width))
	return ChunkPresentStyle.Render(strings.Repeat(cellPresent, filled)) +
		ChunkMissingStyle.Render(strings.Repeat(cellMissing, width-filled))
}

// ChunkMap draws one cell per chunk, or per bucket of chunks when total
// exceeds width*rows. A bucket is partial if only some of its chunks are
// missing. missing must be sorted.
func ChunkMap(total uint64, missing []uint64, width, rows int) string {
	if total == 0 || width <= 0 || rows <= 0 {
		return ""
	}
	cells := min(total, uint64(width*rows))

	var b strings.Builder
	for i := range cells {
		lo := i * total / cells
		hi := (i + 1) * total / cells
		n := countInRange(missing, lo, hi)
		switch {
		case n == 0:
			b.WriteString(ChunkPresentStyle.Render(cellPresent))
		case n == hi-lo:
			b.WriteString(ChunkMissingStyle.Render(cellMissing))
		default:
			b.WriteString(ChunkPartialStyle.Render(cellPartial))
		}
		if (i+1)%uint64(width) == 0 && i+1 < cells {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// countInRange counts sorted values v with lo <= v < hi.
func countInRange(sorted []uint64, lo, hi uint64) uint64 {
	start, _ := slices.BinarySearch(sorted, lo)
	end, _ := slices.BinarySearch(sorted, hi)
	return uint64(end - start)
}
