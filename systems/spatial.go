// Package systems provides the merge engine systems and the bundled physics.
package systems

import (
	"github.com/mlange-42/ark/ecs"
)

// Neighbor holds a nearby entity with precomputed spatial data.
type Neighbor struct {
	E      ecs.Entity
	DX, DY float32 // Delta from query origin
	DistSq float32 // Squared distance (avoid sqrt in hot path)
}

type gridEntry struct {
	e    ecs.Entity
	x, y float32
}

// SpatialGrid provides broadphase neighbor lookups inside the container.
// Positions outside the container are clamped into the edge cells, so fruit
// flying above the top are still found.
type SpatialGrid struct {
	cellSize float32
	cols     int
	rows     int
	cells    [][]gridEntry
}

// NewSpatialGrid creates a spatial grid covering the given container size.
func NewSpatialGrid(width, height, cellSize float32) *SpatialGrid {
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]gridEntry, cols*rows)
	for i := range cells {
		cells[i] = make([]gridEntry, 0, 4)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an entity to the grid at the given position.
func (g *SpatialGrid) Insert(e ecs.Entity, x, y float32) {
	col, row := g.cell(x, y)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], gridEntry{e: e, x: x, y: y})
}

// MaxQueryResults caps the number of neighbors returned by spatial queries.
const MaxQueryResults = 64

// QueryRadiusInto finds entities within radius of (x, y) and appends them to
// dst (up to MaxQueryResults). Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, x, y, radius float32, exclude ecs.Entity) []Neighbor {
	cellRadius := int(radius/g.cellSize) + 1
	centerCol, centerRow := g.cell(x, y)
	radiusSq := radius * radius

	minCol, maxCol := max(centerCol-cellRadius, 0), min(centerCol+cellRadius, g.cols-1)
	minRow, maxRow := max(centerRow-cellRadius, 0), min(centerRow+cellRadius, g.rows-1)

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			for _, entry := range g.cells[row*g.cols+col] {
				if entry.e == exclude {
					continue
				}
				dx := entry.x - x
				dy := entry.y - y
				distSq := dx*dx + dy*dy
				if distSq <= radiusSq {
					dst = append(dst, Neighbor{E: entry.e, DX: dx, DY: dy, DistSq: distSq})
					if len(dst) >= MaxQueryResults {
						return dst
					}
				}
			}
		}
	}

	return dst
}

// cell returns the clamped column and row for a position.
func (g *SpatialGrid) cell(x, y float32) (col, row int) {
	col = int(x / g.cellSize)
	row = int(y / g.cellSize)
	if x < 0 {
		col = 0
	}
	if y < 0 {
		row = 0
	}
	col = min(max(col, 0), g.cols-1)
	row = min(max(row, 0), g.rows-1)
	return col, row
}
