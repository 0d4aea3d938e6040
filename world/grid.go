// Package world provides the ark-backed registry the decision core queries:
// agent storage, a spatial grid, procedural terrain and line-cast physics.
package world

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// queryCapacity sizes reusable query buffers.
const queryCapacity = 256

// Grid provides O(1) neighbor lookups on the XZ plane using a cell-based grid.
// Positions outside the world are clamped into the border cells.
type Grid struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]ecs.Entity
}

// NewGrid creates a grid covering a square world of the given edge length.
func NewGrid(size, cellSize float64) *Grid {
	cols := int(size/cellSize) + 1
	rows := cols

	cells := make([][]ecs.Entity, cols*rows)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8)
	}

	return &Grid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Clear removes all entities from the grid.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an entity at the given position.
func (g *Grid) Insert(e ecs.Entity, p r3.Vec) {
	col, row := g.cellCoords(p.X, p.Z)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], e)
}

// QueryInto appends the entities of every cell touching the query square to
// dst. The result is uncapped; callers filter by exact distance. Reuse dst
// across calls to avoid allocations.
func (g *Grid) QueryInto(dst []ecs.Entity, center r3.Vec, radius float64) []ecs.Entity {
	minCol, minRow := g.cellCoords(center.X-radius, center.Z-radius)
	maxCol, maxRow := g.cellCoords(center.X+radius, center.Z+radius)

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			dst = append(dst, g.cells[row*g.cols+col]...)
		}
	}
	return dst
}

// cellCoords returns the clamped cell for a world position.
func (g *Grid) cellCoords(x, z float64) (col, row int) {
	col = clampInt(int(math.Floor(x/g.cellSize)), 0, g.cols-1)
	row = clampInt(int(math.Floor(z/g.cellSize)), 0, g.rows-1)
	return col, row
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
