// Package spatial provides a uniform grid for broad-phase proximity queries
// over world entities.
//
// Entities are stored as integer indices into the caller's slice, not
// pointers, so a grid can be built from a snapshot and shared read-only.
package spatial

import "math"

// Grid buckets entity indices into fixed-size square cells.
// Cells are stored row-major (cells[row*cols+col]).
//
// Once built, a Grid is safe for concurrent Query calls: queries append to
// a caller-supplied buffer instead of shared scratch space.
type Grid struct {
	invCellSize float64
	cols, rows  int
	cells       [][]uint32
}

// NewGrid creates a grid covering [0,width]x[0,height]. The cell size
// should be close to the typical query radius.
func NewGrid(width, height, cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	return &Grid{
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       make([][]uint32, cols*rows),
	}
}

// Insert adds entity id at (x, y). Out-of-range points land in the nearest
// edge cell.
func (g *Grid) Insert(id uint32, x, y float64) {
	col, row := g.clampCell(x, y)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], id)
}

// Query appends to dst every id whose cell intersects the square around
// (cx, cy) with half-size radius. Candidates may lie outside the radius;
// callers do the exact distance test.
func (g *Grid) Query(cx, cy, radius float64, dst []uint32) []uint32 {
	minCol, minRow := g.clampCell(cx-radius, cy-radius)
	maxCol, maxRow := g.clampCell(cx+radius, cy+radius)

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			dst = append(dst, g.cells[row*g.cols+col]...)
		}
	}
	return dst
}

func (g *Grid) clampCell(x, y float64) (col, row int) {
	col = clampInt(int(math.Floor(x*g.invCellSize)), 0, g.cols-1)
	row = clampInt(int(math.Floor(y*g.invCellSize)), 0, g.rows-1)
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
