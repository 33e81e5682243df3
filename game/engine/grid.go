package engine

import "math"

// Grid is the flat cell arena. Cell (x, y) lives at index x*Height+y.
type Grid struct {
	Width  int
	Height int
	cells  []Cell
}

// NewGrid allocates a width x height arena and resets it
func NewGrid(width, height int) *Grid {
	g := &Grid{
		Width:  width,
		Height: height,
		cells:  make([]Cell, width*height),
	}
	g.Reset()
	return g
}

func (g *Grid) index(x, y int) int {
	return x*g.Height + y
}

// Contains reports whether (x, y) is inside the arena
func (g *Grid) Contains(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// at returns the arena slot for (x, y); callers check bounds
func (g *Grid) at(x, y int) *Cell {
	return &g.cells[g.index(x, y)]
}

// Score implements Scorer
func (g *Grid) Score(x, y int) float64 {
	return g.cells[g.index(x, y)].F
}

// SetFringeSlot implements Scorer
func (g *Grid) SetFringeSlot(x, y, slot int) {
	c := &g.cells[g.index(x, y)]
	c.Slot = slot
	c.InFringe = slot >= 0
}

func (c *Cell) resetSearch() {
	c.F = math.Inf(1)
	c.G = math.Inf(1)
	c.FromX = NoPredecessor
	c.FromY = NoPredecessor
	c.InFringe = false
	c.Slot = -1
}

// Reset restores terrain and search state of every cell
func (g *Grid) Reset() {
	for x := 0; x < g.Width; x++ {
		for y := 0; y < g.Height; y++ {
			c := g.at(x, y)
			c.X = float64(x)
			c.Y = float64(y)
			c.CanPass = false
			c.HasBlock = false
			c.IsRemoved = false
			c.Category = NoCategory
			c.resetSearch()
		}
	}
}

// ResetSearch restores search scratch fields inside the trip rectangle
func (g *Grid) ResetSearch(b *Bounds) {
	t := b.Trip
	for x := max(0, t.Left); x < g.Width-t.Right; x++ {
		for y := max(0, t.Top); y < g.Height-t.Bottom; y++ {
			g.at(x, y).resetSearch()
		}
	}
}
