package engine

// RoadSink receives each detected road run. The run pool is reused for the
// next run as soon as Road returns.
type RoadSink interface {
	Road(run *Pool, vertical bool)
}

// OccupyBlocks assigns each cell outside the text rectangle to at most one
// terrain category with a single uniform draw. A cell whose category pool is
// full stays unblocked.
func (e *MapEngine) OccupyBlocks() {
	w, h := e.grid.Width, e.grid.Height
	for x := 1; x < w; x++ {
		for y := 1; y < h; y++ {
			if e.bounds.inText(x, y, w, h) {
				continue
			}
			r := e.rng.Float64()
			cell := e.grid.at(x, y)
			cell.HasBlock = false
			cell.Category = NoCategory
			for i, iv := range e.intervals {
				if !iv.Contains(r) {
					continue
				}
				if e.blocks[i].Push(x, y) {
					cell.HasBlock = true
					cell.Category = i
				}
				break
			}
		}
	}
}

// RemovePoints marks each cell removed with probability p, then clears the
// whole text rectangle.
func (e *MapEngine) RemovePoints(p float64) {
	w, h := e.grid.Width, e.grid.Height
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			if e.rng.Float64() < p {
				e.grid.at(x, y).IsRemoved = true
			}
		}
	}
	t := e.bounds.Text
	for x := max(0, t.Left); x < w-t.Right; x++ {
		for y := max(0, t.Top); y < h-t.Bottom; y++ {
			e.grid.at(x, y).IsRemoved = true
		}
	}
}

// ScanRoads reports every maximal run of pavement along the interior
// columns, then along the interior rows. A run is stray, and skipped, when
// both transverse neighbors of every cell are removed and no cell lies on the
// grid edge. Crossing stray runs keep each other alive.
func (e *MapEngine) ScanRoads(sink RoadSink) int {
	return e.scanRoads(sink, false) + e.scanRoads(sink, true)
}

func (e *MapEngine) scanRoads(sink RoadSink, transpose bool) int {
	g := e.grid
	outer, inner := g.Width, g.Height
	if transpose {
		outer, inner = g.Height, g.Width
	}

	roads := 0
	run := e.run
	for i := 1; i < outer-1; i++ {
		run.Reset()
		for j := 0; j < inner; j++ {
			x, y := i, j
			if transpose {
				x, y = j, i
			}
			if g.at(x, y).IsRemoved {
				if run.Len() > 0 && e.flushRoad(sink, transpose) {
					roads++
				}
				run.Reset()
				continue
			}
			run.Push(x, y)
		}
		if run.Len() > 0 && e.flushRoad(sink, transpose) {
			roads++
		}
	}
	run.Reset()
	return roads
}

func (e *MapEngine) flushRoad(sink RoadSink, transpose bool) bool {
	if e.stray(transpose) {
		return false
	}
	if sink != nil {
		sink.Road(e.run, !transpose)
	}
	return true
}

func (e *MapEngine) stray(transpose bool) bool {
	g := e.grid
	for k := 0; k < e.run.Len(); k++ {
		at := e.run.At(k)
		if transpose {
			if !g.at(at.X, at.Y-1).IsRemoved || !g.at(at.X, at.Y+1).IsRemoved || at.X == 0 || at.X == g.Width-1 {
				return false
			}
		} else {
			if !g.at(at.X-1, at.Y).IsRemoved || !g.at(at.X+1, at.Y).IsRemoved || at.Y == 0 || at.Y == g.Height-1 {
				return false
			}
		}
	}
	return true
}
