package engine

import (
	"fmt"
	"time"
)

// Engine provides the main interface for map generation
type Engine interface {
	// Configuration
	Params() *Params
	SizeClass() SizeClass
	SetSizeClass(sc SizeClass)

	// Arena state management
	Reset()
	ResetTrip()

	// Generation stages
	OccupyBlocks()
	RemovePoints(p float64)
	AssessZones()
	ScanRoads(sink RoadSink) int

	// Output
	NewFrame() *Frame
	Generate(f *Frame) error
	Cell(x, y int) (Cell, bool)
	Stats() Stats
}

// MapEngine implements the Engine interface. It owns the grid, every pool
// and the heap; nothing is allocated after NewEngine returns except by
// Frame.Snapshot.
type MapEngine struct {
	params    *Params
	rng       Rand
	sizeClass SizeClass
	bounds    Bounds

	grid       *Grid
	categories []string
	intervals  []Interval
	blocks     []*Pool
	goals      *Pool
	trail      *Pool
	run        *Pool
	fringe     *Heap

	source Index
	goal   Index
	house  Point
	stats  Stats
}

// NewEngine validates params and allocates the arena for both size classes.
// The engine starts in the narrow size class.
func NewEngine(params *Params, rng Rand) (*MapEngine, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("random source cannot be nil")
	}

	w, h := params.Width, params.Height
	wide, narrow := params.Bounds.Wide, params.Bounds.Narrow
	goalCap := max(goalArea(wide, w, h), goalArea(narrow, w, h))
	tripCap := max(tripArea(wide, w, h), tripArea(narrow, w, h))

	e := &MapEngine{
		params:     params,
		rng:        rng,
		sizeClass:  Narrow,
		bounds:     narrow,
		grid:       NewGrid(w, h),
		categories: params.Categories(),
		goals:      NewPool(goalCap),
		trail:      NewPool(tripCap),
		run:        NewPool(max(w, h)),
	}
	e.fringe = NewHeap(tripCap, e.grid)

	intervals := params.CumulativeIntervals()
	for pair := intervals.Oldest(); pair != nil; pair = pair.Next() {
		e.intervals = append(e.intervals, pair.Value)
		e.blocks = append(e.blocks, NewPool(categoryCapacity(w, h, params.Probability[pair.Key])))
	}

	e.Reset()
	return e, nil
}

// NewEngineWithDefaults creates an engine with DefaultParams and a seeded source
func NewEngineWithDefaults(seed uint64) *MapEngine {
	e, err := NewEngine(DefaultParams(), NewRand(seed))
	if err != nil {
		panic(fmt.Sprintf("default params rejected: %v", err))
	}
	return e
}

// Params returns the parameter set the engine was built with
func (e *MapEngine) Params() *Params {
	return e.params
}

// SizeClass returns the active size class
func (e *MapEngine) SizeClass() SizeClass {
	return e.sizeClass
}

// SetSizeClass swaps in the bound set for sc and fully resets the arena
func (e *MapEngine) SetSizeClass(sc SizeClass) {
	e.sizeClass = sc
	e.bounds = e.params.BoundsFor(sc)
	e.Reset()
}

// Bounds returns the active bound set
func (e *MapEngine) Bounds() Bounds {
	return e.bounds
}

// Reset restores every cell and every pool cursor
func (e *MapEngine) Reset() {
	e.grid.Reset()
	for _, pool := range e.blocks {
		pool.Reset()
	}
	e.goals.Reset()
	e.trail.Reset()
	e.run.Reset()
	e.fringe.Reset()
}

// ResetTrip restores search state inside the trip rectangle and empties the
// trail and the heap. Terrain and goal candidates are kept so the next goal
// attempt can draw a different candidate.
func (e *MapEngine) ResetTrip() {
	e.grid.ResetSearch(&e.bounds)
	e.trail.Reset()
	e.fringe.Reset()
}

// Cell returns a copy of the cell at (x, y)
func (e *MapEngine) Cell(x, y int) (Cell, bool) {
	if !e.grid.Contains(x, y) {
		return Cell{}, false
	}
	return *e.grid.at(x, y), true
}

// Stats returns the work counters of the last generation
func (e *MapEngine) Stats() Stats {
	return e.stats
}

// Route copies the last found route, source first, into dst
func (e *MapEngine) Route(dst []Index) []Index {
	dst = dst[:0]
	for i := e.trail.Len() - 1; i >= 0; i-- {
		dst = append(dst, e.trail.At(i))
	}
	return dst
}

// Source returns the source cell of the last route
func (e *MapEngine) Source() Index { return e.source }

// Goal returns the goal cell of the last route
func (e *MapEngine) Goal() Index { return e.goal }

// House returns the house anchor of the last route
func (e *MapEngine) House() Point { return e.house }

// NewFrame allocates a frame large enough for any map this engine generates
func (e *MapEngine) NewFrame() *Frame {
	return newFrame(e)
}

// Generate resets the arena, runs terrain passes until a route is found and
// fills f with the draw commands and cell classification of the result.
func (e *MapEngine) Generate(f *Frame) error {
	start := time.Now()
	e.stats = Stats{}
	e.Reset()

	f.reset(e)
	if err := e.findTrip(); err != nil {
		e.stats.Elapsed = time.Since(start)
		f.Stats = e.stats
		return fmt.Errorf("generate %dx%d %s map: %w", e.grid.Width, e.grid.Height, e.sizeClass, err)
	}

	f.fill(e)
	e.stats.Elapsed = time.Since(start)
	f.Stats = e.stats
	return nil
}
