package engine

import (
	"math"
	"time"
)

// Kind tags a draw command with the layer it belongs to
type Kind string

const (
	KindBackdrop      Kind = "backdrop"
	KindBlock         Kind = "block"
	KindRoad          Kind = "road"
	KindTrip          Kind = "trip"
	KindSourceRipple  Kind = "source-ripple"
	KindSource        Kind = "source"
	KindHouse         Kind = "house"
	KindLeftEdge      Kind = "left-edge"
	KindRightEdge     Kind = "right-edge"
	KindFade          Kind = "fade"
	KindDeveloperTrip Kind = "developer__trip"
	KindDeveloperGoal Kind = "developer__goal"
)

// IsMarker reports whether commands of this kind are a single point
func (k Kind) IsMarker() bool {
	switch k {
	case KindSourceRipple, KindSource, KindDeveloperTrip:
		return true
	}
	return false
}

// OpKind is a path operation
type OpKind uint8

const (
	OpMove OpKind = iota
	OpLine
	OpRelLine
	OpClose
)

// Op is one path operation in grid space. OpRelLine is relative to the
// previous point; OpClose ignores X and Y.
type Op struct {
	Kind OpKind
	X    float64
	Y    float64
}

// Command is one drawable shape
type Command struct {
	Kind     Kind
	Category string
	Ops      []Op

	// Set on the trip and fade commands only
	Length   float64
	Duration time.Duration
}

// Frame is one generated map: draw commands, cell classification and the
// route. Its storage is sized once by NewFrame and reused by Generate.
type Frame struct {
	ID        int
	SizeClass SizeClass
	Width     int
	Height    int

	Categories []string
	Commands   []Command
	Cells      []CellInfo
	Route      []Index

	Source Index
	Goal   Index
	House  Point

	// Length of the trip path in grid units and its reveal time
	Length   float64
	Duration time.Duration
	Fade     time.Duration
	Overlap  time.Duration

	Stats Stats

	ops   []Op
	debug bool
}

func newFrame(e *MapEngine) *Frame {
	w, h := e.grid.Width, e.grid.Height

	blocks := 0
	for _, pool := range e.blocks {
		blocks += pool.Cap()
	}
	roads := (w-2)*((h+1)/2) + (h-2)*((w+1)/2)
	roadOps := (w-2)*h + (h-2)*w
	trip := e.trail.Cap()
	goals := e.goals.Cap()

	commands := 1 + blocks + roads + 1 + 2 + 1 + 2 + 1
	ops := 5 + 5*blocks + roadOps + (trip + 3) + 2 + 7 + 3*5
	if e.params.DebugZones {
		commands += trip + goals
		ops += trip + 2*goals
	}

	return &Frame{
		Width:      w,
		Height:     h,
		Categories: e.categories,
		Commands:   make([]Command, 0, commands),
		Cells:      make([]CellInfo, w*h),
		Route:      make([]Index, 0, trip),
		ops:        make([]Op, 0, ops),
		debug:      e.params.DebugZones,
	}
}

// CellAt returns the classification of (x, y)
func (f *Frame) CellAt(x, y int) (CellInfo, bool) {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return CellInfo{}, false
	}
	return f.Cells[x*f.Height+y], true
}

// Trip returns the trip command, if the frame holds a route
func (f *Frame) Trip() (Command, bool) {
	for _, cmd := range f.Commands {
		if cmd.Kind == KindTrip {
			return cmd, true
		}
	}
	return Command{}, false
}

func (f *Frame) reset(e *MapEngine) {
	f.SizeClass = e.sizeClass
	f.Commands = f.Commands[:0]
	f.Route = f.Route[:0]
	f.ops = f.ops[:0]
	f.Source = Index{}
	f.Goal = Index{}
	f.House = Point{}
	f.Length = 0
	f.Duration = 0
	f.Fade = e.params.Fade()
	f.Overlap = e.params.Overlap()
	f.Stats = Stats{}
	for i := range f.Cells {
		f.Cells[i] = CellInfo{Category: NoCategory}
	}
}

// begin opens a command; its ops are everything appended until end
func (f *Frame) begin(kind Kind, category string) int {
	f.Commands = append(f.Commands, Command{Kind: kind, Category: category})
	return len(f.ops)
}

func (f *Frame) end(start int) *Command {
	cmd := &f.Commands[len(f.Commands)-1]
	cmd.Ops = f.ops[start:len(f.ops):len(f.ops)]
	return cmd
}

func (f *Frame) op(kind OpKind, x, y float64) {
	f.ops = append(f.ops, Op{Kind: kind, X: x, Y: y})
}

func (f *Frame) marker(kind Kind, x, y float64) {
	start := f.begin(kind, "")
	f.op(OpMove, x, y)
	f.end(start)
}

// rect covers the view box 0 0 W-1 H-1
func (f *Frame) rect(kind Kind) *Command {
	right, bottom := float64(f.Width-1), float64(f.Height-1)
	start := f.begin(kind, "")
	f.op(OpMove, 0, 0)
	f.op(OpLine, right, 0)
	f.op(OpLine, right, bottom)
	f.op(OpLine, 0, bottom)
	f.op(OpClose, 0, 0)
	return f.end(start)
}

// Road implements RoadSink
func (f *Frame) Road(run *Pool, vertical bool) {
	start := f.begin(KindRoad, "")
	for i := 0; i < run.Len(); i++ {
		at := run.At(i)
		kind := OpLine
		if i == 0 {
			kind = OpMove
		}
		f.op(kind, float64(at.X), float64(at.Y))
	}
	f.end(start)
}

func (f *Frame) fill(e *MapEngine) {
	g := e.grid
	p := e.params

	f.Source = e.source
	f.Goal = e.goal
	f.House = e.house
	f.Route = e.Route(f.Route)

	f.classify(e)

	f.rect(KindBackdrop)

	// Blocks are drawn clockwise from their bottom-right corner
	for ci, pool := range e.blocks {
		for i := 0; i < pool.Len(); i++ {
			at := pool.At(i)
			br, bl := g.at(at.X, at.Y), g.at(at.X-1, at.Y)
			tl, tr := g.at(at.X-1, at.Y-1), g.at(at.X, at.Y-1)
			start := f.begin(KindBlock, e.categories[ci])
			f.op(OpMove, br.X, br.Y)
			f.op(OpLine, bl.X, bl.Y)
			f.op(OpLine, tl.X, tl.Y)
			f.op(OpLine, tr.X, tr.Y)
			f.op(OpClose, 0, 0)
			f.end(start)
		}
	}

	e.stats.Roads = e.ScanRoads(f)

	f.trip(e)

	src := g.at(e.source.X, e.source.Y)
	f.marker(KindSourceRipple, src.X, src.Y)
	f.marker(KindSource, src.X, src.Y)

	f.house(e.house, p.HouseScale)

	f.rect(KindLeftEdge)
	f.rect(KindRightEdge)

	fade := f.rect(KindFade)
	fade.Duration = f.Fade + f.Duration + f.Fade

	if f.debug {
		f.zones(e)
	}
}

func (f *Frame) classify(e *MapEngine) {
	g := e.grid
	for x := 0; x < g.Width; x++ {
		for y := 0; y < g.Height; y++ {
			cell := g.at(x, y)
			info := &f.Cells[g.index(x, y)]
			info.Category = cell.Category
			info.Removed = cell.IsRemoved
			info.Passable = cell.CanPass
		}
	}
	for i := 0; i < e.goals.Len(); i++ {
		at := e.goals.At(i)
		f.Cells[g.index(at.X, at.Y)].Goal = true
	}
	for _, at := range f.Route {
		f.Cells[g.index(at.X, at.Y)].Route = true
	}
}

// trip draws source to goal, then runs into the house past its porch
func (f *Frame) trip(e *MapEngine) {
	g := e.grid
	start := f.begin(KindTrip, "")

	length := 0.0
	var px, py float64
	step := func(kind OpKind, x, y float64) {
		if kind != OpMove {
			length += math.Hypot(x-px, y-py)
		}
		px, py = x, y
		f.op(kind, x, y)
	}

	src := g.at(e.source.X, e.source.Y)
	step(OpMove, src.X, src.Y)
	for i, at := range f.Route {
		if i == 0 && at == e.source {
			continue
		}
		cell := g.at(at.X, at.Y)
		step(OpLine, cell.X, cell.Y)
	}
	step(OpLine, e.house.X, e.house.Y+e.params.Porch)
	step(OpLine, e.house.X, e.house.Y-houseOverlap)

	cmd := f.end(start)
	f.Length = length
	f.Duration = e.params.RevealDuration(length)
	cmd.Length = f.Length
	cmd.Duration = f.Duration
}

// house draws the glyph clockwise from its bottom midpoint
func (f *Frame) house(at Point, s float64) {
	start := f.begin(KindHouse, "")
	f.op(OpMove, at.X, at.Y)
	f.op(OpRelLine, -2*s, 0)
	f.op(OpRelLine, 0, -3*s)
	f.op(OpRelLine, 2*s, -s)
	f.op(OpRelLine, 2*s, s)
	f.op(OpRelLine, 0, 3*s)
	f.op(OpClose, 0, 0)
	f.end(start)
}

// zones is the developer overlay: traversable cells and goal frontages
func (f *Frame) zones(e *MapEngine) {
	g := e.grid
	t := e.bounds.Trip
	for x := max(0, t.Left); x < g.Width-t.Right; x++ {
		for y := max(0, t.Top); y < g.Height-t.Bottom; y++ {
			if cell := g.at(x, y); cell.CanPass {
				f.marker(KindDeveloperTrip, cell.X, cell.Y)
			}
		}
	}
	for i := 0; i < e.goals.Len(); i++ {
		at := e.goals.At(i)
		cell, left := g.at(at.X, at.Y), g.at(at.X-1, at.Y)
		start := f.begin(KindDeveloperGoal, "")
		f.op(OpMove, cell.X, cell.Y)
		f.op(OpLine, left.X, left.Y)
		f.end(start)
	}
}
