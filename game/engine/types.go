package engine

import "time"

// SizeClass selects which of the two bound sets the engine generates with.
type SizeClass int

const (
	Narrow SizeClass = iota
	Wide
)

// String returns the lowercase name used in JSON payloads and query strings
func (s SizeClass) String() string {
	if s == Wide {
		return "wide"
	}
	return "narrow"
}

// ParseSizeClass accepts "wide"/"lg" and "narrow"/"sm"; anything else is narrow
func ParseSizeClass(s string) SizeClass {
	switch s {
	case "wide", "lg", "large":
		return Wide
	}
	return Narrow
}

const (
	// Validation constants
	MinGridSize     = 3
	MaxGridSize     = 200
	MaxMinDistance  = 64
	MaxAttemptLimit = 1000

	// NoPredecessor marks a cell whose search predecessor is unset
	NoPredecessor = -1

	// NoCategory marks a cell with no terrain block
	NoCategory = -1

	// Sources are drawn at most this many times per grid cell before the goal attempt is abandoned
	sourceDrawFactor = 16

	// The trip path ends slightly inside the house glyph
	houseOverlap = 0.1
)

// Index is a grid coordinate. Drawing coordinates use Point.
type Index struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Point is a real-valued drawing coordinate in grid space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Margins describe a rectangle as distances from each grid edge
type Margins struct {
	Left   int `json:"left" yaml:"left"`
	Right  int `json:"right" yaml:"right"`
	Top    int `json:"top" yaml:"top"`
	Bottom int `json:"bottom" yaml:"bottom"`
}

// Bounds is one parameter set: the goal, trip and text rectangles
type Bounds struct {
	Goal Margins `json:"goal" yaml:"goal"`
	Trip Margins `json:"trip" yaml:"trip"`
	Text Margins `json:"text" yaml:"text"`
}

// inText is the closed text rectangle used by block placement and goal exclusion
func (b *Bounds) inText(x, y, w, h int) bool {
	t := b.Text
	return t.Left <= x && x <= w-t.Right && t.Top <= y && y <= h-t.Bottom
}

// inTextRemoved is the half-open text rectangle cleared of pavement
func (b *Bounds) inTextRemoved(x, y, w, h int) bool {
	t := b.Text
	return t.Left <= x && x < w-t.Right && t.Top <= y && y < h-t.Bottom
}

func (b *Bounds) inGoal(x, y, w, h int) bool {
	g := b.Goal
	return g.Left < x && x < w-g.Right && g.Top < y && y < h-g.Bottom
}

func (b *Bounds) inTrip(x, y, w, h int) bool {
	t := b.Trip
	return t.Left <= x && x < w-t.Right && t.Top <= y && y < h-t.Bottom
}

// Cell is one grid position with terrain and search state
type Cell struct {
	// Drawing coordinates
	X float64
	Y float64

	CanPass   bool
	HasBlock  bool
	IsRemoved bool
	Category  int

	// Search scratch, valid only during and after a search
	F        float64
	G        float64
	FromX    int
	FromY    int
	InFringe bool
	Slot     int
}

// CellInfo is the exported classification of one cell in a generated frame
type CellInfo struct {
	Category int  `json:"category"`
	Removed  bool `json:"removed,omitempty"`
	Passable bool `json:"passable,omitempty"`
	Goal     bool `json:"goal,omitempty"`
	Route    bool `json:"route,omitempty"`
}

// Stats summarizes how much work one generation took
type Stats struct {
	Attempts      int           `json:"attempts"`
	Regenerations int           `json:"regenerations"`
	Roads         int           `json:"roads"`
	Elapsed       time.Duration `json:"elapsed_ns"`
}
