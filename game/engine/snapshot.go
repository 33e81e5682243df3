package engine

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Legend characters used in Snapshot.Rows
const (
	LegendSource    = '@'
	LegendGoal      = 'H'
	LegendRoute     = '*'
	LegendCandidate = 'o'
	LegendRemoved   = '.'
	LegendPassable  = '+'
	LegendPavement  = '-'
)

// SnapshotCommand is a draw command with its path rendered as SVG path data
type SnapshotCommand struct {
	Kind       Kind    `json:"kind"`
	Category   string  `json:"category,omitempty"`
	D          string  `json:"d"`
	Length     float64 `json:"length,omitempty"`
	DurationMs int64   `json:"duration_ms,omitempty"`
}

// Snapshot is a self-contained copy of a frame, safe to keep after the
// frame is regenerated
type Snapshot struct {
	ID         int               `json:"id"`
	SizeClass  string            `json:"size_class"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	ViewBox    string            `json:"view_box"`
	Commands   []SnapshotCommand `json:"commands"`
	Rows       []string          `json:"rows"`
	Legend     map[string]string `json:"legend"`
	Route      []Index           `json:"route"`
	Source     Index             `json:"source"`
	Goal       Index             `json:"goal"`
	House      Point             `json:"house"`
	Length     float64           `json:"length"`
	DurationMs int64             `json:"duration_ms"`
	FadeMs     int64             `json:"fade_ms"`
	OverlapMs  int64             `json:"overlap_ms"`
	Stats      Stats             `json:"stats"`
}

// Snapshot copies the frame into an owned, serializable value
func (f *Frame) Snapshot() *Snapshot {
	s := &Snapshot{
		ID:         f.ID,
		SizeClass:  f.SizeClass.String(),
		Width:      f.Width,
		Height:     f.Height,
		ViewBox:    fmt.Sprintf("0 0 %d %d", f.Width-1, f.Height-1),
		Commands:   make([]SnapshotCommand, len(f.Commands)),
		Route:      append([]Index(nil), f.Route...),
		Source:     f.Source,
		Goal:       f.Goal,
		House:      f.House,
		Length:     f.Length,
		DurationMs: f.Duration.Milliseconds(),
		FadeMs:     f.Fade.Milliseconds(),
		OverlapMs:  f.Overlap.Milliseconds(),
		Stats:      f.Stats,
		Legend:     f.legend(),
	}
	for i, cmd := range f.Commands {
		s.Commands[i] = SnapshotCommand{
			Kind:       cmd.Kind,
			Category:   cmd.Category,
			D:          PathData(cmd.Ops),
			Length:     cmd.Length,
			DurationMs: cmd.Duration.Milliseconds(),
		}
	}
	s.Rows = f.rows()
	return s
}

// PathData renders ops as SVG path data
func PathData(ops []Op) string {
	var b strings.Builder
	for _, op := range ops {
		switch op.Kind {
		case OpMove:
			b.WriteByte('M')
		case OpLine:
			b.WriteByte('L')
		case OpRelLine:
			b.WriteByte('l')
		case OpClose:
			b.WriteByte('Z')
			continue
		}
		b.WriteString(formatCoord(op.X))
		b.WriteByte(',')
		b.WriteString(formatCoord(op.Y))
	}
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CategoryRune is the legend character of a terrain category
func CategoryRune(category string) rune {
	for _, r := range category {
		return unicode.ToUpper(r)
	}
	return '#'
}

func (f *Frame) legend() map[string]string {
	legend := map[string]string{
		string(LegendSource):    "source",
		string(LegendGoal):      "goal",
		string(LegendRoute):     "route",
		string(LegendCandidate): "goal candidate",
		string(LegendRemoved):   "removed",
		string(LegendPassable):  "passable",
		string(LegendPavement):  "pavement",
	}
	for _, c := range f.Categories {
		legend[string(CategoryRune(c))] = c
	}
	return legend
}

// Rune returns the legend character of (x, y)
func (f *Frame) Rune(x, y int) rune {
	at := Index{X: x, Y: y}
	if len(f.Route) > 0 {
		switch at {
		case f.Source:
			return LegendSource
		case f.Goal:
			return LegendGoal
		}
	}
	info, ok := f.CellAt(x, y)
	if !ok {
		return ' '
	}
	switch {
	case info.Route:
		return LegendRoute
	case info.Goal:
		return LegendCandidate
	case info.Category != NoCategory && info.Category < len(f.Categories):
		return CategoryRune(f.Categories[info.Category])
	case info.Removed:
		return LegendRemoved
	case info.Passable:
		return LegendPassable
	}
	return LegendPavement
}

func (f *Frame) rows() []string {
	rows := make([]string, f.Height)
	var b strings.Builder
	for y := 0; y < f.Height; y++ {
		b.Reset()
		for x := 0; x < f.Width; x++ {
			b.WriteRune(f.Rune(x, y))
		}
		rows[y] = b.String()
	}
	return rows
}
