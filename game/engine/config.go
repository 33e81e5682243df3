package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Params is one parameter set for the map engine, loaded from JSON or YAML
type Params struct {
	Name        string `json:"name" yaml:"name" jsonschema:"required"`
	Description string `json:"description" yaml:"description" jsonschema:"required"`

	Width  int `json:"width" yaml:"width" jsonschema:"minimum=3,maximum=200"`
	Height int `json:"height" yaml:"height" jsonschema:"minimum=3,maximum=200"`

	// Probability of a block category per cell; keys are traversed in lexicographic order
	Probability       map[string]float64 `json:"probability" yaml:"probability"`
	RemoveProbability float64            `json:"remove_probability" yaml:"remove_probability" jsonschema:"minimum=0,maximum=1"`

	MinDistance      int `json:"min_distance" yaml:"min_distance"`
	MaxAttempts      int `json:"max_attempts" yaml:"max_attempts"`
	MaxRegenerations int `json:"max_regenerations" yaml:"max_regenerations"`

	Porch          float64 `json:"porch" yaml:"porch"`
	HouseScale     float64 `json:"house_scale" yaml:"house_scale"`
	InverseSpeedMs float64 `json:"inverse_speed_ms" yaml:"inverse_speed_ms"`
	FadeMs         int     `json:"fade_ms" yaml:"fade_ms"`
	OverlapMs      int     `json:"overlap_ms" yaml:"overlap_ms"`

	Bounds struct {
		Wide   Bounds `json:"wide" yaml:"wide"`
		Narrow Bounds `json:"narrow" yaml:"narrow"`
	} `json:"bounds" yaml:"bounds"`

	// Viewports at least this wide (rem) or this many terminal columns use the wide bounds
	BreakpointRem   float64 `json:"breakpoint_rem" yaml:"breakpoint_rem"`
	TerminalColumns int     `json:"terminal_columns" yaml:"terminal_columns"`

	DebugZones bool `json:"debug_zones,omitempty" yaml:"debug_zones,omitempty"`
}

// Interval is a half-open probability range [Start, End)
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains reports whether r falls in the interval
func (iv Interval) Contains(r float64) bool {
	return iv.Start <= r && r < iv.End
}

// unreachable never contains a uniform draw
var unreachable = Interval{Start: -1, End: -1}

// DefaultParams returns the hero map parameters: a 31x13 grid with the
// large-breakpoint bounds on wide viewports.
func DefaultParams() *Params {
	p := &Params{
		Name:        "default",
		Description: "31x13 town map with a centered text block",
		Width:       31,
		Height:      13,
		Probability: map[string]float64{
			"green": 0.14,
			"store": 0.02,
			"water": 0.02,
		},
		RemoveProbability: 0.2,
		MinDistance:       4,
		MaxAttempts:       10,
		MaxRegenerations:  1000,
		Porch:             0.2,
		HouseScale:        0.15,
		InverseSpeedMs:    150,
		FadeMs:            500,
		OverlapMs:         100,
		BreakpointRem:     69,
		TerminalColumns:   110,
	}
	p.Bounds.Wide = Bounds{
		Goal: Margins{Left: 8, Right: 8, Top: 1, Bottom: 1},
		Trip: Margins{Left: 8, Right: 8, Top: 1, Bottom: 1},
		Text: Margins{Left: 11, Right: 11, Top: 4, Bottom: 4},
	}
	p.Bounds.Narrow = Bounds{
		Goal: Margins{Left: 10, Right: 10, Top: 1, Bottom: 1},
		Trip: Margins{Left: 10, Right: 10, Top: 1, Bottom: 1},
		Text: Margins{Left: 11, Right: 11, Top: 4, Bottom: 4},
	}
	return p
}

// ApplyDefaults fills tuning fields whose zero value is never meaningful
func (p *Params) ApplyDefaults() {
	d := DefaultParams()
	if p.Width == 0 {
		p.Width = d.Width
	}
	if p.Height == 0 {
		p.Height = d.Height
	}
	if p.Probability == nil {
		p.Probability = d.Probability
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.MaxRegenerations == 0 {
		p.MaxRegenerations = d.MaxRegenerations
	}
	if p.HouseScale == 0 {
		p.HouseScale = d.HouseScale
	}
	if p.InverseSpeedMs == 0 {
		p.InverseSpeedMs = d.InverseSpeedMs
	}
	if p.FadeMs == 0 {
		p.FadeMs = d.FadeMs
	}
	if p.BreakpointRem == 0 {
		p.BreakpointRem = d.BreakpointRem
	}
	if p.TerminalColumns == 0 {
		p.TerminalColumns = d.TerminalColumns
	}
}

// BoundsFor returns the bound set used for a size class
func (p *Params) BoundsFor(sc SizeClass) Bounds {
	if sc == Wide {
		return p.Bounds.Wide
	}
	return p.Bounds.Narrow
}

// Fade is the fade-in (and fade-out) time of a mounted map
func (p *Params) Fade() time.Duration {
	return time.Duration(p.FadeMs) * time.Millisecond
}

// Overlap is how long a map stays mounted after its successor appears
func (p *Params) Overlap() time.Duration {
	return time.Duration(p.OverlapMs) * time.Millisecond
}

// RevealDuration converts a path length in grid units to its reveal time
func (p *Params) RevealDuration(length float64) time.Duration {
	return time.Duration(length * p.InverseSpeedMs * float64(time.Millisecond))
}

// SizeClassForWidth evaluates the breakpoint predicate for a viewport width in rem
func (p *Params) SizeClassForWidth(rem float64) SizeClass {
	if p.BreakpointRem <= rem {
		return Wide
	}
	return Narrow
}

// SizeClassForColumns evaluates the breakpoint predicate for a terminal width
func (p *Params) SizeClassForColumns(cols int) SizeClass {
	if p.TerminalColumns <= cols {
		return Wide
	}
	return Narrow
}

// Categories returns the probability keys in the order they are evaluated
func (p *Params) Categories() []string {
	keys := make([]string, 0, len(p.Probability))
	for k := range p.Probability {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CumulativeIntervals lays the category probabilities end to end on [0, 1).
// A category that starts at or past 1 gets the unreachable interval.
func (p *Params) CumulativeIntervals() *orderedmap.OrderedMap[string, Interval] {
	intervals := orderedmap.New[string, Interval]()
	sum := 0.0
	for _, key := range p.Categories() {
		if sum >= 1 {
			intervals.Set(key, unreachable)
			continue
		}
		start := sum
		sum += p.Probability[key]
		if sum > 1 {
			sum = 1
		}
		intervals.Set(key, Interval{Start: start, End: sum})
	}
	return intervals
}

func textSize(b Bounds, w, h int) (int, int) {
	return max(0, w-b.Text.Left-b.Text.Right), max(0, h-b.Text.Top-b.Text.Bottom)
}

// goalArea bounds the goal candidates a bound set can produce
func goalArea(b Bounds, w, h int) int {
	tx, ty := textSize(b, w, h)
	area := max(0, w-1-b.Goal.Left-b.Goal.Right)*max(0, h-1-b.Goal.Top-b.Goal.Bottom) - (tx+1)*(ty+1)
	return max(0, area)
}

// tripArea bounds the traversable cells a bound set can produce
func tripArea(b Bounds, w, h int) int {
	tx, ty := textSize(b, w, h)
	area := max(0, w-b.Trip.Left-b.Trip.Right)*max(0, h-b.Trip.Top-b.Trip.Bottom) - tx*ty
	return max(0, area)
}

// categoryCapacity is the block pool size for one category
func categoryCapacity(w, h int, probability float64) int {
	return int(math.Ceil(2 * float64(w) * float64(h) * probability))
}

func validateMargins(name string, m Margins, w, h int) error {
	var err error
	if m.Left < 0 || m.Right < 0 || m.Top < 0 || m.Bottom < 0 {
		err = multierr.Append(err, fmt.Errorf("params validation: %s margins must not be negative, got %+v", name, m))
	}
	if m.Left+m.Right > w || m.Top+m.Bottom > h {
		err = multierr.Append(err, fmt.Errorf("params validation: %s margins %+v exceed the %dx%d grid", name, m, w, h))
	}
	return err
}

// ValidateParams checks a parameter set and reports every violation it finds
func ValidateParams(p *Params) error {
	if p == nil {
		return fmt.Errorf("params validation: params cannot be nil")
	}

	var err error
	if p.Name == "" {
		err = multierr.Append(err, fmt.Errorf("params validation: name is required"))
	}
	if p.Description == "" {
		err = multierr.Append(err, fmt.Errorf("params validation: description is required"))
	}

	if p.Width < MinGridSize || p.Width > MaxGridSize {
		err = multierr.Append(err, fmt.Errorf("params validation: width must be between %d and %d, got %d", MinGridSize, MaxGridSize, p.Width))
	}
	if p.Height < MinGridSize || p.Height > MaxGridSize {
		err = multierr.Append(err, fmt.Errorf("params validation: height must be between %d and %d, got %d", MinGridSize, MaxGridSize, p.Height))
	}

	for _, key := range p.Categories() {
		if strings.TrimSpace(key) == "" {
			err = multierr.Append(err, fmt.Errorf("params validation: probability keys must not be blank"))
		}
		if v := p.Probability[key]; v < 0 || v > 1 || math.IsNaN(v) {
			err = multierr.Append(err, fmt.Errorf("params validation: probability[%q] must be within [0, 1], got %v", key, v))
		}
	}
	if p.RemoveProbability < 0 || p.RemoveProbability > 1 {
		err = multierr.Append(err, fmt.Errorf("params validation: remove_probability must be within [0, 1], got %v", p.RemoveProbability))
	}

	if p.MinDistance < 0 || p.MinDistance > MaxMinDistance {
		err = multierr.Append(err, fmt.Errorf("params validation: min_distance must be between 0 and %d, got %d", MaxMinDistance, p.MinDistance))
	}
	if p.MaxAttempts < 1 || p.MaxAttempts > MaxAttemptLimit {
		err = multierr.Append(err, fmt.Errorf("params validation: max_attempts must be between 1 and %d, got %d", MaxAttemptLimit, p.MaxAttempts))
	}
	if p.MaxRegenerations < 0 {
		err = multierr.Append(err, fmt.Errorf("params validation: max_regenerations must not be negative, got %d", p.MaxRegenerations))
	}

	if p.Porch < 0 || p.HouseScale <= 0 {
		err = multierr.Append(err, fmt.Errorf("params validation: porch must be >= 0 and house_scale > 0"))
	}
	if p.InverseSpeedMs <= 0 {
		err = multierr.Append(err, fmt.Errorf("params validation: inverse_speed_ms must be positive, got %v", p.InverseSpeedMs))
	}
	if p.FadeMs < 0 || p.OverlapMs < 0 {
		err = multierr.Append(err, fmt.Errorf("params validation: fade_ms and overlap_ms must not be negative"))
	}

	if p.Width >= MinGridSize && p.Height >= MinGridSize {
		for _, set := range []struct {
			name   string
			bounds Bounds
		}{
			{"wide", p.Bounds.Wide},
			{"narrow", p.Bounds.Narrow},
		} {
			err = multierr.Append(err, validateMargins(set.name+".goal", set.bounds.Goal, p.Width, p.Height))
			err = multierr.Append(err, validateMargins(set.name+".trip", set.bounds.Trip, p.Width, p.Height))
			err = multierr.Append(err, validateMargins(set.name+".text", set.bounds.Text, p.Width, p.Height))

			// A source must lie min_distance away from the goal on both axes
			trip := set.bounds.Trip
			cols, rows := p.Width-trip.Left-trip.Right, p.Height-trip.Top-trip.Bottom
			if cols > 0 && rows > 0 && (p.MinDistance >= cols || p.MinDistance >= rows) {
				err = multierr.Append(err, fmt.Errorf("params validation: min_distance %d leaves no source in the %dx%d %s.trip rectangle", p.MinDistance, cols, rows, set.name))
			}
		}
	}

	return err
}

// ParamsSchema describes the parameter file format as JSON schema
func ParamsSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Params{})
}

// DecodeParams parses a parameter file body; YAML is chosen by extension
func DecodeParams(filename string, data []byte) (*Params, error) {
	var params Params
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &params); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &params); err != nil {
			return nil, err
		}
	}
	params.ApplyDefaults()
	return &params, nil
}

// LoadParams loads and validates a parameter file
func LoadParams(filename string) (*Params, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	path := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			path = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	params, err := DecodeParams(path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse params file '%s': %w", filename, err)
	}

	if err := ValidateParams(params); err != nil {
		return nil, err
	}

	return params, nil
}
