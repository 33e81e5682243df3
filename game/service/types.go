package service

import (
	"strings"
	"time"

	"github.com/wricardo/townmap/game/engine"
)

// Viewport describes the display a stream renders to. The first non-zero
// of WidthRem, Columns and SizeClass decides the size class.
type Viewport struct {
	SizeClass string  `json:"size_class,omitempty"`
	WidthRem  float64 `json:"width_rem,omitempty"`
	Columns   int     `json:"columns,omitempty"`
}

// Resolve evaluates the breakpoint predicate of params for this viewport
func (v Viewport) Resolve(p *engine.Params) engine.SizeClass {
	switch {
	case v.WidthRem > 0:
		return p.SizeClassForWidth(v.WidthRem)
	case v.Columns > 0:
		return p.SizeClassForColumns(v.Columns)
	}
	return engine.ParseSizeClass(strings.ToLower(v.SizeClass))
}

// StreamRequest creates a stream
type StreamRequest struct {
	ParamsName string   `json:"params"`
	Seed       *uint64  `json:"seed,omitempty"`
	Viewport   Viewport `json:"viewport"`
}

// MapRequest generates one map outside any stream. Params, when set, takes
// precedence over ParamsName.
type MapRequest struct {
	ParamsName string         `json:"params"`
	Params     *engine.Params `json:"params_inline,omitempty"`
	Seed       uint64         `json:"seed"`
	Viewport   Viewport       `json:"viewport"`
}

// StreamInfo provides information about a map stream
type StreamInfo struct {
	ID             string           `json:"id"`
	ParamsName     string           `json:"params"`
	SizeClass      string           `json:"size_class"`
	Seed           uint64           `json:"seed"`
	Running        bool             `json:"running"`
	Mounts         int              `json:"mounts"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
	Current        *engine.Snapshot `json:"current,omitempty"`
}

// ParamsInfo provides information about a parameter set
type ParamsInfo struct {
	Filename    string `json:"filename"`
	ParamsID    string `json:"params_id"` // The identifier to use for stream creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}
