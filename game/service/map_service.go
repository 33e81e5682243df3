package service

import (
	"context"
	"time"

	"github.com/wricardo/townmap/game/engine"
	"github.com/wricardo/townmap/game/scheduler"
)

// MapService defines all map-related operations
type MapService interface {
	// Stream Management
	CreateStream(ctx context.Context, req StreamRequest) (*StreamInfo, error)
	GetStream(ctx context.Context, streamID string) (*StreamInfo, error)
	ListStreams(ctx context.Context) ([]*StreamInfo, error)
	DeleteStream(ctx context.Context, streamID string) error

	// Stream Operations
	SetViewport(ctx context.Context, streamID string, viewport Viewport) (*StreamInfo, error)
	CurrentFrame(ctx context.Context, streamID string) (*engine.Snapshot, error)

	// One-shot generation
	GenerateMap(ctx context.Context, req MapRequest) (*engine.Snapshot, error)

	// Parameters
	ListParams(ctx context.Context) ([]*ParamsInfo, error)
	LoadParams(ctx context.Context, name string) (*engine.Params, error)
	SaveParams(ctx context.Context, name string, params *engine.Params) error
}

// SessionManager defines stream storage operations
type SessionManager interface {
	Create(id string, cfg StreamConfig) (*Stream, error)
	Get(id string) (*Stream, error)
	List() []*Stream
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles parameter set loading
type ConfigManager interface {
	LoadParams(name string) (*engine.Params, error)
	ListParams() ([]*ParamsInfo, error)
	GetDefault() *engine.Params
	SaveParams(name string, params *engine.Params) error
}

// StreamConfig is everything a new stream is built from
type StreamConfig struct {
	ParamsName string
	Params     *engine.Params
	SizeClass  engine.SizeClass
	Seed       uint64
}

// Stream is one running map loop
type Stream struct {
	ID             string
	ParamsName     string
	Params         *engine.Params
	Scheduler      *scheduler.Scheduler
	Seed           uint64
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
