package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/wricardo/townmap/game/engine"
)

var (
	ErrParamsNotFound = errors.New("params not found")
	ErrStreamNotFound = errors.New("stream not found")
	ErrInvalidParams  = errors.New("invalid params")
	ErrNoFrame        = errors.New("no frame mounted yet")
)

// mapServiceImpl implements the MapService interface
type mapServiceImpl struct {
	streams SessionManager
	configs ConfigManager
}

// NewMapService creates a new map service instance
func NewMapService(streams SessionManager, configs ConfigManager) MapService {
	return &mapServiceImpl{
		streams: streams,
		configs: configs,
	}
}

// resolveParams loads a named parameter set, or the default when name is empty
func (s *mapServiceImpl) resolveParams(name string) (string, *engine.Params, error) {
	if name == "" {
		params := s.configs.GetDefault()
		return params.Name, params, nil
	}

	params, err := s.configs.LoadParams(name)
	if err != nil {
		// Provide helpful error message with available options
		if errors.Is(err, ErrParamsNotFound) {
			available, listErr := s.configs.ListParams()
			if listErr == nil && len(available) > 0 {
				var ids []string
				for _, info := range available {
					ids = append(ids, info.ParamsID)
				}
				return "", nil, fmt.Errorf("%w: '%s'. Available params: %v", ErrParamsNotFound, name, ids)
			}
			return "", nil, fmt.Errorf("%w: '%s'. Use /api/params to list available parameter sets", ErrParamsNotFound, name)
		}
		return "", nil, fmt.Errorf("failed to load params %s: %w", name, err)
	}
	return name, params, nil
}

func streamInfo(stream *Stream) *StreamInfo {
	return &StreamInfo{
		ID:             stream.ID,
		ParamsName:     stream.ParamsName,
		SizeClass:      stream.Scheduler.SizeClass().String(),
		Seed:           stream.Seed,
		Running:        stream.Scheduler.Running(),
		Mounts:         stream.Scheduler.Mounts(),
		CreatedAt:      stream.CreatedAt,
		LastAccessedAt: stream.LastAccessedAt,
		Current:        stream.Scheduler.Current(),
	}
}

// CreateStream starts a new map loop
func (s *mapServiceImpl) CreateStream(ctx context.Context, req StreamRequest) (*StreamInfo, error) {
	name, params, err := s.resolveParams(req.ParamsName)
	if err != nil {
		return nil, err
	}

	seed := rand.Uint64()
	if req.Seed != nil {
		seed = *req.Seed
	}

	stream, err := s.streams.Create("", StreamConfig{
		ParamsName: name,
		Params:     params,
		SizeClass:  req.Viewport.Resolve(params),
		Seed:       seed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return streamInfo(stream), nil
}

// GetStream retrieves stream information
func (s *mapServiceImpl) GetStream(ctx context.Context, streamID string) (*StreamInfo, error) {
	stream, err := s.streams.Get(streamID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamNotFound, err)
	}

	s.streams.UpdateLastAccessed(streamID)
	return streamInfo(stream), nil
}

// ListStreams returns all active streams without their current frames
func (s *mapServiceImpl) ListStreams(ctx context.Context) ([]*StreamInfo, error) {
	streams := s.streams.List()
	result := make([]*StreamInfo, 0, len(streams))

	for _, stream := range streams {
		info := streamInfo(stream)
		info.Current = nil
		result = append(result, info)
	}

	return result, nil
}

// DeleteStream stops and removes a stream
func (s *mapServiceImpl) DeleteStream(ctx context.Context, streamID string) error {
	if err := s.streams.Delete(streamID); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamNotFound, err)
	}
	return nil
}

// SetViewport applies a viewport change to a stream
func (s *mapServiceImpl) SetViewport(ctx context.Context, streamID string, viewport Viewport) (*StreamInfo, error) {
	stream, err := s.streams.Get(streamID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamNotFound, err)
	}

	stream.Scheduler.SetSizeClass(viewport.Resolve(stream.Params))
	s.streams.UpdateLastAccessed(streamID)

	return streamInfo(stream), nil
}

// CurrentFrame returns the frame a stream is showing
func (s *mapServiceImpl) CurrentFrame(ctx context.Context, streamID string) (*engine.Snapshot, error) {
	stream, err := s.streams.Get(streamID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamNotFound, err)
	}

	s.streams.UpdateLastAccessed(streamID)

	snapshot := stream.Scheduler.Current()
	if snapshot == nil {
		return nil, fmt.Errorf("stream %s: %w", streamID, ErrNoFrame)
	}
	return snapshot, nil
}

// GenerateMap builds one map on a fresh engine
func (s *mapServiceImpl) GenerateMap(ctx context.Context, req MapRequest) (*engine.Snapshot, error) {
	params := req.Params
	if params == nil {
		var err error
		if _, params, err = s.resolveParams(req.ParamsName); err != nil {
			return nil, err
		}
	}

	eng, err := engine.NewEngine(params, engine.NewRand(req.Seed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	eng.SetSizeClass(req.Viewport.Resolve(params))

	frame := eng.NewFrame()
	frame.ID = 1
	if err := eng.Generate(frame); err != nil {
		return nil, err
	}
	return frame.Snapshot(), nil
}

// ListParams returns all available parameter sets
func (s *mapServiceImpl) ListParams(ctx context.Context) ([]*ParamsInfo, error) {
	return s.configs.ListParams()
}

// LoadParams loads a parameter set by name
func (s *mapServiceImpl) LoadParams(ctx context.Context, name string) (*engine.Params, error) {
	_, params, err := s.resolveParams(name)
	return params, err
}

// SaveParams saves a parameter set
func (s *mapServiceImpl) SaveParams(ctx context.Context, name string, params *engine.Params) error {
	if name == "" {
		return fmt.Errorf("params name is required")
	}
	return s.configs.SaveParams(name, params)
}
