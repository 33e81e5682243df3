package session

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/townmap/game/engine"
	"github.com/wricardo/townmap/game/scheduler"
	"github.com/wricardo/townmap/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// PresenterFactory builds the presenter a new stream mounts its frames on
type PresenterFactory func(streamID string) scheduler.Presenter

// Manager handles map stream lifecycle
type Manager struct {
	streams    map[string]*service.Stream
	clock      scheduler.Clock
	presenters PresenterFactory
	mu         sync.RWMutex
}

// NewManager creates a new stream manager. A nil clock uses the system
// timer and a nil factory discards frames.
func NewManager(clock scheduler.Clock, presenters PresenterFactory) *Manager {
	if clock == nil {
		clock = scheduler.SystemClock{}
	}
	return &Manager{
		streams:    make(map[string]*service.Stream),
		clock:      clock,
		presenters: presenters,
	}
}

// Create builds an engine and a scheduler for a new stream and starts it
func (m *Manager) Create(id string, cfg service.StreamConfig) (*service.Stream, error) {
	if id == "" {
		id = m.generateSessionID()
	}
	if strings.ContainsAny(id, "/ ") {
		return nil, ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Check if stream already exists (case-insensitive)
	if _, exists := m.streams[strings.ToLower(id)]; exists {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(cfg.Params, engine.NewRand(cfg.Seed))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	var presenter scheduler.Presenter
	if m.presenters != nil {
		presenter = m.presenters(id)
	}
	sched := scheduler.New(eng, presenter, m.clock)

	stream := &service.Stream{
		ID:             id,
		ParamsName:     cfg.ParamsName,
		Params:         cfg.Params,
		Scheduler:      sched,
		Seed:           cfg.Seed,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	if stream.ParamsName == "" {
		stream.ParamsName = cfg.Params.Name
	}

	m.streams[strings.ToLower(id)] = stream
	sched.Start(cfg.SizeClass)
	log.Printf("[STREAM] Created %s (params=%s size=%s seed=%d)", id, stream.ParamsName, cfg.SizeClass, cfg.Seed)

	return stream, nil
}

// Get retrieves a stream by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Stream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if stream, exists := m.streams[strings.ToLower(id)]; exists {
		return stream, nil
	}
	return nil, ErrSessionNotFound
}

// List returns all active streams
func (m *Manager) List() []*service.Stream {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Stream, 0, len(m.streams))
	for _, stream := range m.streams {
		result = append(result, stream)
	}

	return result
}

// Delete stops and removes a stream
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	stream, exists := m.streams[strings.ToLower(id)]
	if exists {
		delete(m.streams, strings.ToLower(id))
	}
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}

	stream.Scheduler.Stop()
	log.Printf("[STREAM] Deleted %s", stream.ID)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a stream
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stream, exists := m.streams[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}

	stream.LastAccessedAt = time.Now()
	return nil
}

// CleanupExpiredSessions stops and removes streams that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var expired []*service.Stream
	for id, stream := range m.streams {
		if stream.LastAccessedAt.Before(cutoff) {
			delete(m.streams, id)
			expired = append(expired, stream)
		}
	}
	m.mu.Unlock()

	for _, stream := range expired {
		stream.Scheduler.Stop()
	}

	return len(expired)
}

// StopAll stops every stream; used on shutdown
func (m *Manager) StopAll() {
	for _, stream := range m.List() {
		stream.Scheduler.Stop()
	}
}

// Count returns the number of active streams
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.streams)
}

// generateSessionID returns the first group of a random UUID
func (m *Manager) generateSessionID() string {
	for {
		id := strings.SplitN(uuid.NewString(), "-", 2)[0]
		m.mu.RLock()
		_, exists := m.streams[id]
		m.mu.RUnlock()
		if !exists {
			return id
		}
	}
}
