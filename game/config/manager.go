package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/townmap/game/engine"
	"github.com/wricardo/townmap/game/service"
	"gopkg.in/yaml.v3"
)

var (
	ErrParamsNotFound = service.ErrParamsNotFound
	ErrInvalidParams  = service.ErrInvalidParams
)

// DefaultName is the parameter set used when a request names none
const DefaultName = "default"

// extensions are tried in order when resolving a parameter set name
var extensions = []string{".json", ".yaml", ".yml"}

// Manager handles parameter set loading and caching
type Manager struct {
	configDir     string
	defaultParams *engine.Params
	params        map[string]*engine.Params
	mu            sync.RWMutex
}

// NewManager creates a new parameter set manager
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		params:    make(map[string]*engine.Params),
	}

	m.loadDefaultParams()
	return m, nil
}

func trimExt(name string) string {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// findFile resolves a name to an existing file in the config directory
func (m *Manager) findFile(name string) (string, error) {
	if filepath.Ext(name) != "" {
		path := filepath.Join(m.configDir, filepath.Base(name))
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}
	for _, ext := range extensions {
		path := filepath.Join(m.configDir, filepath.Base(name)+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", os.ErrNotExist
}

// LoadParams loads a parameter set by name
func (m *Manager) LoadParams(name string) (*engine.Params, error) {
	key := trimExt(name)

	m.mu.RLock()
	// Check cache first
	if params, exists := m.params[key]; exists {
		m.mu.RUnlock()
		return params, nil
	}
	m.mu.RUnlock()

	// Load from file
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if params, exists := m.params[key]; exists {
		return params, nil
	}

	path, err := m.findFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrParamsNotFound
		}
		return nil, fmt.Errorf("failed to stat params file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read params file: %w", err)
	}

	params, err := engine.DecodeParams(path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse params: %w", err)
	}

	if err := engine.ValidateParams(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	m.params[key] = params
	return params, nil
}

// ListParams returns information about all valid parameter sets
func (m *Manager) ListParams() ([]*service.ParamsInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var infos []*service.ParamsInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := trimExt(entry.Name())
		if name == entry.Name() || seen[name] {
			continue
		}

		params, err := m.LoadParams(entry.Name())
		if err != nil {
			// Skip invalid params
			continue
		}
		seen[name] = true

		infos = append(infos, &service.ParamsInfo{
			Filename:    entry.Name(),
			ParamsID:    name,
			Name:        params.Name,
			Description: params.Description,
			Width:       params.Width,
			Height:      params.Height,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ParamsID < infos[j].ParamsID })
	return infos, nil
}

// GetDefault returns the default parameter set
func (m *Manager) GetDefault() *engine.Params {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultParams
}

// SetDefault sets the default parameter set by name
func (m *Manager) SetDefault(name string) error {
	params, err := m.LoadParams(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultParams = params
	return nil
}

// RefreshCache drops cached parameter sets and reloads the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.params = make(map[string]*engine.Params)
	m.mu.Unlock()

	m.loadDefaultParams()
}

// loadDefaultParams prefers default.*, then the first valid file, then the
// built-in parameters
func (m *Manager) loadDefaultParams() {
	params, err := m.LoadParams(DefaultName)
	if err != nil {
		infos, listErr := m.ListParams()
		if listErr != nil || len(infos) == 0 {
			params = engine.DefaultParams()
		} else if params, err = m.LoadParams(infos[0].Filename); err != nil {
			params = engine.DefaultParams()
		}
	}

	m.mu.Lock()
	m.defaultParams = params
	m.mu.Unlock()
}

// SaveParams writes a parameter set to disk; a .yaml or .yml name selects YAML
func (m *Manager) SaveParams(name string, params *engine.Params) error {
	// Validate params before saving
	if err := engine.ValidateParams(params); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	filename := filepath.Base(name)
	if filepath.Ext(filename) == "" {
		filename += ".json"
	}

	var data []byte
	var err error
	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(params)
	default:
		data, err = json.MarshalIndent(params, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write params file: %w", err)
	}

	m.mu.Lock()
	m.params[trimExt(filename)] = params
	m.mu.Unlock()

	return nil
}

// Count returns the number of cached parameter sets
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.params)
}
