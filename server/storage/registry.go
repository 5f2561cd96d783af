package storage

import (
	"fmt"
	"sync"

	"github.com/gear6io/strata/pkg/errors"
	"github.com/rs/zerolog"
)

// EngineRegistry manages multiple storage engines
type EngineRegistry struct {
	engines       map[string]FileSystem
	defaultEngine string
	mu            sync.RWMutex
	logger        zerolog.Logger
}

// NewEngineRegistry creates a new storage engine registry
func NewEngineRegistry(logger zerolog.Logger) *EngineRegistry {
	return &EngineRegistry{
		engines: make(map[string]FileSystem),
		logger:  logger,
	}
}

// RegisterEngine registers a storage engine with the registry. The first
// registered engine becomes the default.
func (r *EngineRegistry) RegisterEngine(name string, engine FileSystem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[name] = engine
	if r.defaultEngine == "" {
		r.defaultEngine = name
	}
}

// SetDefaultEngine selects the engine returned by GetDefaultEngine
func (r *EngineRegistry) SetDefaultEngine(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.engines[name]; !exists {
		return errors.New(StorageEngineNotFound, "storage engine not registered", nil).AddContext("engine", name)
	}
	r.defaultEngine = name
	return nil
}

// GetEngine returns a storage engine by name
func (r *EngineRegistry) GetEngine(engineName string) (FileSystem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if engine, exists := r.engines[engineName]; exists {
		return engine, nil
	}

	return nil, errors.New(StorageEngineNotFound, "storage engine not found", nil).AddContext("engine", engineName)
}

// GetDefaultEngine returns the default storage engine
func (r *EngineRegistry) GetDefaultEngine() (FileSystem, error) {
	r.mu.RLock()
	name := r.defaultEngine
	r.mu.RUnlock()

	if name == "" {
		return nil, errors.New(StorageNoEnginesAvailable, "no storage engines available", nil)
	}
	return r.GetEngine(name)
}

// ListEngines returns a list of all available engine names
func (r *EngineRegistry) ListEngines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engines := make([]string, 0, len(r.engines))
	for name := range r.engines {
		engines = append(engines, name)
	}
	return engines
}

// EngineExists checks if a storage engine exists
func (r *EngineRegistry) EngineExists(engineName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.engines[engineName]
	return exists
}

// GetEngineStatus returns the status of all engines
func (r *EngineRegistry) GetEngineStatus() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make(map[string]interface{})
	for name, engine := range r.engines {
		status[name] = map[string]interface{}{
			"available": true,
			"type":      fmt.Sprintf("%T", engine),
		}
	}

	status["default_engine"] = r.defaultEngine
	status["total_engines"] = len(r.engines)

	return status
}
