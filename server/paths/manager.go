package paths

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gear6io/strata/pkg/errors"
	"github.com/gear6io/strata/server/partition"
)

// ComponentType defines the path manager component type identifier
const ComponentType = "paths"

// hiddenMarker prefixes directory names that partition discovery and
// commit-time clearing must leave alone
const hiddenMarker = "."

// Manager implements the PathManager interface
type Manager struct {
	basePath string
}

// NewManager creates a new path manager
func NewManager(basePath string) *Manager {
	return &Manager{
		basePath: basePath,
	}
}

// GetBasePath returns the base data path
func (pm *Manager) GetBasePath() string {
	return pm.basePath
}

// GetCatalogPath returns the catalog directory path
func (pm *Manager) GetCatalogPath() string {
	return filepath.Join(pm.basePath, "catalog")
}

// GetDataPath returns the data storage directory path
func (pm *Manager) GetDataPath() string {
	return filepath.Join(pm.basePath, "data")
}

// GetInternalPath returns the internal metadata directory path
func (pm *Manager) GetInternalPath() string {
	return filepath.Join(pm.basePath, ".strata")
}

// GetCatalogURI returns the catalog URI based on catalog type
func (pm *Manager) GetCatalogURI(catalogType string) string {
	if pm.basePath == "" {
		return ""
	}

	switch catalogType {
	case "json":
		return fmt.Sprintf("%s/catalog/catalog.json", pm.basePath)
	case "sqlite":
		return fmt.Sprintf("%s/catalog/catalog.db", pm.basePath)
	default:
		return ""
	}
}

// GetTablePath returns the partition root for a table
func (pm *Manager) GetTablePath(database, tableName string) string {
	return filepath.Join(pm.GetDataPath(), database, tableName)
}

// GetPartitionPath returns the default on-disk location of a partition.
// Custom-located partitions override this through the catalog.
func (pm *Manager) GetPartitionPath(database, tableName string, spec partition.Spec, order []string) string {
	fragment := Fragment(spec, order)
	if fragment == "" {
		return pm.GetTablePath(database, tableName)
	}
	return filepath.Join(pm.GetTablePath(database, tableName), filepath.FromSlash(fragment))
}

// HiddenMarker returns the reserved hidden-directory prefix
func (pm *Manager) HiddenMarker() string {
	return hiddenMarker
}

// IsHiddenName reports whether a directory name is reserved
func (pm *Manager) IsHiddenName(name string) bool {
	return strings.HasPrefix(name, hiddenMarker) || strings.HasPrefix(name, "_")
}

// EnsureDirectoryStructure creates all necessary directories
func (pm *Manager) EnsureDirectoryStructure() error {
	dirs := []string{
		pm.basePath,
		pm.GetCatalogPath(),
		pm.GetDataPath(),
		pm.GetInternalPath(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.New(ErrDirectoryCreationFailed, "failed to create directory", err).AddContext("directory", dir)
		}
	}

	return nil
}

// GetType returns the component type identifier
func (pm *Manager) GetType() string {
	return ComponentType
}

// Shutdown gracefully shuts down the path manager
func (pm *Manager) Shutdown(ctx context.Context) error {
	return nil
}
