package paths

import "github.com/gear6io/strata/server/partition"

// PathManager defines the interface for path management operations.
// It abstracts the table layout so that higher layers (index, staging,
// commit) never assemble paths by hand.
type PathManager interface {
	// Base paths
	GetBasePath() string
	GetCatalogPath() string
	GetDataPath() string
	GetInternalPath() string

	// Catalog paths
	GetCatalogURI(catalogType string) string

	// Table paths
	GetTablePath(database, tableName string) string
	GetPartitionPath(database, tableName string, spec partition.Spec, order []string) string

	// Hidden-directory handling. Names carrying the hidden marker are
	// excluded from partition discovery and from commit-time clearing.
	HiddenMarker() string
	IsHiddenName(name string) bool

	// Directory operations
	EnsureDirectoryStructure() error
}
