package catalog

import (
	"github.com/gear6io/strata/pkg/errors"
	jsoncatalog "github.com/gear6io/strata/server/catalog/json"
	"github.com/gear6io/strata/server/catalog/shared"
	sqlitecatalog "github.com/gear6io/strata/server/catalog/sqlite"
	"github.com/gear6io/strata/server/config"
	"github.com/gear6io/strata/server/paths"
)

// Package-specific error codes for catalog factory
var (
	ErrUnsupportedCatalogType = errors.MustNewCode("catalog.unsupported_type")
)

// Re-exported types so callers depend on one catalog package
type (
	CatalogInterface = shared.Catalog
	TableIdent       = shared.TableIdent
	TableInfo        = shared.TableInfo
	PartitionEntry   = shared.PartitionEntry
)

// Re-exported error codes
var (
	ErrTableNotFound      = shared.ErrTableNotFound
	ErrTableAlreadyExists = shared.ErrTableAlreadyExists
)

// NewCatalog creates a catalog based on the configured type
func NewCatalog(cfg *config.Config, pathManager paths.PathManager) (CatalogInterface, error) {
	catalogType := cfg.GetCatalogType()

	switch catalogType {
	case "json":
		return jsoncatalog.NewCatalog(pathManager)
	case "sqlite":
		return sqlitecatalog.NewCatalog(pathManager)
	default:
		return nil, errors.New(ErrUnsupportedCatalogType, "unsupported catalog type", nil).AddContext("type", catalogType)
	}
}
