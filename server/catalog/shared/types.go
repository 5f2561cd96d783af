package shared

import (
	"context"

	"github.com/gear6io/strata/pkg/errors"
	"github.com/gear6io/strata/server/partition"
	srvshared "github.com/gear6io/strata/server/shared"
)

// Shared error codes for catalog implementations
var (
	ErrTableNotFound      = errors.MustNewCode("catalog.table_not_found")
	ErrTableAlreadyExists = errors.MustNewCode("catalog.table_already_exists")
)

// TableIdent identifies a table within a database
type TableIdent struct {
	Database string
	Table    string
}

// String returns the dotted form of the identifier
func (t TableIdent) String() string {
	return t.Database + "." + t.Table
}

// PartitionEntry is one cataloged partition. An empty Location means the
// partition lives at the table's default path convention; otherwise it is
// a custom-located partition.
type PartitionEntry struct {
	Spec     partition.Spec `json:"spec"`
	Location string         `json:"location,omitempty"`
}

// TableInfo describes a cataloged table
type TableInfo struct {
	Ident            TableIdent
	PartitionColumns []string
}

// Catalog is the catalog capability the write path depends on.
// Implementations manage metadata only; physical file removal is the
// commit layer's responsibility, so DropPartitions callers pass
// retainData=true once files are already handled.
type Catalog interface {
	srvshared.Component
	Name() string
	Close() error

	CreateTable(ctx context.Context, ident TableIdent, partitionColumns []string) error
	GetTable(ctx context.Context, ident TableIdent) (*TableInfo, error)
	TableExists(ctx context.Context, ident TableIdent) (bool, error)
	ListTables(ctx context.Context, database string) ([]TableIdent, error)

	ListPartitions(ctx context.Context, ident TableIdent, filter partition.Spec) ([]PartitionEntry, error)
	AddPartitions(ctx context.Context, ident TableIdent, entries []PartitionEntry) error
	DropPartitions(ctx context.Context, ident TableIdent, specs []partition.Spec, retainData bool) error
}
