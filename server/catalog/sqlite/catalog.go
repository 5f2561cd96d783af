package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gear6io/strata/pkg/errors"
	catalogshared "github.com/gear6io/strata/server/catalog/shared"
	"github.com/gear6io/strata/server/partition"
	"github.com/gear6io/strata/server/paths"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Package-specific error codes for the SQLite catalog
var (
	ErrDatabaseOpenFailed = errors.MustNewCode("sqlite_catalog.open_failed")
	ErrDirectoryFailed    = errors.MustNewCode("sqlite_catalog.dir_failed")
	ErrSchemaInitFailed   = errors.MustNewCode("sqlite_catalog.schema_init_failed")
	ErrQueryFailed        = errors.MustNewCode("sqlite_catalog.query_failed")
	ErrMutationFailed     = errors.MustNewCode("sqlite_catalog.mutation_failed")
	ErrSpecEncodingFailed = errors.MustNewCode("sqlite_catalog.spec_encoding_failed")
)

// ComponentType defines the SQLite catalog component type identifier
const ComponentType = "catalog"

// tableModel is the persisted form of one table
type tableModel struct {
	bun.BaseModel `bun:"table:tables"`

	ID               int64     `bun:"id,pk,autoincrement"`
	Database         string    `bun:"database,notnull"`
	Name             string    `bun:"name,notnull"`
	PartitionColumns string    `bun:"partition_columns,notnull"` // JSON-encoded []string
	CreatedAt        time.Time `bun:"created_at,notnull"`
}

// partitionModel is the persisted form of one partition
type partitionModel struct {
	bun.BaseModel `bun:"table:partitions"`

	ID       int64  `bun:"id,pk,autoincrement"`
	TableID  int64  `bun:"table_id,notnull"`
	SpecKey  string `bun:"spec_key,notnull"` // canonical key, unique per table
	Spec     string `bun:"spec,notnull"`     // JSON-encoded column=value map
	Location string `bun:"location"`
}

// Catalog implements the catalog capability on SQLite through bun
type Catalog struct {
	name string
	db   *bun.DB
}

// NewCatalog creates a new SQLite-based catalog
func NewCatalog(pathManager paths.PathManager) (*Catalog, error) {
	uri := pathManager.GetCatalogURI("sqlite")

	if err := os.MkdirAll(filepath.Dir(uri), 0755); err != nil {
		return nil, errors.New(ErrDirectoryFailed, "failed to create catalog directory", err).AddContext("path", uri)
	}

	sqldb, err := sql.Open("sqlite3", uri+"?_foreign_keys=on")
	if err != nil {
		return nil, errors.New(ErrDatabaseOpenFailed, "failed to open SQLite database", err).AddContext("path", uri)
	}

	cat := &Catalog{
		name: "strata-sqlite-catalog",
		db:   bun.NewDB(sqldb, sqlitedialect.New()),
	}

	if err := cat.initializeSchema(); err != nil {
		cat.db.Close()
		return nil, err
	}
	return cat, nil
}

func (c *Catalog) initializeSchema() error {
	ctx := context.Background()

	if _, err := c.db.NewCreateTable().
		Model((*tableModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.New(ErrSchemaInitFailed, "failed to create tables table", err)
	}

	if _, err := c.db.NewCreateTable().
		Model((*partitionModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.New(ErrSchemaInitFailed, "failed to create partitions table", err)
	}

	if _, err := c.db.NewCreateIndex().
		Model((*partitionModel)(nil)).
		Index("idx_partitions_table_spec").
		IfNotExists().
		Unique().
		Column("table_id", "spec_key").
		Exec(ctx); err != nil {
		return errors.New(ErrSchemaInitFailed, "failed to create partition index", err)
	}

	return nil
}

// Name returns the catalog name
func (c *Catalog) Name() string {
	return c.name
}

func (c *Catalog) lookupTable(ctx context.Context, ident catalogshared.TableIdent) (*tableModel, error) {
	model := new(tableModel)
	err := c.db.NewSelect().
		Model(model).
		Where("database = ?", ident.Database).
		Where("name = ?", ident.Table).
		Limit(1).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, errors.New(catalogshared.ErrTableNotFound, "table not found", nil).AddContext("table", ident.String())
	}
	if err != nil {
		return nil, errors.New(ErrQueryFailed, "failed to look up table", err).AddContext("table", ident.String())
	}
	return model, nil
}

// CreateTable registers a table with its partition columns
func (c *Catalog) CreateTable(ctx context.Context, ident catalogshared.TableIdent, partitionColumns []string) error {
	if _, err := c.lookupTable(ctx, ident); err == nil {
		return errors.New(catalogshared.ErrTableAlreadyExists, "table already exists", nil).AddContext("table", ident.String())
	}

	cols, err := json.Marshal(partitionColumns)
	if err != nil {
		return errors.New(ErrSpecEncodingFailed, "failed to encode partition columns", err)
	}

	model := &tableModel{
		Database:         ident.Database,
		Name:             ident.Table,
		PartitionColumns: string(cols),
		CreatedAt:        time.Now(),
	}
	if _, err := c.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return errors.New(ErrMutationFailed, "failed to create table", err).AddContext("table", ident.String())
	}
	return nil
}

// GetTable returns table metadata
func (c *Catalog) GetTable(ctx context.Context, ident catalogshared.TableIdent) (*catalogshared.TableInfo, error) {
	model, err := c.lookupTable(ctx, ident)
	if err != nil {
		return nil, err
	}

	var cols []string
	if err := json.Unmarshal([]byte(model.PartitionColumns), &cols); err != nil {
		return nil, errors.New(ErrSpecEncodingFailed, "failed to decode partition columns", err).AddContext("table", ident.String())
	}

	return &catalogshared.TableInfo{
		Ident:            ident,
		PartitionColumns: cols,
	}, nil
}

// TableExists reports whether the table is registered
func (c *Catalog) TableExists(ctx context.Context, ident catalogshared.TableIdent) (bool, error) {
	_, err := c.lookupTable(ctx, ident)
	if err == nil {
		return true, nil
	}
	if errors.HasCode(err, catalogshared.ErrTableNotFound) {
		return false, nil
	}
	return false, err
}

// ListTables returns the tables registered under a database
func (c *Catalog) ListTables(ctx context.Context, database string) ([]catalogshared.TableIdent, error) {
	var models []tableModel
	err := c.db.NewSelect().
		Model(&models).
		Where("database = ?", database).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.New(ErrQueryFailed, "failed to list tables", err).AddContext("database", database)
	}

	idents := make([]catalogshared.TableIdent, 0, len(models))
	for _, m := range models {
		idents = append(idents, catalogshared.TableIdent{Database: database, Table: m.Name})
	}
	return idents, nil
}

// ListPartitions returns cataloged partitions whose specs satisfy filter
func (c *Catalog) ListPartitions(ctx context.Context, ident catalogshared.TableIdent, filter partition.Spec) ([]catalogshared.PartitionEntry, error) {
	table, err := c.lookupTable(ctx, ident)
	if err != nil {
		return nil, err
	}

	var models []partitionModel
	err = c.db.NewSelect().
		Model(&models).
		Where("table_id = ?", table.ID).
		Order("spec_key ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.New(ErrQueryFailed, "failed to list partitions", err).AddContext("table", ident.String())
	}

	var out []catalogshared.PartitionEntry
	for _, m := range models {
		var spec partition.Spec
		if err := json.Unmarshal([]byte(m.Spec), &spec); err != nil {
			return nil, errors.New(ErrSpecEncodingFailed, "failed to decode partition spec", err).AddContext("spec_key", m.SpecKey)
		}
		if spec.Matches(filter) {
			out = append(out, catalogshared.PartitionEntry{Spec: spec, Location: m.Location})
		}
	}
	return out, nil
}

// AddPartitions registers partitions, replacing entries with equal specs
func (c *Catalog) AddPartitions(ctx context.Context, ident catalogshared.TableIdent, entries []catalogshared.PartitionEntry) error {
	table, err := c.lookupTable(ctx, ident)
	if err != nil {
		return err
	}

	return c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, entry := range entries {
			raw, err := json.Marshal(entry.Spec)
			if err != nil {
				return errors.New(ErrSpecEncodingFailed, "failed to encode partition spec", err)
			}

			if _, err := tx.NewDelete().
				Model((*partitionModel)(nil)).
				Where("table_id = ?", table.ID).
				Where("spec_key = ?", entry.Spec.CanonicalKey()).
				Exec(ctx); err != nil {
				return errors.New(ErrMutationFailed, "failed to replace partition", err)
			}

			model := &partitionModel{
				TableID:  table.ID,
				SpecKey:  entry.Spec.CanonicalKey(),
				Spec:     string(raw),
				Location: entry.Location,
			}
			if _, err := tx.NewInsert().Model(model).Exec(ctx); err != nil {
				return errors.New(ErrMutationFailed, "failed to insert partition", err)
			}
		}
		return nil
	})
}

// DropPartitions removes partitions by spec. retainData is metadata-level
// advisory only: file removal belongs to the commit layer.
func (c *Catalog) DropPartitions(ctx context.Context, ident catalogshared.TableIdent, specs []partition.Spec, retainData bool) error {
	table, err := c.lookupTable(ctx, ident)
	if err != nil {
		return err
	}

	return c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, spec := range specs {
			if _, err := tx.NewDelete().
				Model((*partitionModel)(nil)).
				Where("table_id = ?", table.ID).
				Where("spec_key = ?", spec.CanonicalKey()).
				Exec(ctx); err != nil {
				return errors.New(ErrMutationFailed, "failed to drop partition", err)
			}
		}
		return nil
	})
}

// Close releases catalog resources
func (c *Catalog) Close() error {
	return c.db.Close()
}

// GetType returns the component type identifier
func (c *Catalog) GetType() string {
	return ComponentType
}

// Shutdown gracefully shuts down the catalog
func (c *Catalog) Shutdown(ctx context.Context) error {
	return c.Close()
}
