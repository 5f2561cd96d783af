package json

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gear6io/strata/pkg/errors"
	catalogshared "github.com/gear6io/strata/server/catalog/shared"
	"github.com/gear6io/strata/server/partition"
	"github.com/gear6io/strata/server/paths"
)

// Package-specific error codes for the JSON catalog
var (
	ErrCatalogReadFailed  = errors.MustNewCode("json_catalog.read_failed")
	ErrCatalogWriteFailed = errors.MustNewCode("json_catalog.write_failed")
	ErrCatalogDirFailed   = errors.MustNewCode("json_catalog.dir_failed")
)

// ComponentType defines the JSON catalog component type identifier
const ComponentType = "catalog"

// tableRecord is the persisted form of one table
type tableRecord struct {
	PartitionColumns []string                       `json:"partition_columns"`
	Partitions       []catalogshared.PartitionEntry `json:"partitions"`
}

// catalogFile is the persisted form of the whole catalog
type catalogFile struct {
	Tables map[string]*tableRecord `json:"tables"`
}

// Catalog is a single-file JSON catalog. Writes rewrite the file through
// a temp-file rename, so readers never observe a torn catalog.
type Catalog struct {
	name string
	uri  string
	mu   sync.RWMutex
	data *catalogFile
}

// NewCatalog creates a new JSON-file-backed catalog
func NewCatalog(pathManager paths.PathManager) (*Catalog, error) {
	uri := pathManager.GetCatalogURI("json")

	if err := os.MkdirAll(filepath.Dir(uri), 0755); err != nil {
		return nil, errors.New(ErrCatalogDirFailed, "failed to create catalog directory", err).AddContext("path", uri)
	}

	cat := &Catalog{
		name: "strata-json-catalog",
		uri:  uri,
		data: &catalogFile{Tables: make(map[string]*tableRecord)},
	}

	if err := cat.load(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (c *Catalog) load() error {
	raw, err := os.ReadFile(c.uri)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.New(ErrCatalogReadFailed, "failed to read catalog file", err).AddContext("path", c.uri)
	}

	var data catalogFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return errors.New(ErrCatalogReadFailed, "failed to parse catalog file", err).AddContext("path", c.uri)
	}
	if data.Tables == nil {
		data.Tables = make(map[string]*tableRecord)
	}
	c.data = &data
	return nil
}

// persist writes the catalog atomically; callers hold the write lock
func (c *Catalog) persist() error {
	raw, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return errors.New(ErrCatalogWriteFailed, "failed to encode catalog", err)
	}

	tmp := c.uri + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return errors.New(ErrCatalogWriteFailed, "failed to write catalog temp file", err).AddContext("path", tmp)
	}
	if err := os.Rename(tmp, c.uri); err != nil {
		os.Remove(tmp)
		return errors.New(ErrCatalogWriteFailed, "failed to replace catalog file", err).AddContext("path", c.uri)
	}
	return nil
}

// Name returns the catalog name
func (c *Catalog) Name() string {
	return c.name
}

// CreateTable registers a table with its partition columns
func (c *Catalog) CreateTable(ctx context.Context, ident catalogshared.TableIdent, partitionColumns []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := ident.String()
	if _, exists := c.data.Tables[key]; exists {
		return errors.New(catalogshared.ErrTableAlreadyExists, "table already exists", nil).AddContext("table", key)
	}

	c.data.Tables[key] = &tableRecord{
		PartitionColumns: append([]string(nil), partitionColumns...),
	}
	return c.persist()
}

// GetTable returns table metadata
func (c *Catalog) GetTable(ctx context.Context, ident catalogshared.TableIdent) (*catalogshared.TableInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	record, exists := c.data.Tables[ident.String()]
	if !exists {
		return nil, errors.New(catalogshared.ErrTableNotFound, "table not found", nil).AddContext("table", ident.String())
	}

	return &catalogshared.TableInfo{
		Ident:            ident,
		PartitionColumns: append([]string(nil), record.PartitionColumns...),
	}, nil
}

// TableExists reports whether the table is registered
func (c *Catalog) TableExists(ctx context.Context, ident catalogshared.TableIdent) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, exists := c.data.Tables[ident.String()]
	return exists, nil
}

// ListTables returns the tables registered under a database
func (c *Catalog) ListTables(ctx context.Context, database string) ([]catalogshared.TableIdent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var idents []catalogshared.TableIdent
	prefix := database + "."
	for key := range c.data.Tables {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			idents = append(idents, catalogshared.TableIdent{Database: database, Table: key[len(prefix):]})
		}
	}
	sort.Slice(idents, func(i, j int) bool { return idents[i].Table < idents[j].Table })
	return idents, nil
}

// ListPartitions returns cataloged partitions whose specs satisfy filter
func (c *Catalog) ListPartitions(ctx context.Context, ident catalogshared.TableIdent, filter partition.Spec) ([]catalogshared.PartitionEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	record, exists := c.data.Tables[ident.String()]
	if !exists {
		return nil, errors.New(catalogshared.ErrTableNotFound, "table not found", nil).AddContext("table", ident.String())
	}

	var out []catalogshared.PartitionEntry
	for _, entry := range record.Partitions {
		if entry.Spec.Matches(filter) {
			out = append(out, catalogshared.PartitionEntry{
				Spec:     entry.Spec.Clone(),
				Location: entry.Location,
			})
		}
	}
	return out, nil
}

// AddPartitions registers partitions, replacing entries with equal specs
func (c *Catalog) AddPartitions(ctx context.Context, ident catalogshared.TableIdent, entries []catalogshared.PartitionEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, exists := c.data.Tables[ident.String()]
	if !exists {
		return errors.New(catalogshared.ErrTableNotFound, "table not found", nil).AddContext("table", ident.String())
	}

	for _, entry := range entries {
		replaced := false
		for i, existing := range record.Partitions {
			if existing.Spec.Equal(entry.Spec) {
				record.Partitions[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			record.Partitions = append(record.Partitions, entry)
		}
	}
	return c.persist()
}

// DropPartitions removes partitions by spec. retainData is metadata-level
// advisory only: file removal belongs to the commit layer.
func (c *Catalog) DropPartitions(ctx context.Context, ident catalogshared.TableIdent, specs []partition.Spec, retainData bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, exists := c.data.Tables[ident.String()]
	if !exists {
		return errors.New(catalogshared.ErrTableNotFound, "table not found", nil).AddContext("table", ident.String())
	}

	drop := partition.NewSet(specs...)
	kept := record.Partitions[:0]
	for _, entry := range record.Partitions {
		if !drop.Contains(entry.Spec) {
			kept = append(kept, entry)
		}
	}
	record.Partitions = kept
	return c.persist()
}

// Close releases catalog resources
func (c *Catalog) Close() error {
	return nil
}

// GetType returns the component type identifier
func (c *Catalog) GetType() string {
	return ComponentType
}

// Shutdown gracefully shuts down the catalog
func (c *Catalog) Shutdown(ctx context.Context) error {
	return c.Close()
}
