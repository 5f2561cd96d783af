package index

import (
	"context"
	"sync"

	"github.com/gear6io/strata/pkg/errors"
	catalogshared "github.com/gear6io/strata/server/catalog/shared"
	"github.com/gear6io/strata/server/partition"
	"github.com/gear6io/strata/server/paths"
	"github.com/gear6io/strata/server/storage"
	"github.com/rs/zerolog"
)

// Package-specific error codes for the file index
var (
	ErrListingFailed = errors.MustNewCode("index.listing_failed")
)

// CatalogIndex is a FileIndex backed by the catalog's partition records.
// Partition membership comes from catalog metadata; file-level detail is
// read from the filesystem per partition directory. Listings are cached
// until Refresh.
type CatalogIndex struct {
	catalog     catalogshared.Catalog
	fs          storage.FileSystem
	pathManager paths.PathManager
	ident       catalogshared.TableIdent
	logger      zerolog.Logger

	mu     sync.Mutex
	cached []PartitionDirectory
	valid  bool
}

// NewCatalogIndex creates a catalog-backed file index for one table
func NewCatalogIndex(cat catalogshared.Catalog, fs storage.FileSystem, pathManager paths.PathManager, ident catalogshared.TableIdent, logger zerolog.Logger) *CatalogIndex {
	return &CatalogIndex{
		catalog:     cat,
		fs:          fs,
		pathManager: pathManager,
		ident:       ident,
		logger:      logger,
	}
}

// RootPaths returns the table's data root
func (idx *CatalogIndex) RootPaths() []string {
	return []string{idx.pathManager.GetTablePath(idx.ident.Database, idx.ident.Table)}
}

func (idx *CatalogIndex) snapshot(ctx context.Context) ([]PartitionDirectory, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.valid {
		return idx.cached, nil
	}

	info, err := idx.catalog.GetTable(ctx, idx.ident)
	if err != nil {
		return nil, err
	}

	var dirs []PartitionDirectory
	if len(info.PartitionColumns) == 0 {
		path := idx.pathManager.GetTablePath(idx.ident.Database, idx.ident.Table)
		files, err := idx.listFilesAt(path)
		if err != nil {
			return nil, err
		}
		dirs = []PartitionDirectory{{Spec: partition.Spec{}, Path: path, Files: files}}
	} else {
		entries, err := idx.catalog.ListPartitions(ctx, idx.ident, nil)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			path := entry.Location
			if path == "" {
				path = idx.pathManager.GetPartitionPath(idx.ident.Database, idx.ident.Table, entry.Spec, info.PartitionColumns)
			}
			files, err := idx.listFilesAt(path)
			if err != nil {
				return nil, err
			}
			dirs = append(dirs, PartitionDirectory{Spec: entry.Spec, Path: path, Files: files})
		}
	}

	idx.cached = dirs
	idx.valid = true
	return dirs, nil
}

// listFilesAt tolerates missing directories: a cataloged partition whose
// directory holds no files yet is an empty partition, not an error.
func (idx *CatalogIndex) listFilesAt(path string) ([]storage.FileInfo, error) {
	exists, err := idx.fs.Exists(path)
	if err != nil {
		return nil, errors.New(ErrListingFailed, "failed to probe partition directory", err).AddContext("path", path)
	}
	if !exists {
		return nil, nil
	}

	files, err := idx.fs.ListFiles(path)
	if err != nil {
		return nil, errors.New(ErrListingFailed, "failed to list partition files", err).AddContext("path", path)
	}
	return files, nil
}

// ListFiles returns the cataloged partitions satisfying partitionFilters
func (idx *CatalogIndex) ListFiles(ctx context.Context, partitionFilters partition.Spec, dataFilters []string) ([]PartitionDirectory, error) {
	dirs, err := idx.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var out []PartitionDirectory
	for _, dir := range dirs {
		if dir.Spec.Matches(partitionFilters) {
			out = append(out, dir)
		}
	}
	return out, nil
}

// Refresh invalidates the cached listing
func (idx *CatalogIndex) Refresh() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.cached = nil
	idx.valid = false
}

// InputFiles returns all file paths across all partitions
func (idx *CatalogIndex) InputFiles(ctx context.Context) ([]string, error) {
	dirs, err := idx.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, dir := range dirs {
		for _, f := range dir.Files {
			out = append(out, f.Path)
		}
	}
	return out, nil
}

// SizeInBytes returns the aggregate file size across all partitions
func (idx *CatalogIndex) SizeInBytes(ctx context.Context) (int64, error) {
	dirs, err := idx.snapshot(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, dir := range dirs {
		for _, f := range dir.Files {
			if f.Size > 0 {
				total += f.Size
			}
		}
	}
	return total, nil
}
