package index

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gear6io/strata/pkg/errors"
	catalogshared "github.com/gear6io/strata/server/catalog/shared"
	"github.com/gear6io/strata/server/partition"
	"github.com/gear6io/strata/server/paths"
	"github.com/gear6io/strata/server/storage"
	"github.com/rs/zerolog"
)

// FilesystemIndex is a FileIndex that discovers partitions by walking the
// table's directory tree and parsing the col=value path fragments. It is
// the authority when no catalog records exist (external tables, recovery)
// and is also used to cross-check catalog state.
type FilesystemIndex struct {
	fs               storage.FileSystem
	pathManager      paths.PathManager
	ident            catalogshared.TableIdent
	partitionColumns []string
	logger           zerolog.Logger

	mu     sync.Mutex
	cached []PartitionDirectory
	valid  bool
}

// NewFilesystemIndex creates a discovery-based file index for one table
func NewFilesystemIndex(fs storage.FileSystem, pathManager paths.PathManager, ident catalogshared.TableIdent, partitionColumns []string, logger zerolog.Logger) *FilesystemIndex {
	return &FilesystemIndex{
		fs:               fs,
		pathManager:      pathManager,
		ident:            ident,
		partitionColumns: partitionColumns,
		logger:           logger,
	}
}

// RootPaths returns the table's data root
func (idx *FilesystemIndex) RootPaths() []string {
	return []string{idx.pathManager.GetTablePath(idx.ident.Database, idx.ident.Table)}
}

func (idx *FilesystemIndex) snapshot() ([]PartitionDirectory, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.valid {
		return idx.cached, nil
	}

	root := idx.pathManager.GetTablePath(idx.ident.Database, idx.ident.Table)

	var dirs []PartitionDirectory
	if len(idx.partitionColumns) == 0 {
		files, err := idx.listFilesAt(root)
		if err != nil {
			return nil, err
		}
		dirs = []PartitionDirectory{{Spec: partition.Spec{}, Path: root, Files: files}}
	} else {
		var err error
		dirs, err = idx.walk(root, nil, len(idx.partitionColumns))
		if err != nil {
			return nil, err
		}
	}

	idx.cached = dirs
	idx.valid = true
	return dirs, nil
}

// walk descends one partition level per call. Hidden names (staging
// directories, internal metadata) are excluded from discovery. Directory
// names that do not parse as col=value fragments are skipped with a
// warning rather than failing the whole listing.
func (idx *FilesystemIndex) walk(dir string, segments []string, depth int) ([]PartitionDirectory, error) {
	if depth == 0 {
		fragment := strings.Join(segments, "/")
		spec, err := paths.ParseFragment(fragment)
		if err != nil {
			idx.logger.Warn().Str("fragment", fragment).Msg("Skipping unparseable partition directory")
			return nil, nil
		}
		files, err := idx.listFilesAt(dir)
		if err != nil {
			return nil, err
		}
		return []PartitionDirectory{{Spec: spec, Path: dir, Files: files}}, nil
	}

	entries, err := idx.fs.ListDirectory(dir)
	if err != nil {
		return nil, errors.New(ErrListingFailed, "failed to list table directory", err).AddContext("path", dir)
	}

	var out []PartitionDirectory
	for _, entry := range entries {
		if !entry.IsDir || idx.pathManager.IsHiddenName(entry.Name) {
			continue
		}
		next := append(append([]string(nil), segments...), entry.Name)
		sub, err := idx.walk(filepath.Join(dir, entry.Name), next, depth-1)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

func (idx *FilesystemIndex) listFilesAt(path string) ([]storage.FileInfo, error) {
	exists, err := idx.fs.Exists(path)
	if err != nil {
		return nil, errors.New(ErrListingFailed, "failed to probe directory", err).AddContext("path", path)
	}
	if !exists {
		return nil, nil
	}

	files, err := idx.fs.ListFiles(path)
	if err != nil {
		return nil, errors.New(ErrListingFailed, "failed to list files", err).AddContext("path", path)
	}
	return files, nil
}

// ListFiles returns the discovered partitions satisfying partitionFilters
func (idx *FilesystemIndex) ListFiles(ctx context.Context, partitionFilters partition.Spec, dataFilters []string) ([]PartitionDirectory, error) {
	dirs, err := idx.snapshot()
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
func (idx *FilesystemIndex) Refresh() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.cached = nil
	idx.valid = false
}

// InputFiles returns all file paths across all discovered partitions
func (idx *FilesystemIndex) InputFiles(ctx context.Context) ([]string, error) {
	dirs, err := idx.snapshot()
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

// SizeInBytes returns the aggregate file size across discovered partitions
func (idx *FilesystemIndex) SizeInBytes(ctx context.Context) (int64, error) {
	dirs, err := idx.snapshot()
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
