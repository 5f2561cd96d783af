package index

import (
	"context"

	"github.com/gear6io/strata/server/partition"
	"github.com/gear6io/strata/server/storage"
)

// PartitionDirectory is one partition's spec plus the physical files
// materialized for it. It is an immutable snapshot at listing time.
type PartitionDirectory struct {
	Spec  partition.Spec
	Path  string
	Files []storage.FileInfo
}

// FileIndex answers which files and partitions exist for one table,
// optionally pruned by partition filters. Pruning is sound: a partition
// satisfying the filters is never omitted. Data filters are opaque to the
// index; they only narrow which file-level metadata callers may skip, so
// returning extra files is tolerated.
type FileIndex interface {
	// RootPaths returns the table's top-level data roots.
	RootPaths() []string

	// ListFiles returns the partitions satisfying partitionFilters. For
	// an unpartitioned table it returns exactly one PartitionDirectory
	// with an empty spec.
	ListFiles(ctx context.Context, partitionFilters partition.Spec, dataFilters []string) ([]PartitionDirectory, error)

	// Refresh invalidates any cached listing; the next query re-reads
	// authoritative state.
	Refresh()

	// InputFiles returns the flattened file paths across all partitions.
	// Full enumeration; prefer ListFiles with filters when possible.
	InputFiles(ctx context.Context) ([]string, error)

	// SizeInBytes returns the aggregate data size. May be stale but is
	// never negative.
	SizeInBytes(ctx context.Context) (int64, error)
}
