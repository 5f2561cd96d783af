package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	jsoncatalog "github.com/gear6io/strata/server/catalog/json"
	catalogshared "github.com/gear6io/strata/server/catalog/shared"
	"github.com/gear6io/strata/server/partition"
	"github.com/gear6io/strata/server/paths"
	"github.com/gear6io/strata/server/storage/filesystem"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIdent = catalogshared.TableIdent{Database: "analytics", Table: "events"}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func setupTable(t *testing.T, partitionColumns []string) (*jsoncatalog.Catalog, paths.PathManager) {
	t.Helper()
	pm := paths.NewManager(t.TempDir())
	cat, err := jsoncatalog.NewCatalog(pm)
	require.NoError(t, err)
	require.NoError(t, cat.CreateTable(context.Background(), testIdent, partitionColumns))
	return cat, pm
}

func TestCatalogIndexListsPartitions(t *testing.T) {
	cat, pm := setupTable(t, []string{"region", "day"})
	ctx := context.Background()
	fs := filesystem.NewFileStorage(zerolog.Nop())

	eu := partition.NewSpec("region", "eu", "day", "2024-01-01")
	us := partition.NewSpec("region", "us", "day", "2024-01-01")
	require.NoError(t, cat.AddPartitions(ctx, testIdent, []catalogshared.PartitionEntry{{Spec: eu}, {Spec: us}}))

	euPath := pm.GetPartitionPath(testIdent.Database, testIdent.Table, eu, []string{"region", "day"})
	writeFile(t, filepath.Join(euPath, "batch-1.json"), `{"n":1}`)
	writeFile(t, filepath.Join(euPath, "batch-2.json"), `{"n":2}`)

	idx := NewCatalogIndex(cat, fs, pm, testIdent, zerolog.Nop())

	all, err := idx.ListFiles(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pruned, err := idx.ListFiles(ctx, partition.NewSpec("region", "eu"), nil)
	require.NoError(t, err)
	require.Len(t, pruned, 1)
	assert.True(t, pruned[0].Spec.Equal(eu))
	assert.Len(t, pruned[0].Files, 2)
}

func TestCatalogIndexEmptyCatalogedPartition(t *testing.T) {
	cat, pm := setupTable(t, []string{"region"})
	ctx := context.Background()
	fs := filesystem.NewFileStorage(zerolog.Nop())

	// Cataloged but with no directory on disk yet
	require.NoError(t, cat.AddPartitions(ctx, testIdent, []catalogshared.PartitionEntry{
		{Spec: partition.NewSpec("region", "eu")},
	}))

	idx := NewCatalogIndex(cat, fs, pm, testIdent, zerolog.Nop())
	all, err := idx.ListFiles(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Empty(t, all[0].Files)
}

func TestCatalogIndexUnpartitionedTable(t *testing.T) {
	cat, pm := setupTable(t, nil)
	ctx := context.Background()
	fs := filesystem.NewFileStorage(zerolog.Nop())

	tablePath := pm.GetTablePath(testIdent.Database, testIdent.Table)
	writeFile(t, filepath.Join(tablePath, "batch-1.json"), `{"n":1}`)

	idx := NewCatalogIndex(cat, fs, pm, testIdent, zerolog.Nop())
	all, err := idx.ListFiles(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Spec.IsEmpty())
	assert.Len(t, all[0].Files, 1)
}

func TestCatalogIndexRefreshInvalidatesCache(t *testing.T) {
	cat, pm := setupTable(t, []string{"region"})
	ctx := context.Background()
	fs := filesystem.NewFileStorage(zerolog.Nop())

	idx := NewCatalogIndex(cat, fs, pm, testIdent, zerolog.Nop())

	all, err := idx.ListFiles(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, cat.AddPartitions(ctx, testIdent, []catalogshared.PartitionEntry{
		{Spec: partition.NewSpec("region", "eu")},
	}))

	// Stale until Refresh
	all, err = idx.ListFiles(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, all)

	idx.Refresh()
	all, err = idx.ListFiles(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCatalogIndexCustomLocation(t *testing.T) {
	cat, pm := setupTable(t, []string{"region"})
	ctx := context.Background()
	fs := filesystem.NewFileStorage(zerolog.Nop())

	custom := filepath.Join(t.TempDir(), "elsewhere")
	writeFile(t, filepath.Join(custom, "batch-1.json"), `{"n":1}`)
	require.NoError(t, cat.AddPartitions(ctx, testIdent, []catalogshared.PartitionEntry{
		{Spec: partition.NewSpec("region", "eu"), Location: custom},
	}))

	idx := NewCatalogIndex(cat, fs, pm, testIdent, zerolog.Nop())
	all, err := idx.ListFiles(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, custom, all[0].Path)
	assert.Len(t, all[0].Files, 1)
}

func TestFilesystemIndexDiscoversPartitions(t *testing.T) {
	pm := paths.NewManager(t.TempDir())
	ctx := context.Background()
	fs := filesystem.NewFileStorage(zerolog.Nop())

	tablePath := pm.GetTablePath(testIdent.Database, testIdent.Table)
	writeFile(t, filepath.Join(tablePath, "region=eu", "day=2024-01-01", "batch-1.json"), `{"n":1}`)
	writeFile(t, filepath.Join(tablePath, "region=us", "day=2024-01-02", "batch-1.json"), `{"n":2}`)

	// Hidden directories must not be discovered as partitions
	writeFile(t, filepath.Join(tablePath, ".staging_job-1", "day=2024-01-01", "batch-1.json"), `{"n":3}`)
	writeFile(t, filepath.Join(tablePath, "_tmp", "day=2024-01-01", "batch-1.json"), `{"n":4}`)

	idx := NewFilesystemIndex(fs, pm, testIdent, []string{"region", "day"}, zerolog.Nop())

	all, err := idx.ListFiles(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	pruned, err := idx.ListFiles(ctx, partition.NewSpec("region", "us"), nil)
	require.NoError(t, err)
	require.Len(t, pruned, 1)
	assert.True(t, pruned[0].Spec.Equal(partition.NewSpec("region", "us", "day", "2024-01-02")))
}

func TestFilesystemIndexSizeAndInputFiles(t *testing.T) {
	pm := paths.NewManager(t.TempDir())
	ctx := context.Background()
	fs := filesystem.NewFileStorage(zerolog.Nop())

	tablePath := pm.GetTablePath(testIdent.Database, testIdent.Table)
	writeFile(t, filepath.Join(tablePath, "region=eu", "batch-1.json"), `{"n":1}`)
	writeFile(t, filepath.Join(tablePath, "region=us", "batch-1.json"), `{"n":22}`)

	idx := NewFilesystemIndex(fs, pm, testIdent, []string{"region"}, zerolog.Nop())

	files, err := idx.InputFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	size, err := idx.SizeInBytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(`{"n":1}`)+len(`{"n":22}`)), size)
	assert.GreaterOrEqual(t, size, int64(0))
}

func TestFilesystemIndexMissingTableDir(t *testing.T) {
	pm := paths.NewManager(t.TempDir())
	fs := filesystem.NewFileStorage(zerolog.Nop())

	idx := NewFilesystemIndex(fs, pm, testIdent, []string{"region"}, zerolog.Nop())
	_, err := idx.ListFiles(context.Background(), nil, nil)
	require.Error(t, err)
}
