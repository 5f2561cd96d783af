package memory

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeThrough(t *testing.T, ms *MemoryStorage, path, content string) {
	t.Helper()
	w, err := ms.OpenForWrite(path)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestMemoryStorageRoundTrip(t *testing.T) {
	ms, err := NewMemoryStorage()
	require.NoError(t, err)

	writeThrough(t, ms, "/data/db/events/region=eu/batch-1.json", `{"n":1}`)

	exists, err := ms.Exists("/data/db/events/region=eu/batch-1.json")
	require.NoError(t, err)
	assert.True(t, exists)

	// Parent directories exist implicitly after a write
	exists, err = ms.Exists("/data/db/events")
	require.NoError(t, err)
	assert.True(t, exists)

	r, err := ms.OpenForRead("/data/db/events/region=eu/batch-1.json")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, `{"n":1}`, string(data))
}

func TestMemoryStorageDeleteRecursive(t *testing.T) {
	ms, err := NewMemoryStorage()
	require.NoError(t, err)

	writeThrough(t, ms, "/table/region=eu/batch-1.json", "a")
	writeThrough(t, ms, "/table/region=eu/batch-2.json", "b")
	writeThrough(t, ms, "/table/region=us/batch-1.json", "c")

	deleted, err := ms.Delete("/table/region=eu", true)
	require.NoError(t, err)
	assert.True(t, deleted)

	exists, err := ms.Exists("/table/region=eu/batch-1.json")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = ms.Exists("/table/region=us/batch-1.json")
	require.NoError(t, err)
	assert.True(t, exists)

	// Non-recursive delete refuses a non-empty directory
	_, err = ms.Delete("/table", false)
	require.Error(t, err)

	// Absent target: no error, nothing deleted
	deleted, err = ms.Delete("/table/region=ap", true)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMemoryStorageRenameSubtree(t *testing.T) {
	ms, err := NewMemoryStorage()
	require.NoError(t, err)

	writeThrough(t, ms, "/staging/region=eu/batch-1.json", "a")
	writeThrough(t, ms, "/staging/region=us/batch-1.json", "b")

	renamed, err := ms.Rename("/staging", "/table")
	require.NoError(t, err)
	assert.True(t, renamed)

	exists, err := ms.Exists("/table/region=eu/batch-1.json")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = ms.Exists("/staging")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStorageListing(t *testing.T) {
	ms, err := NewMemoryStorage()
	require.NoError(t, err)

	writeThrough(t, ms, "/table/a.json", "aa")
	writeThrough(t, ms, "/table/b.json", "b")
	writeThrough(t, ms, "/table/region=eu/batch-1.json", "c")

	entries, err := ms.ListDirectory("/table")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.json", entries[0].Name)
	assert.False(t, entries[0].IsDir)
	assert.Equal(t, "region=eu", entries[2].Name)
	assert.True(t, entries[2].IsDir)

	files, err := ms.ListFiles("/table")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, int64(2), files[0].Size)
}

func TestMemoryStorageDeferredDelete(t *testing.T) {
	ms, err := NewMemoryStorage()
	require.NoError(t, err)

	writeThrough(t, ms, "/staging/batch-1.json", "x")
	ms.RegisterDeferredDelete("/staging")

	require.NoError(t, ms.Shutdown(context.Background()))

	exists, err := ms.Exists("/staging/batch-1.json")
	require.NoError(t, err)
	assert.False(t, exists)
}
