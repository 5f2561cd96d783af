package staging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gear6io/strata/pkg/errors"
	"github.com/gear6io/strata/server/config"
	"github.com/gear6io/strata/server/paths"
	"github.com/gear6io/strata/server/storage/filesystem"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, scheme, scratchRoot, dirName string) *Manager {
	t.Helper()
	cfg := config.LoadDefaultConfig()
	cfg.Storage.Staging.Scheme = scheme
	cfg.Storage.Staging.ScratchRoot = scratchRoot
	cfg.Storage.Staging.DirName = dirName

	fs := filesystem.NewFileStorage(zerolog.Nop())
	pm := paths.NewManager(t.TempDir())
	m := NewManager(cfg, fs, pm, zerolog.Nop())
	m.SetExecutionIDGenerator(func() string { return "EXEC01" })
	return m
}

func TestResolveLegacyScheme(t *testing.T) {
	scratch := t.TempDir()
	m := newTestManager(t, config.StagingSchemeLegacy, scratch, ".staging")

	dir, err := m.Resolve(filepath.Join(t.TempDir(), "events"), "job-1", "worker-0")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(scratch, "EXEC01-worker-0"), dir.WritePath)
	assert.Equal(t, dir.WritePath, dir.CleanupRoot)
	assert.Equal(t, StatusCreated, dir.Status())

	info, err := os.Stat(dir.WritePath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestResolveCurrentScheme(t *testing.T) {
	m := newTestManager(t, config.StagingSchemeCurrent, "", ".staging")
	tableDir := filepath.Join(t.TempDir(), "events")

	dir, err := m.Resolve(tableDir, "job-1", "worker-0")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tableDir, ".staging_EXEC01-worker-0"), dir.CleanupRoot)
	assert.Equal(t, filepath.Join(dir.CleanupRoot, "-ext-10000"), dir.WritePath)

	info, err := os.Stat(dir.WritePath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestResolveSubstitutesHiddenMarker(t *testing.T) {
	// A staging dir name without the hidden marker would be swept by
	// commit-time directory clearing; the resolver must hide it.
	m := newTestManager(t, config.StagingSchemeCurrent, "", "staging")
	tableDir := filepath.Join(t.TempDir(), "events")

	dir, err := m.Resolve(tableDir, "job-1", "worker-0")
	require.NoError(t, err)

	base := filepath.Base(dir.CleanupRoot)
	assert.True(t, strings.HasPrefix(base, "."), "staging dir %q must carry the hidden marker", base)
	assert.Equal(t, ".staging_EXEC01-worker-0", base)
}

func TestResolveUnsupportedScheme(t *testing.T) {
	m := newTestManager(t, config.StagingSchemeCurrent, "", ".staging")
	m.scheme = "v3"

	_, err := m.Resolve(t.TempDir(), "job-1", "worker-0")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrUnsupportedScheme))
}

func TestResolveCreateFailure(t *testing.T) {
	scratch := t.TempDir()
	m := newTestManager(t, config.StagingSchemeLegacy, scratch, ".staging")

	// Occupy the staging path with a plain file so mkdir fails
	blocker := filepath.Join(scratch, "EXEC01-worker-0")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := m.Resolve(t.TempDir(), "job-1", "worker-0")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrCreateFailed))
	assert.Contains(t, errors.GetContext(err), "path")
}

func TestReleaseDeletesAndIsIdempotent(t *testing.T) {
	m := newTestManager(t, config.StagingSchemeCurrent, "", ".staging")
	tableDir := filepath.Join(t.TempDir(), "events")

	dir, err := m.Resolve(tableDir, "job-1", "worker-0")
	require.NoError(t, err)

	status := m.Release(dir)
	assert.Equal(t, StatusDeleted, status)
	_, statErr := os.Stat(dir.CleanupRoot)
	assert.True(t, os.IsNotExist(statErr))

	// Second release is a no-op returning the prior status
	assert.Equal(t, StatusDeleted, m.Release(dir))
}

func TestReleaseAlreadyGoneIsSuccess(t *testing.T) {
	m := newTestManager(t, config.StagingSchemeLegacy, t.TempDir(), ".staging")

	dir, err := m.Resolve(t.TempDir(), "job-1", "worker-0")
	require.NoError(t, err)

	// Simulate the commit rename consuming the staging directory
	require.NoError(t, os.RemoveAll(dir.CleanupRoot))

	assert.Equal(t, StatusDeleted, m.Release(dir))
}

func TestReleaseNilDirectory(t *testing.T) {
	m := newTestManager(t, config.StagingSchemeCurrent, "", ".staging")
	assert.Equal(t, StatusUnresolved, m.Release(nil))
}
