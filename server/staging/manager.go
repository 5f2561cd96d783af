package staging

import (
	"path/filepath"
	"strings"

	"github.com/gear6io/strata/pkg/errors"
	"github.com/gear6io/strata/server/config"
	"github.com/gear6io/strata/server/paths"
	"github.com/gear6io/strata/server/storage"
	"github.com/gear6io/strata/utils"
	"github.com/rs/zerolog"
)

// Package-specific error codes for staging management
var (
	ErrUnsupportedScheme = errors.MustNewCode("staging.unsupported_scheme")
	ErrCreateFailed      = errors.MustNewCode("staging.create_failed")
)

// extSuffix is the fixed write-root suffix under a current-scheme staging
// directory. Writers place their output under this leaf; the enclosing
// directory is what gets renamed or cleaned up.
const extSuffix = "-ext-10000"

// Status is the lifecycle state of one staging directory
type Status int

const (
	StatusUnresolved Status = iota
	StatusCreated
	StatusDeleted
	StatusDeletionFailed
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusUnresolved:
		return "unresolved"
	case StatusCreated:
		return "created"
	case StatusDeleted:
		return "deleted"
	case StatusDeletionFailed:
		return "deletion_failed"
	default:
		return "unknown"
	}
}

// Directory is one job's private staging area. WritePath is where the
// writer lands files; CleanupRoot is the directory removed on release
// (for the current scheme these differ: the write path is a fixed leaf
// under the cleanup root).
type Directory struct {
	JobID       string
	ExecutionID string
	WritePath   string
	CleanupRoot string

	status Status
}

// Status returns the directory's lifecycle state
func (d *Directory) Status() Status {
	return d.status
}

// Manager allocates and releases job-private staging directories.
// Each job's deletion is best-effort and idempotent; the filesystem
// engine's deferred-delete registration backstops abnormal exits.
type Manager struct {
	fs          storage.FileSystem
	pathManager paths.PathManager
	scheme      string
	scratchRoot string
	dirName     string
	logger      zerolog.Logger

	// injected so tests can supply deterministic ids
	newExecutionID func() string
}

// NewManager creates a staging area manager from configuration
func NewManager(cfg *config.Config, fs storage.FileSystem, pathManager paths.PathManager, logger zerolog.Logger) *Manager {
	return &Manager{
		fs:             fs,
		pathManager:    pathManager,
		scheme:         cfg.GetStagingScheme(),
		scratchRoot:    cfg.GetStagingScratchRoot(),
		dirName:        cfg.GetStagingDirName(),
		logger:         logger,
		newExecutionID: utils.GenerateULID,
	}
}

// SetExecutionIDGenerator overrides the execution-id source
func (m *Manager) SetExecutionIDGenerator(gen func() string) {
	m.newExecutionID = gen
}

// Resolve allocates and creates the staging directory for one job.
// finalOutputPath is the table's data root the job will commit into.
// Directory creation failure is fatal to the job; there is no retry here.
func (m *Manager) Resolve(finalOutputPath, jobID, workerID string) (*Directory, error) {
	executionID := m.newExecutionID()

	var writePath, cleanupRoot string
	switch m.scheme {
	case config.StagingSchemeLegacy:
		cleanupRoot = filepath.Join(m.scratchRoot, executionID+"-"+workerID)
		writePath = cleanupRoot

	case config.StagingSchemeCurrent:
		base := m.dirName + "_" + executionID + "-" + workerID
		// The current scheme always nests the staging directory inside
		// the table tree, so it must carry the hidden marker or
		// commit-time directory clearing would wipe it before any data
		// lands.
		if !strings.HasPrefix(base, m.pathManager.HiddenMarker()) {
			base = m.pathManager.HiddenMarker() + base
		}
		cleanupRoot = filepath.Join(finalOutputPath, base)
		writePath = filepath.Join(cleanupRoot, extSuffix)

	default:
		return nil, errors.New(ErrUnsupportedScheme, "unsupported staging addressing scheme", nil).
			AddContext("scheme", m.scheme)
	}

	if err := m.fs.MakeDirectories(writePath, 0755); err != nil {
		return nil, errors.New(ErrCreateFailed, "failed to create staging directory", err).
			AddContext("path", writePath).
			AddContext("job_id", jobID)
	}

	m.fs.RegisterDeferredDelete(cleanupRoot)

	m.logger.Debug().
		Str("job_id", jobID).
		Str("execution_id", executionID).
		Str("path", writePath).
		Msg("Staging directory created")

	return &Directory{
		JobID:       jobID,
		ExecutionID: executionID,
		WritePath:   writePath,
		CleanupRoot: cleanupRoot,
		status:      StatusCreated,
	}, nil
}

// Release deletes the staging directory, best effort. It never returns
// an error: a failed delete is reported through the status and left for
// the deferred-delete backstop. Calling Release again is a no-op that
// returns the prior status.
func (m *Manager) Release(dir *Directory) Status {
	if dir == nil {
		return StatusUnresolved
	}
	if dir.status == StatusDeleted || dir.status == StatusDeletionFailed {
		return dir.status
	}

	// deleted=false with a nil error means the directory was already
	// gone (e.g. the commit rename consumed it), which counts as success
	_, err := m.fs.Delete(dir.CleanupRoot, true)
	if err != nil {
		dir.status = StatusDeletionFailed
		m.logger.Warn().
			Err(err).
			Str("job_id", dir.JobID).
			Str("path", dir.CleanupRoot).
			Msg("Staging directory delete failed, relying on deferred cleanup")
		return dir.status
	}

	m.fs.CancelDeferredDelete(dir.CleanupRoot)
	dir.status = StatusDeleted
	return dir.status
}
