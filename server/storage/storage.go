package storage

import (
	"io"
	"os"
	"time"

	"github.com/gear6io/strata/pkg/errors"
)

// Package-specific error codes for storage management
var (
	StorageEngineNotFound     = errors.MustNewCode("storage.engine_not_found")
	StorageNoEnginesAvailable = errors.MustNewCode("storage.no_engines_available")
)

// ComponentType defines the storage component type identifier
const ComponentType = "storage"

// FileInfo describes one physical data file at listing time
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// DirEntry describes one directory member
type DirEntry struct {
	Name  string
	IsDir bool
}

// FileSystem is the filesystem capability the write path depends on.
// Delete and Rename return success booleans rather than errors for the
// "did not happen" case; an error means the operation could not even be
// attempted. Deferred deletes are a best-effort backstop executed on
// engine shutdown for staging directories orphaned by abnormal exits.
type FileSystem interface {
	Exists(path string) (bool, error)
	MakeDirectories(path string, perm os.FileMode) error
	Delete(path string, recursive bool) (bool, error)
	Rename(src, dst string) (bool, error)

	ListDirectory(path string) ([]DirEntry, error)
	ListFiles(path string) ([]FileInfo, error)

	OpenForRead(path string) (io.ReadCloser, error)
	OpenForWrite(path string) (io.WriteCloser, error)

	RegisterDeferredDelete(path string)
	CancelDeferredDelete(path string)
}
