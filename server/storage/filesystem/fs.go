package filesystem

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gear6io/strata/pkg/errors"
	"github.com/gear6io/strata/server/storage"
	"github.com/rs/zerolog"
)

// Package-specific error codes for filesystem storage
var (
	FileStorageStatFailed       = errors.MustNewCode("filesystem.stat_failed")
	FileStorageCreateDirFailed  = errors.MustNewCode("filesystem.create_dir_failed")
	FileStorageCreateFileFailed = errors.MustNewCode("filesystem.create_file_failed")
	FileStorageOpenFileFailed   = errors.MustNewCode("filesystem.open_file_failed")
	FileStorageListFailed       = errors.MustNewCode("filesystem.list_failed")
)

// Type constant for this storage engine
const Type = "FILESYSTEM"

// FileStorage implements the storage.FileSystem capability against the
// local filesystem. Deferred deletes are collected and executed on
// Shutdown as a backstop for staging directories left behind by
// abnormal exits.
type FileStorage struct {
	logger   zerolog.Logger
	mu       sync.Mutex
	deferred map[string]struct{}
}

// NewFileStorage creates a new local filesystem engine
func NewFileStorage(logger zerolog.Logger) *FileStorage {
	return &FileStorage{
		logger:   logger,
		deferred: make(map[string]struct{}),
	}
}

// GetStorageType returns the storage type identifier
func (fs *FileStorage) GetStorageType() string {
	return Type
}

// Exists reports whether a file or directory is present at path
func (fs *FileStorage) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.New(FileStorageStatFailed, "failed to stat path", err).AddContext("path", path)
}

// MakeDirectories creates the directory and any missing parents
func (fs *FileStorage) MakeDirectories(path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return errors.New(FileStorageCreateDirFailed, "failed to create directory", err).AddContext("path", path)
	}
	return nil
}

// Delete removes a file or directory. Returns false with a nil error when
// there was nothing to delete.
func (fs *FileStorage) Delete(path string, recursive bool) (bool, error) {
	exists, err := fs.Exists(path)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	if recursive {
		if err := os.RemoveAll(path); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := os.Remove(path); err != nil {
		return false, err
	}
	return true, nil
}

// Rename moves src to dst, creating dst's parent if needed
func (fs *FileStorage) Rename(src, dst string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return false, errors.New(FileStorageCreateDirFailed, "failed to create rename target parent", err).AddContext("path", dst)
	}
	if err := os.Rename(src, dst); err != nil {
		return false, err
	}
	return true, nil
}

// ListDirectory returns the members of a directory
func (fs *FileStorage) ListDirectory(path string) ([]storage.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.New(FileStorageListFailed, "failed to read directory", err).AddContext("path", path)
	}

	out := make([]storage.DirEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, storage.DirEntry{
			Name:  entry.Name(),
			IsDir: entry.IsDir(),
		})
	}
	return out, nil
}

// ListFiles returns the plain files directly under a directory
func (fs *FileStorage) ListFiles(path string) ([]storage.FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.New(FileStorageListFailed, "failed to read directory", err).AddContext("path", path)
	}

	var out []storage.FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, storage.FileInfo{
			Path:    filepath.Join(path, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

// OpenForRead opens a file for streaming read
func (fs *FileStorage) OpenForRead(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(FileStorageOpenFileFailed, "failed to open file", err).AddContext("path", path)
	}
	return file, nil
}

// OpenForWrite opens a file for streaming write
func (fs *FileStorage) OpenForWrite(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.New(FileStorageCreateDirFailed, "failed to create parent directory", err).AddContext("path", path)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, errors.New(FileStorageCreateFileFailed, "failed to create file", err).AddContext("path", path)
	}
	return file, nil
}

// RegisterDeferredDelete marks a path for best-effort cleanup on shutdown
func (fs *FileStorage) RegisterDeferredDelete(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.deferred[path] = struct{}{}
}

// CancelDeferredDelete removes a path from the shutdown cleanup set
func (fs *FileStorage) CancelDeferredDelete(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.deferred, path)
}

// GetType returns the component type identifier
func (fs *FileStorage) GetType() string {
	return storage.ComponentType
}

// Shutdown executes any pending deferred deletes. Failures are logged,
// never surfaced.
func (fs *FileStorage) Shutdown(ctx context.Context) error {
	fs.mu.Lock()
	pending := make([]string, 0, len(fs.deferred))
	for path := range fs.deferred {
		pending = append(pending, path)
	}
	fs.deferred = make(map[string]struct{})
	fs.mu.Unlock()

	for _, path := range pending {
		if err := os.RemoveAll(path); err != nil {
			fs.logger.Warn().Err(err).Str("path", path).Msg("Deferred delete failed")
		}
	}
	return nil
}
