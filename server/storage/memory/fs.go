package memory

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gear6io/strata/pkg/errors"
	"github.com/gear6io/strata/server/storage"
)

// Package-specific error codes for memory storage
var (
	MemoryFileNotFound = errors.MustNewCode("memory.file_not_found")
	MemoryDirNotFound  = errors.MustNewCode("memory.dir_not_found")
	MemoryNotEmpty     = errors.MustNewCode("memory.dir_not_empty")
)

// Type constant for this storage engine
const Type = "MEMORY"

type fileEntry struct {
	data    []byte
	modTime time.Time
}

// MemoryStorage implements the storage.FileSystem capability in memory.
// Paths are slash-separated strings; directories are tracked explicitly
// so that empty partitions behave like their on-disk counterparts.
type MemoryStorage struct {
	mu       sync.RWMutex
	files    map[string]*fileEntry
	dirs     map[string]struct{}
	deferred map[string]struct{}
}

// NewMemoryStorage creates a new in-memory engine
func NewMemoryStorage() (*MemoryStorage, error) {
	return &MemoryStorage{
		files:    make(map[string]*fileEntry),
		dirs:     make(map[string]struct{}),
		deferred: make(map[string]struct{}),
	}, nil
}

// GetStorageType returns the storage type identifier
func (ms *MemoryStorage) GetStorageType() string {
	return Type
}

func normalize(p string) string {
	return strings.TrimSuffix(path.Clean(p), "/")
}

func (ms *MemoryStorage) addDirs(p string) {
	for p != "/" && p != "." && p != "" {
		ms.dirs[p] = struct{}{}
		p = path.Dir(p)
	}
}

// Exists reports whether a file or directory is present at path
func (ms *MemoryStorage) Exists(p string) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	p = normalize(p)
	if _, ok := ms.files[p]; ok {
		return true, nil
	}
	_, ok := ms.dirs[p]
	return ok, nil
}

// MakeDirectories records the directory and its parents
func (ms *MemoryStorage) MakeDirectories(p string, perm os.FileMode) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.addDirs(normalize(p))
	return nil
}

// Delete removes a file or directory. Returns false with a nil error when
// there was nothing to delete.
func (ms *MemoryStorage) Delete(p string, recursive bool) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	p = normalize(p)
	if _, ok := ms.files[p]; ok {
		delete(ms.files, p)
		return true, nil
	}

	if _, ok := ms.dirs[p]; !ok {
		return false, nil
	}

	prefix := p + "/"
	if !recursive {
		for f := range ms.files {
			if strings.HasPrefix(f, prefix) {
				return false, errors.New(MemoryNotEmpty, "directory not empty", nil).AddContext("path", p)
			}
		}
		for d := range ms.dirs {
			if strings.HasPrefix(d, prefix) {
				return false, errors.New(MemoryNotEmpty, "directory not empty", nil).AddContext("path", p)
			}
		}
	}

	for f := range ms.files {
		if strings.HasPrefix(f, prefix) {
			delete(ms.files, f)
		}
	}
	for d := range ms.dirs {
		if strings.HasPrefix(d, prefix) {
			delete(ms.dirs, d)
		}
	}
	delete(ms.dirs, p)
	return true, nil
}

// Rename moves a file or a whole directory subtree
func (ms *MemoryStorage) Rename(src, dst string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	src = normalize(src)
	dst = normalize(dst)

	if entry, ok := ms.files[src]; ok {
		ms.files[dst] = entry
		delete(ms.files, src)
		ms.addDirs(path.Dir(dst))
		return true, nil
	}

	if _, ok := ms.dirs[src]; !ok {
		return false, errors.New(MemoryDirNotFound, "rename source does not exist", nil).AddContext("path", src)
	}

	prefix := src + "/"
	moved := make(map[string]*fileEntry)
	for f, entry := range ms.files {
		if strings.HasPrefix(f, prefix) {
			moved[dst+"/"+strings.TrimPrefix(f, prefix)] = entry
			delete(ms.files, f)
		}
	}
	for f, entry := range moved {
		ms.files[f] = entry
		ms.addDirs(path.Dir(f))
	}

	movedDirs := make([]string, 0)
	for d := range ms.dirs {
		if strings.HasPrefix(d, prefix) {
			movedDirs = append(movedDirs, d)
		}
	}
	for _, d := range movedDirs {
		delete(ms.dirs, d)
		ms.dirs[dst+"/"+strings.TrimPrefix(d, prefix)] = struct{}{}
	}
	delete(ms.dirs, src)
	ms.addDirs(dst)
	return true, nil
}

// ListDirectory returns the members of a directory
func (ms *MemoryStorage) ListDirectory(p string) ([]storage.DirEntry, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	p = normalize(p)
	if _, ok := ms.dirs[p]; !ok {
		return nil, errors.New(MemoryDirNotFound, "directory does not exist", nil).AddContext("path", p)
	}

	prefix := p + "/"
	seen := make(map[string]bool)
	for f := range ms.files {
		if strings.HasPrefix(f, prefix) {
			rest := strings.TrimPrefix(f, prefix)
			if idx := strings.Index(rest, "/"); idx >= 0 {
				seen[rest[:idx]] = true
			} else {
				seen[rest] = false
			}
		}
	}
	for d := range ms.dirs {
		if strings.HasPrefix(d, prefix) {
			rest := strings.TrimPrefix(d, prefix)
			if idx := strings.Index(rest, "/"); idx >= 0 {
				rest = rest[:idx]
			}
			seen[rest] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]storage.DirEntry, 0, len(names))
	for _, name := range names {
		out = append(out, storage.DirEntry{Name: name, IsDir: seen[name]})
	}
	return out, nil
}

// ListFiles returns the plain files directly under a directory
func (ms *MemoryStorage) ListFiles(p string) ([]storage.FileInfo, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	p = normalize(p)
	prefix := p + "/"

	var paths []string
	for f := range ms.files {
		if strings.HasPrefix(f, prefix) && !strings.Contains(strings.TrimPrefix(f, prefix), "/") {
			paths = append(paths, f)
		}
	}
	sort.Strings(paths)

	out := make([]storage.FileInfo, 0, len(paths))
	for _, f := range paths {
		entry := ms.files[f]
		out = append(out, storage.FileInfo{
			Path:    f,
			Size:    int64(len(entry.data)),
			ModTime: entry.modTime,
		})
	}
	return out, nil
}

// OpenForRead opens a file for streaming read
func (ms *MemoryStorage) OpenForRead(p string) (io.ReadCloser, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entry, ok := ms.files[normalize(p)]
	if !ok {
		return nil, errors.New(MemoryFileNotFound, "file does not exist", nil).AddContext("path", p)
	}
	return io.NopCloser(bytes.NewReader(entry.data)), nil
}

// OpenForWrite returns a writer whose contents become visible on Close
func (ms *MemoryStorage) OpenForWrite(p string) (io.WriteCloser, error) {
	return &memoryWriteCloser{
		store: ms,
		path:  normalize(p),
		buf:   bytes.NewBuffer(nil),
	}, nil
}

// RegisterDeferredDelete marks a path for best-effort cleanup on shutdown
func (ms *MemoryStorage) RegisterDeferredDelete(p string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.deferred[normalize(p)] = struct{}{}
}

// CancelDeferredDelete removes a path from the shutdown cleanup set
func (ms *MemoryStorage) CancelDeferredDelete(p string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.deferred, normalize(p))
}

// GetType returns the component type identifier
func (ms *MemoryStorage) GetType() string {
	return storage.ComponentType
}

// Shutdown executes any pending deferred deletes
func (ms *MemoryStorage) Shutdown(ctx context.Context) error {
	ms.mu.Lock()
	pending := make([]string, 0, len(ms.deferred))
	for p := range ms.deferred {
		pending = append(pending, p)
	}
	ms.deferred = make(map[string]struct{})
	ms.mu.Unlock()

	for _, p := range pending {
		ms.Delete(p, true)
	}
	return nil
}

// memoryWriteCloser buffers writes and commits on Close
type memoryWriteCloser struct {
	store *MemoryStorage
	path  string
	buf   *bytes.Buffer
}

func (w *memoryWriteCloser) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *memoryWriteCloser) Close() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	w.store.files[w.path] = &fileEntry{
		data:    w.buf.Bytes(),
		modTime: time.Now(),
	}
	w.store.addDirs(path.Dir(w.path))
	return nil
}
