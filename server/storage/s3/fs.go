package s3

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gear6io/strata/pkg/errors"
	"github.com/gear6io/strata/server/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// Package-specific error codes for object storage
var (
	ObjectStorageConfigMissing = errors.MustNewCode("s3.config_missing")
	ObjectStorageConnectFailed = errors.MustNewCode("s3.connect_failed")
	ObjectStorageStatFailed    = errors.MustNewCode("s3.stat_failed")
	ObjectStorageListFailed    = errors.MustNewCode("s3.list_failed")
	ObjectStorageCopyFailed    = errors.MustNewCode("s3.copy_failed")
)

// Type constant for this storage engine
const Type = "S3"

// Config holds object storage connection settings
type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// ConfigFromEnv reads connection settings from the environment. Returns
// nil when no endpoint is configured, which callers treat as "engine not
// available".
func ConfigFromEnv() *Config {
	endpoint := os.Getenv("STRATA_S3_ENDPOINT")
	if endpoint == "" {
		return nil
	}
	return &Config{
		Endpoint:  endpoint,
		Bucket:    os.Getenv("STRATA_S3_BUCKET"),
		AccessKey: os.Getenv("STRATA_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("STRATA_S3_SECRET_KEY"),
		UseSSL:    os.Getenv("STRATA_S3_USE_SSL") == "true",
	}
}

// ObjectStorage implements the storage.FileSystem capability against an
// S3-compatible object store via the MinIO client. Directories are
// implicit prefixes: MakeDirectories is a no-op and renames are
// server-side copy plus delete, so a directory "rename" is atomic only
// per object, not per tree.
type ObjectStorage struct {
	client   *minio.Client
	bucket   string
	logger   zerolog.Logger
	mu       sync.Mutex
	deferred map[string]struct{}
}

// NewObjectStorage creates a new object storage engine
func NewObjectStorage(cfg *Config, logger zerolog.Logger) (*ObjectStorage, error) {
	if cfg == nil || cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New(ObjectStorageConfigMissing, "object storage endpoint and bucket are required", nil)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.New(ObjectStorageConnectFailed, "failed to create object storage client", err).AddContext("endpoint", cfg.Endpoint)
	}

	return &ObjectStorage{
		client:   client,
		bucket:   cfg.Bucket,
		logger:   logger,
		deferred: make(map[string]struct{}),
	}, nil
}

// GetStorageType returns the storage type identifier
func (s *ObjectStorage) GetStorageType() string {
	return Type
}

func (s *ObjectStorage) key(path string) string {
	return strings.TrimPrefix(strings.TrimSuffix(path, "/"), "/")
}

// Exists reports whether an object or a non-empty prefix is present
func (s *ObjectStorage) Exists(path string) (bool, error) {
	ctx := context.Background()
	key := s.key(path)

	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return false, errors.New(ObjectStorageStatFailed, "failed to stat object", err).AddContext("path", path)
	}

	// Fall back to prefix probing for "directories"
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	for obj := range s.client.ListObjects(listCtx, s.bucket, minio.ListObjectsOptions{Prefix: key + "/", Recursive: false}) {
		if obj.Err != nil {
			return false, errors.New(ObjectStorageListFailed, "failed to list objects", obj.Err).AddContext("path", path)
		}
		return true, nil
	}
	return false, nil
}

// MakeDirectories is a no-op: prefixes exist implicitly
func (s *ObjectStorage) MakeDirectories(path string, perm os.FileMode) error {
	return nil
}

// Delete removes an object, or a whole prefix when recursive. S3 delete
// calls succeed on missing keys, so presence is checked first to honor
// the capability contract: removed=false with a nil error when there was
// nothing to delete.
func (s *ObjectStorage) Delete(path string, recursive bool) (bool, error) {
	ctx := context.Background()
	key := s.key(path)
	removed := false

	_, statErr := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if statErr == nil {
		if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return false, err
		}
		removed = true
	} else if minio.ToErrorResponse(statErr).Code != "NoSuchKey" {
		return false, errors.New(ObjectStorageStatFailed, "failed to stat object for delete", statErr).AddContext("path", path)
	}

	if recursive {
		listCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		for obj := range s.client.ListObjects(listCtx, s.bucket, minio.ListObjectsOptions{Prefix: key + "/", Recursive: true}) {
			if obj.Err != nil {
				return removed, errors.New(ObjectStorageListFailed, "failed to list objects for delete", obj.Err).AddContext("path", path)
			}
			if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
				return removed, err
			}
			removed = true
		}
	}

	return removed, nil
}

// Rename copies src to dst server-side and deletes the source
func (s *ObjectStorage) Rename(src, dst string) (bool, error) {
	ctx := context.Background()
	srcKey := s.key(src)
	dstKey := s.key(dst)

	// Single object first
	if _, err := s.client.StatObject(ctx, s.bucket, srcKey, minio.StatObjectOptions{}); err == nil {
		if err := s.copyObject(ctx, srcKey, dstKey); err != nil {
			return false, err
		}
		if err := s.client.RemoveObject(ctx, s.bucket, srcKey, minio.RemoveObjectOptions{}); err != nil {
			return false, err
		}
		return true, nil
	}

	// Whole prefix
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	moved := false
	for obj := range s.client.ListObjects(listCtx, s.bucket, minio.ListObjectsOptions{Prefix: srcKey + "/", Recursive: true}) {
		if obj.Err != nil {
			return moved, errors.New(ObjectStorageListFailed, "failed to list objects for rename", obj.Err).AddContext("path", src)
		}
		target := dstKey + "/" + strings.TrimPrefix(obj.Key, srcKey+"/")
		if err := s.copyObject(ctx, obj.Key, target); err != nil {
			return moved, err
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return moved, err
		}
		moved = true
	}
	return moved, nil
}

func (s *ObjectStorage) copyObject(ctx context.Context, srcKey, dstKey string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: s.bucket, Object: srcKey},
	)
	if err != nil {
		return errors.New(ObjectStorageCopyFailed, "failed to copy object", err).
			AddContext("src", srcKey).
			AddContext("dst", dstKey)
	}
	return nil
}

// ListDirectory returns the immediate members of a prefix
func (s *ObjectStorage) ListDirectory(path string) ([]storage.DirEntry, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prefix := s.key(path) + "/"
	var out []storage.DirEntry
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: false}) {
		if obj.Err != nil {
			return nil, errors.New(ObjectStorageListFailed, "failed to list objects", obj.Err).AddContext("path", path)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		isDir := strings.HasSuffix(name, "/")
		out = append(out, storage.DirEntry{
			Name:  strings.TrimSuffix(name, "/"),
			IsDir: isDir,
		})
	}
	return out, nil
}

// ListFiles returns the objects directly under a prefix
func (s *ObjectStorage) ListFiles(path string) ([]storage.FileInfo, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prefix := s.key(path) + "/"
	var out []storage.FileInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: false}) {
		if obj.Err != nil {
			return nil, errors.New(ObjectStorageListFailed, "failed to list objects", obj.Err).AddContext("path", path)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		out = append(out, storage.FileInfo{
			Path:    "/" + obj.Key,
			Size:    obj.Size,
			ModTime: obj.LastModified,
		})
	}
	return out, nil
}

// OpenForRead opens an object for streaming read
func (s *ObjectStorage) OpenForRead(path string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(context.Background(), s.bucket, s.key(path), minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.New(ObjectStorageStatFailed, "failed to open object", err).AddContext("path", path)
	}
	return obj, nil
}

// OpenForWrite streams writes into an object; the upload completes on Close
func (s *ObjectStorage) OpenForWrite(path string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)

	go func() {
		_, err := s.client.PutObject(context.Background(), s.bucket, s.key(path), pr, -1, minio.PutObjectOptions{})
		pr.CloseWithError(err)
		done <- err
	}()

	return &objectWriter{pw: pw, done: done}, nil
}

// RegisterDeferredDelete marks a prefix for best-effort cleanup on shutdown
func (s *ObjectStorage) RegisterDeferredDelete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deferred[path] = struct{}{}
}

// CancelDeferredDelete removes a prefix from the shutdown cleanup set
func (s *ObjectStorage) CancelDeferredDelete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deferred, path)
}

// GetType returns the component type identifier
func (s *ObjectStorage) GetType() string {
	return storage.ComponentType
}

// Shutdown executes any pending deferred deletes
func (s *ObjectStorage) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	pending := make([]string, 0, len(s.deferred))
	for path := range s.deferred {
		pending = append(pending, path)
	}
	s.deferred = make(map[string]struct{})
	s.mu.Unlock()

	for _, path := range pending {
		if _, err := s.Delete(path, true); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Deferred delete failed")
		}
	}
	return nil
}

// objectWriter completes the upload when closed
type objectWriter struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *objectWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *objectWriter) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}
