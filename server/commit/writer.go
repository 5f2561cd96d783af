package commit

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/gear6io/strata/pkg/errors"
	"github.com/gear6io/strata/server/partition"
	"github.com/gear6io/strata/server/paths"
	"github.com/gear6io/strata/server/storage"
	"github.com/gear6io/strata/utils"
	"github.com/rs/zerolog"
)

// Package-specific error codes for the row writer
var (
	ErrWriteFailed = errors.MustNewCode("writer.write_failed")
)

// BucketSpec describes optional bucketing of output files. The reference
// writer records it in file naming only; columnar encoders may hash rows
// across bucket files.
type BucketSpec struct {
	Columns []string
	Buckets int
}

// WriteRequest is one job's row-write instruction. OutputRoot is the
// staging write path; produced partition directories are laid out under
// it using the same fragment encoding as the final table.
type WriteRequest struct {
	Rows             []map[string]interface{}
	OutputRoot       string
	PartitionColumns []string
	StaticSpec       partition.Spec
	BucketSpec       *BucketSpec
	Options          map[string]string
}

// WriteResult reports the relative partition-path fragments actually
// produced. The writer guarantees the files behind them are durable
// before returning.
type WriteResult struct {
	Fragments []string
}

// RowWriter is the writer capability: it streams rows into per-partition
// files under the staging root. Encoders are interchangeable behind this
// interface.
type RowWriter interface {
	Write(ctx context.Context, req *WriteRequest) (*WriteResult, error)
}

// JSONRowWriter is the reference RowWriter. It groups rows by their
// partition assignment and writes each group as one ULID-named file of
// JSON lines.
type JSONRowWriter struct {
	fs     storage.FileSystem
	logger zerolog.Logger
}

// NewJSONRowWriter creates the reference JSON row writer
func NewJSONRowWriter(fs storage.FileSystem, logger zerolog.Logger) *JSONRowWriter {
	return &JSONRowWriter{fs: fs, logger: logger}
}

// rowSpec derives the full partition assignment of one row: static
// values first, dynamic columns read from the row itself. A missing or
// nil dynamic value becomes the null partition.
func rowSpec(row map[string]interface{}, req *WriteRequest) partition.Spec {
	spec := req.StaticSpec.Clone()
	for _, col := range req.PartitionColumns {
		if _, ok := spec[col]; ok {
			continue
		}
		value := ""
		if v, ok := row[col]; ok && v != nil {
			value = fmt.Sprintf("%v", v)
		}
		spec[col] = value
	}
	return spec
}

// Write groups rows by partition and emits one JSON-lines batch file per
// group under the staging root
func (w *JSONRowWriter) Write(ctx context.Context, req *WriteRequest) (*WriteResult, error) {
	groups := make(map[string][]map[string]interface{})
	for _, row := range req.Rows {
		fragment := paths.Fragment(rowSpec(row, req), req.PartitionColumns)
		groups[fragment] = append(groups[fragment], row)
	}

	fragments := make([]string, 0, len(groups))
	for fragment := range groups {
		fragments = append(fragments, fragment)
	}
	sort.Strings(fragments)

	for _, fragment := range fragments {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(ErrWriteFailed, "write cancelled", err)
		}
		if err := w.writeGroup(req.OutputRoot, fragment, groups[fragment]); err != nil {
			return nil, err
		}
	}

	w.logger.Debug().
		Int("rows", len(req.Rows)).
		Int("partitions", len(fragments)).
		Msg("Staged row batches")

	return &WriteResult{Fragments: fragments}, nil
}

func (w *JSONRowWriter) writeGroup(outputRoot, fragment string, rows []map[string]interface{}) error {
	dir := outputRoot
	if fragment != "" {
		dir = filepath.Join(outputRoot, filepath.FromSlash(fragment))
	}
	if err := w.fs.MakeDirectories(dir, 0755); err != nil {
		return errors.New(ErrWriteFailed, "failed to create partition directory", err).AddContext("path", dir)
	}

	filePath := filepath.Join(dir, "batch-"+utils.GenerateULID()+".json")
	out, err := w.fs.OpenForWrite(filePath)
	if err != nil {
		return errors.New(ErrWriteFailed, "failed to open batch file", err).AddContext("path", filePath)
	}

	encoder := json.NewEncoder(out)
	for _, row := range rows {
		if err := encoder.Encode(row); err != nil {
			out.Close()
			return errors.New(ErrWriteFailed, "failed to encode row", err).AddContext("path", filePath)
		}
	}

	if err := out.Close(); err != nil {
		return errors.New(ErrWriteFailed, "failed to finalize batch file", err).AddContext("path", filePath)
	}
	return nil
}
