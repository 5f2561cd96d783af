package commit

import (
	"path/filepath"

	"github.com/gear6io/strata/pkg/errors"
	"github.com/gear6io/strata/server/paths"
	"github.com/gear6io/strata/server/staging"
	"github.com/gear6io/strata/server/storage"
	"github.com/rs/zerolog"
)

// Package-specific error codes for commit coordination
var (
	ErrOutputAlreadyExists    = errors.MustNewCode("commit.output_already_exists")
	ErrCustomLocationMismatch = errors.MustNewCode("commit.custom_location_mismatch")
	ErrClearOutputFailed      = errors.MustNewCode("commit.clear_output_failed")
	ErrClearPartitionFailed   = errors.MustNewCode("commit.clear_partition_failed")
	ErrFinalizeFailed         = errors.MustNewCode("commit.finalize_failed")
)

// Coordinator orchestrates one write job's plan, pre-delete, and atomic
// visibility transition. Planning, deletion, and finalization are
// sequential; row production in between belongs to the writer capability
// and is treated as an opaque, already-synchronized step.
type Coordinator struct {
	fs          storage.FileSystem
	pathManager paths.PathManager
	reconciler  *Reconciler
	logger      zerolog.Logger
}

// NewCoordinator creates a commit coordinator
func NewCoordinator(fs storage.FileSystem, pathManager paths.PathManager, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		fs:          fs,
		pathManager: pathManager,
		reconciler:  NewReconciler(logger),
		logger:      logger,
	}
}

// staticPrefixPath is the directory the static partition spec addresses
func (c *Coordinator) staticPrefixPath(job *Job) string {
	return c.pathManager.GetPartitionPath(job.Ident.Database, job.Ident.Table, job.StaticSpec, job.PartitionColumns)
}

// Plan resolves the commit decision for one job against current table
// state. It never mutates anything; deletions are carried out separately
// so their ordering relative to the write is explicit.
func (c *Coordinator) Plan(job *Job) (*CommitPlan, error) {
	outputRoot := c.pathManager.GetTablePath(job.Ident.Database, job.Ident.Table)

	plan := &CommitPlan{
		Proceed:    true,
		OutputRoot: outputRoot,
	}

	switch job.Policy {
	case Append:
		return plan, nil

	case ErrorIfExists:
		if len(job.Existing) > 0 {
			return nil, errors.New(ErrOutputAlreadyExists, "target partitions already exist", nil).
				AddContext("table", job.Ident.String()).
				AddContext("partition", job.StaticSpec.CanonicalKey())
		}
		if !job.StaticSpec.IsEmpty() {
			prefixPath := c.staticPrefixPath(job)
			exists, err := c.fs.Exists(prefixPath)
			if err != nil {
				return nil, errors.New(ErrFinalizeFailed, "failed to probe target path", err).AddContext("path", prefixPath)
			}
			if exists {
				return nil, errors.New(ErrOutputAlreadyExists, "target path already materialized", nil).
					AddContext("path", prefixPath)
			}
		}
		return plan, nil

	case OverwriteIfAbsent, Ignore:
		// Existing matches turn the job into a successful no-op, never
		// an error
		if len(job.Existing) > 0 {
			plan.Proceed = false
		}
		return plan, nil

	case OverwriteAllMatching:
		plan.Deletions = append(plan.Deletions, c.staticPrefixPath(job))
		for _, dir := range job.Existing {
			defaultPath := c.pathManager.GetPartitionPath(job.Ident.Database, job.Ident.Table, dir.Spec, job.PartitionColumns)
			if dir.Path == defaultPath {
				continue
			}
			// A custom-located partition outside the static prefix's key
			// structure means the catalog metadata is corrupt
			if !job.StaticSpec.CompatiblePrefix(dir.Spec, job.PartitionColumns) {
				return nil, errors.New(ErrCustomLocationMismatch, "custom-located partition does not restrict to the static partition keys", nil).
					AddContext("partition", dir.Spec.CanonicalKey()).
					AddContext("location", dir.Path)
			}
			plan.Deletions = append(plan.Deletions, dir.Path)
		}
		return plan, nil

	case OverwriteDynamicMatching:
		plan.UsesDynamicOverwrite = true
		return plan, nil

	default:
		return nil, errors.New(ErrUnknownPolicy, "unknown overwrite policy", nil).AddContext("policy", job.Policy.String())
	}
}

// DeleteMatchingPartitions clears the plan's deletion targets. It must
// complete before the writer produces any file at the same location. Any
// unsuccessful delete is fatal: aborting here leaves previously-committed
// state untouched because nothing has been written yet.
func (c *Coordinator) DeleteMatchingPartitions(plan *CommitPlan) error {
	for i, path := range plan.Deletions {
		exists, err := c.fs.Exists(path)
		if err == nil && !exists {
			continue
		}

		var deleted bool
		if err == nil {
			deleted, err = c.fs.Delete(path, true)
		}
		if err != nil || !deleted {
			// The first deletion target is always the static output
			// directory; the rest are custom-located partitions
			code := ErrClearPartitionFailed
			msg := "cannot clear partition directory"
			if i == 0 {
				code = ErrClearOutputFailed
				msg = "cannot clear output directory"
			}
			return errors.New(code, msg, err).AddContext("path", path)
		}

		c.logger.Debug().Str("path", path).Msg("Cleared partition directory before write")
	}
	return nil
}

// Commit finalizes file visibility by renaming the staged output into
// place, then returns the catalog delta. Under dynamic overwrite each
// produced partition's previous contents are superseded here; for static
// overwrite the clearing already happened before the write.
func (c *Coordinator) Commit(job *Job, plan *CommitPlan, stagingDir *staging.Directory, result *WriteResult) (*CatalogDelta, error) {
	for _, fragment := range result.Fragments {
		src := stagingDir.WritePath
		dst := plan.OutputRoot
		if fragment != "" {
			src = filepath.Join(stagingDir.WritePath, filepath.FromSlash(fragment))
			dst = filepath.Join(plan.OutputRoot, filepath.FromSlash(fragment))
		}

		if plan.UsesDynamicOverwrite && fragment != "" {
			exists, err := c.fs.Exists(dst)
			if err != nil {
				return nil, errors.New(ErrClearPartitionFailed, "failed to probe partition for supersede", err).AddContext("path", dst)
			}
			if exists {
				deleted, err := c.fs.Delete(dst, true)
				if err != nil || !deleted {
					return nil, errors.New(ErrClearPartitionFailed, "cannot supersede partition directory", err).AddContext("path", dst)
				}
			}
		}

		if err := c.moveTree(src, dst); err != nil {
			return nil, err
		}
	}

	return c.reconciler.Reconcile(job, result.Fragments)
}

// moveTree renames src into dst. When dst already exists (append into a
// live partition), the staged files are moved in one by one instead.
func (c *Coordinator) moveTree(src, dst string) error {
	srcExists, err := c.fs.Exists(src)
	if err != nil {
		return errors.New(ErrFinalizeFailed, "failed to probe staged output", err).AddContext("path", src)
	}
	if !srcExists || src == dst {
		return nil
	}

	dstExists, err := c.fs.Exists(dst)
	if err != nil {
		return errors.New(ErrFinalizeFailed, "failed to probe final output", err).AddContext("path", dst)
	}

	if !dstExists {
		if err := c.fs.MakeDirectories(filepath.Dir(dst), 0755); err != nil {
			return errors.New(ErrFinalizeFailed, "failed to create final parent directory", err).AddContext("path", dst)
		}
		renamed, err := c.fs.Rename(src, dst)
		if err != nil || !renamed {
			return errors.New(ErrFinalizeFailed, "failed to rename staged output into place", err).
				AddContext("src", src).
				AddContext("dst", dst)
		}
		return nil
	}

	files, err := c.fs.ListFiles(src)
	if err != nil {
		return errors.New(ErrFinalizeFailed, "failed to list staged files", err).AddContext("path", src)
	}
	for _, f := range files {
		target := filepath.Join(dst, filepath.Base(f.Path))
		renamed, err := c.fs.Rename(f.Path, target)
		if err != nil || !renamed {
			return errors.New(ErrFinalizeFailed, "failed to move staged file into place", err).
				AddContext("src", f.Path).
				AddContext("dst", target)
		}
	}
	return nil
}
