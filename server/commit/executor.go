package commit

import (
	"context"

	catalogshared "github.com/gear6io/strata/server/catalog/shared"
	"github.com/gear6io/strata/server/index"
	"github.com/gear6io/strata/server/partition"
	"github.com/gear6io/strata/server/paths"
	"github.com/gear6io/strata/server/staging"
	"github.com/gear6io/strata/server/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// InsertRequest is one insert job handed to the executor
type InsertRequest struct {
	Table      catalogshared.TableIdent
	Policy     OverwritePolicy
	StaticSpec partition.Spec
	Rows       []map[string]interface{}
	BucketSpec *BucketSpec
	Options    map[string]string
	WorkerID   string
}

// InsertOutcome reports what one insert job did. Skipped distinguishes a
// successful no-op (policy found the target already present) from both
// failure and an actual write.
type InsertOutcome struct {
	JobID             string
	PartitionsAdded   []partition.Spec
	PartitionsRemoved []partition.Spec
	Skipped           bool
}

// Executor runs the full insert sequence: list existing state, plan,
// pre-delete, stage, write, finalize, reconcile, apply catalog delta,
// refresh the index, release staging. Catalog metadata is only touched
// after every file is durably visible at its final location.
type Executor struct {
	catalog     catalogshared.Catalog
	fs          storage.FileSystem
	pathManager paths.PathManager
	staging     *staging.Manager
	coordinator *Coordinator
	writer      RowWriter
	logger      zerolog.Logger
}

// NewExecutor creates an insert executor
func NewExecutor(cat catalogshared.Catalog, fs storage.FileSystem, pathManager paths.PathManager, stagingManager *staging.Manager, writer RowWriter, logger zerolog.Logger) *Executor {
	return &Executor{
		catalog:     cat,
		fs:          fs,
		pathManager: pathManager,
		staging:     stagingManager,
		coordinator: NewCoordinator(fs, pathManager, logger),
		writer:      writer,
		logger:      logger,
	}
}

// Insert executes one write job end to end
func (e *Executor) Insert(ctx context.Context, req *InsertRequest) (*InsertOutcome, error) {
	jobID := uuid.NewString()
	logger := e.logger.With().Str("job_id", jobID).Str("table", req.Table.String()).Logger()

	info, err := e.catalog.GetTable(ctx, req.Table)
	if err != nil {
		return nil, err
	}

	idx := index.NewCatalogIndex(e.catalog, e.fs, e.pathManager, req.Table, logger)
	existing, err := idx.ListFiles(ctx, req.StaticSpec, nil)
	if err != nil {
		return nil, err
	}

	job := &Job{
		Ident:            req.Table,
		Policy:           req.Policy,
		StaticSpec:       req.StaticSpec,
		PartitionColumns: info.PartitionColumns,
		Existing:         existing,
	}

	plan, err := e.coordinator.Plan(job)
	if err != nil {
		return nil, err
	}
	if !plan.Proceed {
		logger.Info().Str("policy", req.Policy.String()).Msg("Insert skipped, matching partition already exists")
		return &InsertOutcome{JobID: jobID, Skipped: true}, nil
	}

	// Pre-deletion must complete before the writer produces a single
	// file at the same location
	if err := e.coordinator.DeleteMatchingPartitions(plan); err != nil {
		return nil, err
	}

	if err := e.fs.MakeDirectories(plan.OutputRoot, 0755); err != nil {
		return nil, err
	}

	stagingDir, err := e.staging.Resolve(plan.OutputRoot, jobID, req.WorkerID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if status := e.staging.Release(stagingDir); status == staging.StatusDeletionFailed {
			logger.Warn().Str("path", stagingDir.CleanupRoot).Msg("Staging cleanup failed, deferred delete will retry on shutdown")
		}
	}()

	result, err := e.writer.Write(ctx, &WriteRequest{
		Rows:             req.Rows,
		OutputRoot:       stagingDir.WritePath,
		PartitionColumns: info.PartitionColumns,
		StaticSpec:       req.StaticSpec,
		BucketSpec:       req.BucketSpec,
		Options:          req.Options,
	})
	if err != nil {
		return nil, err
	}

	delta, err := e.coordinator.Commit(job, plan, stagingDir, result)
	if err != nil {
		return nil, err
	}

	if err := e.applyDelta(ctx, req.Table, delta); err != nil {
		return nil, err
	}

	// Readers must observe files and catalog in agreement, so the index
	// refresh comes after the catalog update
	idx.Refresh()

	outcome := &InsertOutcome{
		JobID:             jobID,
		PartitionsAdded:   delta.Added.Specs(),
		PartitionsRemoved: delta.Removed.Specs(),
	}
	logger.Info().
		Int("added", len(outcome.PartitionsAdded)).
		Int("removed", len(outcome.PartitionsRemoved)).
		Msg("Insert committed")
	return outcome, nil
}

// applyDelta records the reconciled partition changes in the catalog,
// exactly once per successful job. Files are already handled, so drops
// retain data.
func (e *Executor) applyDelta(ctx context.Context, ident catalogshared.TableIdent, delta *CatalogDelta) error {
	if delta.Removed.Len() > 0 {
		if err := e.catalog.DropPartitions(ctx, ident, delta.Removed.Specs(), true); err != nil {
			return err
		}
	}
	if delta.Added.Len() > 0 {
		entries := make([]catalogshared.PartitionEntry, 0, delta.Added.Len())
		for _, spec := range delta.Added.Specs() {
			entries = append(entries, catalogshared.PartitionEntry{Spec: spec})
		}
		if err := e.catalog.AddPartitions(ctx, ident, entries); err != nil {
			return err
		}
	}
	return nil
}
