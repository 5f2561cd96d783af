package commit

import (
	"github.com/gear6io/strata/server/partition"
	"github.com/gear6io/strata/server/paths"
	"github.com/rs/zerolog"
)

// Reconciler diffs the partitions a job actually produced against the
// partitions the catalog believed existed before the job, and emits the
// minimal add/remove instruction set.
type Reconciler struct {
	logger zerolog.Logger
}

// NewReconciler creates a partition reconciler
func NewReconciler(logger zerolog.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Reconcile computes the catalog delta for one finished job.
//
// Added is every produced partition not already matching; Removed is the
// initially-matching partitions the job did not reproduce, and only when
// the policy cleared them (OverwriteAllMatching). Dynamic overwrite never
// removes: it only adds or replaces partitions it actually wrote.
//
// When the job produced no paths but its static spec fully specifies the
// partition columns, the static partition itself is synthesized as
// produced. An empty write into a fully-specified partition must still
// register that partition, or the table would believe it absent.
func (r *Reconciler) Reconcile(job *Job, producedFragments []string) (*CatalogDelta, error) {
	fragments := producedFragments
	if len(fragments) == 0 && len(job.PartitionColumns) > 0 && len(job.StaticSpec) == len(job.PartitionColumns) {
		fragments = []string{paths.Fragment(job.StaticSpec, job.PartitionColumns)}
		r.logger.Debug().
			Str("table", job.Ident.String()).
			Str("partition", job.StaticSpec.CanonicalKey()).
			Msg("Empty write into fully-specified partition, registering it anyway")
	}

	produced := partition.NewSet()
	for _, fragment := range fragments {
		if fragment == "" {
			// unpartitioned write, nothing to record per partition
			continue
		}
		spec, err := paths.ParseFragment(fragment)
		if err != nil {
			return nil, err
		}
		produced.Add(spec)
	}

	initial := job.InitialMatching()

	delta := &CatalogDelta{
		Added:   produced.Diff(initial),
		Removed: partition.NewSet(),
	}
	if job.Policy == OverwriteAllMatching {
		delta.Removed = initial.Diff(produced)
	}
	return delta, nil
}
