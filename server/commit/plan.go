package commit

import (
	catalogshared "github.com/gear6io/strata/server/catalog/shared"
	"github.com/gear6io/strata/server/index"
	"github.com/gear6io/strata/server/partition"
)

// Job carries the resolved inputs of one write job. Existing holds the
// partitions matching the static spec at planning time; it is the
// baseline the reconciler diffs against after the write.
type Job struct {
	Ident            catalogshared.TableIdent
	Policy           OverwritePolicy
	StaticSpec       partition.Spec
	PartitionColumns []string
	Existing         []index.PartitionDirectory
}

// InitialMatching returns the specs of the partitions that matched the
// static prefix before the job ran
func (j *Job) InitialMatching() partition.Set {
	set := partition.NewSet()
	for _, dir := range j.Existing {
		set.Add(dir.Spec)
	}
	return set
}

// CommitPlan is the resolved decision for one job. Computed once during
// planning and immutable thereafter.
type CommitPlan struct {
	// Proceed is false when the job is a successful no-op (skip)
	Proceed bool
	// Deletions are the paths cleared before any row is written
	Deletions []string
	// OutputRoot is the table data root files are committed into
	OutputRoot string
	// UsesDynamicOverwrite marks per-partition supersede at commit time
	UsesDynamicOverwrite bool
}

// CatalogDelta is the metadata instruction set produced by reconciling a
// finished job: Added and Removed are always disjoint, and Removed is
// empty unless the policy cleared matching partitions.
type CatalogDelta struct {
	Added   partition.Set
	Removed partition.Set
}

// IsEmpty reports whether the delta carries no catalog mutation
func (d *CatalogDelta) IsEmpty() bool {
	return d.Added.Len() == 0 && d.Removed.Len() == 0
}
