package commit

import (
	"path/filepath"
	"testing"

	"github.com/gear6io/strata/pkg/errors"
	catalogshared "github.com/gear6io/strata/server/catalog/shared"
	"github.com/gear6io/strata/server/index"
	"github.com/gear6io/strata/server/partition"
	"github.com/gear6io/strata/server/paths"
	"github.com/gear6io/strata/server/storage/filesystem"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIdent = catalogshared.TableIdent{Database: "analytics", Table: "events"}

func newTestCoordinator(t *testing.T) (*Coordinator, paths.PathManager) {
	t.Helper()
	pm := paths.NewManager(t.TempDir())
	fs := filesystem.NewFileStorage(zerolog.Nop())
	return NewCoordinator(fs, pm, zerolog.Nop()), pm
}

func newJob(policy OverwritePolicy, staticSpec partition.Spec, existing []index.PartitionDirectory) *Job {
	return &Job{
		Ident:            testIdent,
		Policy:           policy,
		StaticSpec:       staticSpec,
		PartitionColumns: []string{"region", "day"},
		Existing:         existing,
	}
}

func TestPlanAppend(t *testing.T) {
	c, _ := newTestCoordinator(t)

	plan, err := c.Plan(newJob(Append, nil, nil))
	require.NoError(t, err)
	assert.True(t, plan.Proceed)
	assert.Empty(t, plan.Deletions)
	assert.False(t, plan.UsesDynamicOverwrite)
}

func TestPlanErrorIfExistsWithMatches(t *testing.T) {
	c, pm := newTestCoordinator(t)

	existing := []index.PartitionDirectory{{
		Spec: partition.NewSpec("region", "eu", "day", "2024-01-01"),
		Path: pm.GetPartitionPath(testIdent.Database, testIdent.Table, partition.NewSpec("region", "eu", "day", "2024-01-01"), []string{"region", "day"}),
	}}

	_, err := c.Plan(newJob(ErrorIfExists, partition.NewSpec("region", "eu"), existing))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrOutputAlreadyExists))
}

func TestPlanErrorIfExistsCleanTarget(t *testing.T) {
	c, _ := newTestCoordinator(t)

	plan, err := c.Plan(newJob(ErrorIfExists, partition.NewSpec("region", "eu"), nil))
	require.NoError(t, err)
	assert.True(t, plan.Proceed)
}

func TestPlanSkipOnAbsentPolicies(t *testing.T) {
	c, _ := newTestCoordinator(t)
	existing := []index.PartitionDirectory{{Spec: partition.NewSpec("region", "eu", "day", "2024-01-01")}}

	for _, policy := range []OverwritePolicy{OverwriteIfAbsent, Ignore} {
		t.Run(policy.String(), func(t *testing.T) {
			plan, err := c.Plan(newJob(policy, partition.NewSpec("region", "eu"), existing))
			require.NoError(t, err)
			assert.False(t, plan.Proceed)

			// Without matches the same policies proceed
			plan, err = c.Plan(newJob(policy, partition.NewSpec("region", "eu"), nil))
			require.NoError(t, err)
			assert.True(t, plan.Proceed)
		})
	}
}

func TestPlanOverwriteAllMatchingDeletions(t *testing.T) {
	c, pm := newTestCoordinator(t)
	static := partition.NewSpec("region", "eu")
	order := []string{"region", "day"}

	defaultSpec := partition.NewSpec("region", "eu", "day", "2024-01-01")
	customSpec := partition.NewSpec("region", "eu", "day", "2024-01-02")
	existing := []index.PartitionDirectory{
		{Spec: defaultSpec, Path: pm.GetPartitionPath(testIdent.Database, testIdent.Table, defaultSpec, order)},
		{Spec: customSpec, Path: "/custom/eu/day2"},
	}

	plan, err := c.Plan(newJob(OverwriteAllMatching, static, existing))
	require.NoError(t, err)
	require.Len(t, plan.Deletions, 2)
	assert.Equal(t, pm.GetPartitionPath(testIdent.Database, testIdent.Table, static, order), plan.Deletions[0])
	assert.Equal(t, "/custom/eu/day2", plan.Deletions[1])
}

func TestPlanCustomLocationMismatch(t *testing.T) {
	c, _ := newTestCoordinator(t)

	// Custom-located partition missing the leading partition column:
	// its spec cannot restrict to the static prefix keys
	rogue := index.PartitionDirectory{
		Spec: partition.NewSpec("day", "2024-01-01"),
		Path: "/custom/rogue",
	}

	_, err := c.Plan(newJob(OverwriteAllMatching, partition.NewSpec("region", "eu"), []index.PartitionDirectory{rogue}))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrCustomLocationMismatch))
}

func TestPlanDynamicOverwrite(t *testing.T) {
	c, _ := newTestCoordinator(t)

	plan, err := c.Plan(newJob(OverwriteDynamicMatching, nil, nil))
	require.NoError(t, err)
	assert.True(t, plan.Proceed)
	assert.Empty(t, plan.Deletions)
	assert.True(t, plan.UsesDynamicOverwrite)
}

func TestDeleteMatchingPartitionsClearsExisting(t *testing.T) {
	c, pm := newTestCoordinator(t)
	fs := filesystem.NewFileStorage(zerolog.Nop())

	target := filepath.Join(pm.GetTablePath(testIdent.Database, testIdent.Table), "region=eu")
	require.NoError(t, fs.MakeDirectories(filepath.Join(target, "day=2024-01-01"), 0755))

	plan := &CommitPlan{Proceed: true, Deletions: []string{target}}
	require.NoError(t, c.DeleteMatchingPartitions(plan))

	exists, err := fs.Exists(target)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteMatchingPartitionsMissingTargetIsFine(t *testing.T) {
	c, pm := newTestCoordinator(t)

	plan := &CommitPlan{
		Proceed:   true,
		Deletions: []string{filepath.Join(pm.GetTablePath(testIdent.Database, testIdent.Table), "region=eu")},
	}
	assert.NoError(t, c.DeleteMatchingPartitions(plan))
}

func TestReconcileAddsProducedPartitions(t *testing.T) {
	r := NewReconciler(zerolog.Nop())

	job := newJob(Append, nil, nil)
	delta, err := r.Reconcile(job, []string{"region=eu/day=2024-01-01", "region=us/day=2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, 2, delta.Added.Len())
	assert.Equal(t, 0, delta.Removed.Len())
}

func TestReconcileDynamicNeverRemoves(t *testing.T) {
	r := NewReconciler(zerolog.Nop())

	initial := []index.PartitionDirectory{
		{Spec: partition.NewSpec("region", "eu", "day", "2024-01-01")},
		{Spec: partition.NewSpec("region", "us", "day", "2024-01-01")},
	}

	cases := [][]string{
		nil,
		{"region=eu/day=2024-01-01"},
		{"region=eu/day=2024-01-02", "region=ap/day=2024-01-01"},
	}
	for _, produced := range cases {
		delta, err := r.Reconcile(newJob(OverwriteDynamicMatching, nil, initial), produced)
		require.NoError(t, err)
		assert.Equal(t, 0, delta.Removed.Len(), "produced=%v", produced)
	}
}

func TestReconcileOverwriteAllRemovesStale(t *testing.T) {
	r := NewReconciler(zerolog.Nop())

	eu := partition.NewSpec("region", "eu", "day", "2024-01-01")
	us := partition.NewSpec("region", "us", "day", "2024-01-01")
	initial := []index.PartitionDirectory{{Spec: eu}, {Spec: us}}

	delta, err := r.Reconcile(newJob(OverwriteAllMatching, nil, initial), []string{"region=eu/day=2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, 0, delta.Added.Len())
	require.Equal(t, 1, delta.Removed.Len())
	assert.True(t, delta.Removed.Contains(us))
}

func TestReconcileDeltaDisjoint(t *testing.T) {
	r := NewReconciler(zerolog.Nop())

	initial := []index.PartitionDirectory{
		{Spec: partition.NewSpec("region", "eu", "day", "2024-01-01")},
		{Spec: partition.NewSpec("region", "us", "day", "2024-01-01")},
	}
	produced := []string{"region=eu/day=2024-01-01", "region=ap/day=2024-01-01"}

	for policy := range policyNames {
		delta, err := r.Reconcile(newJob(policy, nil, initial), produced)
		require.NoError(t, err)
		for _, spec := range delta.Added.Specs() {
			assert.False(t, delta.Removed.Contains(spec), "policy %s: %s in both added and removed", policy, spec.CanonicalKey())
		}
	}
}

func TestReconcileEmptyStaticWriteRegistersPartition(t *testing.T) {
	r := NewReconciler(zerolog.Nop())

	static := partition.NewSpec("region", "eu", "day", "2024-01-01")
	job := newJob(OverwriteAllMatching, static, nil)

	delta, err := r.Reconcile(job, nil)
	require.NoError(t, err)
	require.Equal(t, 1, delta.Added.Len())
	assert.True(t, delta.Added.Contains(static))
}

func TestReconcileEmptyPartialStaticAddsNothing(t *testing.T) {
	r := NewReconciler(zerolog.Nop())

	// Static prefix does not fully specify the partition columns, so an
	// empty write registers nothing
	delta, err := r.Reconcile(newJob(OverwriteAllMatching, partition.NewSpec("region", "eu"), nil), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, delta.Added.Len())
}

func TestParsePolicy(t *testing.T) {
	policy, err := ParsePolicy("overwrite_dynamic_matching")
	require.NoError(t, err)
	assert.Equal(t, OverwriteDynamicMatching, policy)

	_, err = ParsePolicy("truncate")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrUnknownPolicy))
}
