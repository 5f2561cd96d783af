package sqlite

import (
	"context"
	"testing"

	"github.com/gear6io/strata/pkg/errors"
	catalogshared "github.com/gear6io/strata/server/catalog/shared"
	"github.com/gear6io/strata/server/partition"
	"github.com/gear6io/strata/server/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	pm := paths.NewManager(t.TempDir())
	cat, err := NewCatalog(pm)
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	return cat
}

func TestCreateAndGetTable(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()
	ident := catalogshared.TableIdent{Database: "analytics", Table: "events"}

	require.NoError(t, cat.CreateTable(ctx, ident, []string{"region", "day"}))

	info, err := cat.GetTable(ctx, ident)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "day"}, info.PartitionColumns)

	err = cat.CreateTable(ctx, ident, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, catalogshared.ErrTableAlreadyExists))

	_, err = cat.GetTable(ctx, catalogshared.TableIdent{Database: "analytics", Table: "missing"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, catalogshared.ErrTableNotFound))
}

func TestPartitionLifecycle(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()
	ident := catalogshared.TableIdent{Database: "analytics", Table: "events"}
	require.NoError(t, cat.CreateTable(ctx, ident, []string{"region"}))

	eu := partition.NewSpec("region", "eu")
	us := partition.NewSpec("region", "us")
	require.NoError(t, cat.AddPartitions(ctx, ident, []catalogshared.PartitionEntry{
		{Spec: eu},
		{Spec: us, Location: "/custom/us"},
	}))

	all, err := cat.ListPartitions(ctx, ident, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := cat.ListPartitions(ctx, ident, us)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "/custom/us", filtered[0].Location)

	// Re-adding an equal spec replaces the entry
	require.NoError(t, cat.AddPartitions(ctx, ident, []catalogshared.PartitionEntry{
		{Spec: eu, Location: "/relocated"},
	}))
	filtered, err = cat.ListPartitions(ctx, ident, eu)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "/relocated", filtered[0].Location)

	require.NoError(t, cat.DropPartitions(ctx, ident, []partition.Spec{eu}, true))
	all, err = cat.ListPartitions(ctx, ident, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Spec.Equal(us))
}

func TestListTables(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, cat.CreateTable(ctx, catalogshared.TableIdent{Database: "analytics", Table: "events"}, nil))
	require.NoError(t, cat.CreateTable(ctx, catalogshared.TableIdent{Database: "analytics", Table: "clicks"}, nil))
	require.NoError(t, cat.CreateTable(ctx, catalogshared.TableIdent{Database: "ops", Table: "audit"}, nil))

	idents, err := cat.ListTables(ctx, "analytics")
	require.NoError(t, err)
	require.Len(t, idents, 2)
	assert.Equal(t, "clicks", idents[0].Table)
}
