package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecEqualIgnoresOrder(t *testing.T) {
	a := NewSpec("year", "2024", "month", "06")
	b := NewSpec("month", "06", "year", "2024")
	c := NewSpec("year", "2024", "month", "07")

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(NewSpec("year", "2024")))
}

func TestSpecCanonicalKey(t *testing.T) {
	a := NewSpec("year", "2024", "month", "06")
	b := NewSpec("month", "06", "year", "2024")

	assert.Equal(t, a.CanonicalKey(), b.CanonicalKey())
	assert.Equal(t, "month=06/year=2024", a.CanonicalKey())
	assert.Equal(t, "", Spec{}.CanonicalKey())
}

func TestSpecMatches(t *testing.T) {
	spec := NewSpec("year", "2024", "month", "06", "day", "15")

	assert.True(t, spec.Matches(Spec{}))
	assert.True(t, spec.Matches(NewSpec("year", "2024")))
	assert.True(t, spec.Matches(NewSpec("year", "2024", "month", "06")))
	assert.False(t, spec.Matches(NewSpec("year", "2023")))
	assert.False(t, spec.Matches(NewSpec("region", "emea")))
}

func TestSpecCompatiblePrefix(t *testing.T) {
	order := []string{"year", "month", "day"}

	full := NewSpec("year", "2024", "month", "06", "day", "15")
	prefix := NewSpec("year", "2024")
	mismatched := NewSpec("year", "2023")
	gap := NewSpec("year", "2024", "day", "15")

	assert.True(t, prefix.CompatiblePrefix(full, order))
	assert.True(t, full.CompatiblePrefix(prefix, order))
	assert.True(t, full.CompatiblePrefix(full, order))
	assert.True(t, Spec{}.CompatiblePrefix(full, order))
	assert.False(t, mismatched.CompatiblePrefix(full, order))
	assert.False(t, gap.CompatiblePrefix(full, order))
}

func TestSetDedupAndDiff(t *testing.T) {
	set := NewSet(
		NewSpec("year", "2024", "month", "06"),
		NewSpec("month", "06", "year", "2024"), // duplicate under canonical key
		NewSpec("year", "2024", "month", "07"),
	)
	require.Equal(t, 2, set.Len())

	other := NewSet(NewSpec("year", "2024", "month", "06"))

	diff := set.Diff(other)
	require.Equal(t, 1, diff.Len())
	assert.True(t, diff.Contains(NewSpec("year", "2024", "month", "07")))

	inter := set.Intersect(other)
	require.Equal(t, 1, inter.Len())
	assert.True(t, inter.Contains(NewSpec("year", "2024", "month", "06")))
}

func TestSetSpecsDeterministicOrder(t *testing.T) {
	set := NewSet(
		NewSpec("year", "2025"),
		NewSpec("year", "2023"),
		NewSpec("year", "2024"),
	)

	specs := set.Specs()
	require.Len(t, specs, 3)
	assert.Equal(t, "2023", specs[0]["year"])
	assert.Equal(t, "2024", specs[1]["year"])
	assert.Equal(t, "2025", specs[2]["year"])
}
