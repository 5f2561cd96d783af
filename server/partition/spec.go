package partition

import (
	"sort"
	"strings"
)

// Spec is an assignment of partition-column names to string values.
// A null partition value is represented by the empty string; the path
// layer encodes it with a fixed sentinel on disk. Equality ignores
// column order but not name/value pairs.
type Spec map[string]string

// NewSpec builds a Spec from alternating column/value pairs
func NewSpec(pairs ...string) Spec {
	spec := make(Spec, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		spec[pairs[i]] = pairs[i+1]
	}
	return spec
}

// Equal reports whether two specs carry the same name/value pairs
func (s Spec) Equal(other Spec) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// CanonicalKey returns a deterministic string key for use in sets and maps.
// Column order does not affect the key.
func (s Spec) CanonicalKey() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+s[k])
	}
	return strings.Join(parts, "/")
}

// Clone returns an independent copy of the spec
func (s Spec) Clone() Spec {
	out := make(Spec, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// IsEmpty reports whether the spec assigns no columns
func (s Spec) IsEmpty() bool {
	return len(s) == 0
}

// Matches reports whether the spec satisfies every assignment in filter.
// An empty filter matches everything.
func (s Spec) Matches(filter Spec) bool {
	for k, v := range filter {
		sv, ok := s[k]
		if !ok || sv != v {
			return false
		}
	}
	return true
}

// CompatiblePrefix reports whether s's key set is a (possibly non-strict)
// prefix, in the declared column order, of other's key set, with matching
// values on the shared columns.
func (s Spec) CompatiblePrefix(other Spec, order []string) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}

	for i, col := range order {
		if i < len(small) {
			sv, ok := small[col]
			if !ok {
				return false
			}
			lv, ok := large[col]
			if !ok || lv != sv {
				return false
			}
			continue
		}
		if i < len(large) {
			if _, ok := large[col]; !ok {
				return false
			}
		}
	}

	return len(small) <= len(order) && len(large) <= len(order)
}

// Set is a collection of specs deduplicated by canonical key
type Set map[string]Spec

// NewSet builds a Set from the given specs
func NewSet(specs ...Spec) Set {
	set := make(Set, len(specs))
	for _, s := range specs {
		set.Add(s)
	}
	return set
}

// Add inserts a spec into the set
func (ss Set) Add(s Spec) {
	ss[s.CanonicalKey()] = s
}

// Contains reports whether an equal spec is in the set
func (ss Set) Contains(s Spec) bool {
	_, ok := ss[s.CanonicalKey()]
	return ok
}

// Diff returns the specs present in ss but not in other
func (ss Set) Diff(other Set) Set {
	out := make(Set)
	for key, s := range ss {
		if _, ok := other[key]; !ok {
			out[key] = s
		}
	}
	return out
}

// Intersect returns the specs present in both sets
func (ss Set) Intersect(other Set) Set {
	out := make(Set)
	for key, s := range ss {
		if _, ok := other[key]; ok {
			out[key] = s
		}
	}
	return out
}

// Specs returns the set contents in canonical-key order
func (ss Set) Specs() []Spec {
	keys := make([]string, 0, len(ss))
	for k := range ss {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Spec, 0, len(keys))
	for _, k := range keys {
		out = append(out, ss[k])
	}
	return out
}

// Len returns the number of specs in the set
func (ss Set) Len() int {
	return len(ss)
}
