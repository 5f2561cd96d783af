package commit

import (
	"github.com/gear6io/strata/pkg/errors"
)

// Package-specific error codes for policy parsing
var (
	ErrUnknownPolicy = errors.MustNewCode("commit.unknown_policy")
)

// OverwritePolicy selects how a write job treats pre-existing data at
// its target. The set is closed; Plan rejects anything else.
type OverwritePolicy int

const (
	// Append adds files alongside whatever already exists
	Append OverwritePolicy = iota
	// ErrorIfExists fails the job when the target is already materialized
	ErrorIfExists
	// OverwriteIfAbsent writes only when no matching partition exists;
	// otherwise the job is a successful no-op
	OverwriteIfAbsent
	// OverwriteAllMatching clears every partition matching the static
	// prefix before writing
	OverwriteAllMatching
	// OverwriteDynamicMatching performs no pre-delete; each produced
	// partition silently supersedes its previous contents
	OverwriteDynamicMatching
	// Ignore skips silently when the target exists, mirroring
	// OverwriteIfAbsent's no-op success
	Ignore
)

var policyNames = map[OverwritePolicy]string{
	Append:                   "append",
	ErrorIfExists:            "error_if_exists",
	OverwriteIfAbsent:        "overwrite_if_absent",
	OverwriteAllMatching:     "overwrite_all_matching",
	OverwriteDynamicMatching: "overwrite_dynamic_matching",
	Ignore:                   "ignore",
}

// String returns the policy name
func (p OverwritePolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePolicy resolves a policy from its configuration name
func ParsePolicy(name string) (OverwritePolicy, error) {
	for policy, n := range policyNames {
		if n == name {
			return policy, nil
		}
	}
	return Append, errors.New(ErrUnknownPolicy, "unknown overwrite policy", nil).AddContext("policy", name)
}
