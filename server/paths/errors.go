package paths

import "github.com/gear6io/strata/pkg/errors"

// Package-specific error codes for path management
var (
	ErrMalformedPartitionPath  = errors.MustNewCode("paths.malformed_partition_path")
	ErrDirectoryCreationFailed = errors.MustNewCode("paths.directory_creation_failed")
)
