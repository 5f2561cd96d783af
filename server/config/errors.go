package config

import "github.com/gear6io/strata/pkg/errors"

// Package-specific error codes for configuration
var (
	ErrConfigFileReadFailed     = errors.MustNewCode("config.file_read_failed")
	ErrConfigFileParseFailed    = errors.MustNewCode("config.file_parse_failed")
	ErrConfigFileMarshalFailed  = errors.MustNewCode("config.file_marshal_failed")
	ErrConfigFileWriteFailed    = errors.MustNewCode("config.file_write_failed")
	ErrConfigValidationFailed   = errors.MustNewCode("config.validation_failed")
	ErrStorageValidationFailed  = errors.MustNewCode("config.storage_validation_failed")
	ErrCatalogValidationFailed  = errors.MustNewCode("config.catalog_validation_failed")
	ErrStagingValidationFailed  = errors.MustNewCode("config.staging_validation_failed")
	ErrDataPathRequired         = errors.MustNewCode("config.data_path_required")
	ErrCatalogTypeRequired      = errors.MustNewCode("config.catalog_type_required")
	ErrStagingSchemeInvalid     = errors.MustNewCode("config.staging_scheme_invalid")
	ErrLogDirCreationFailed     = errors.MustNewCode("config.log_dir_creation_failed")
	ErrLogFileOpenFailed        = errors.MustNewCode("config.log_file_open_failed")
	ErrLogFilePathRequired      = errors.MustNewCode("config.log_file_path_required")
	ErrLogRotationFailed        = errors.MustNewCode("config.log_rotation_failed")
	ErrLogRotationCheckFailed   = errors.MustNewCode("config.log_rotation_check_failed")
	ErrLogFileStatFailed        = errors.MustNewCode("config.log_file_stat_failed")
	ErrLogBackupReadFailed      = errors.MustNewCode("config.log_backup_read_failed")
	ErrLogBackupRemoveFailed    = errors.MustNewCode("config.log_backup_remove_failed")
	ErrLogCleanupFailed         = errors.MustNewCode("config.log_cleanup_failed")
	ErrLogFileWriterSetupFailed = errors.MustNewCode("config.log_file_writer_setup_failed")
)
