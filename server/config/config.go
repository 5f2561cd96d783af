package config

import (
	"os"

	"github.com/gear6io/strata/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Staging addressing schemes. Legacy roots staging directories at a scratch
// location outside the table tree; current roots them under the table's
// containing directory, hidden from partition discovery.
const (
	StagingSchemeLegacy  = "legacy"
	StagingSchemeCurrent = "current"
)

// Config represents the engine configuration
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`      // "json" or "console"
	FilePath   string `yaml:"file_path"`   // Path to log file
	Console    bool   `yaml:"console"`     // Whether to log to console
	MaxSize    int    `yaml:"max_size"`    // Max file size in MB
	MaxBackups int    `yaml:"max_backups"` // Max number of backup files
	MaxAge     int    `yaml:"max_age"`     // Max age in days
	Cleanup    bool   `yaml:"cleanup"`     // Whether to cleanup log file on startup
}

// StorageConfig represents storage configuration
type StorageConfig struct {
	DataPath string        `yaml:"data_path"`
	Catalog  CatalogConfig `yaml:"catalog"`
	Staging  StagingConfig `yaml:"staging"`
}

// CatalogConfig represents catalog configuration
type CatalogConfig struct {
	Type string `yaml:"type"`
}

// StagingConfig controls where in-flight write jobs stage their output
type StagingConfig struct {
	Scheme      string `yaml:"scheme"`       // "legacy" or "current"
	ScratchRoot string `yaml:"scratch_root"` // legacy scheme: root outside the table tree
	DirName     string `yaml:"dir_name"`     // current scheme: staging directory base name
}

// LoadDefaultConfig returns a default configuration
func LoadDefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			FilePath:   "logs/strata.log",
			Console:    true,
			MaxSize:    100, // 100MB
			MaxBackups: 3,
			MaxAge:     7,    // 7 days
			Cleanup:    true, // Cleanup log file on startup by default
		},
		Storage: StorageConfig{
			DataPath: "./data",
			Catalog: CatalogConfig{
				Type: "json",
			},
			Staging: StagingConfig{
				Scheme:      StagingSchemeCurrent,
				ScratchRoot: os.TempDir(),
				DirName:     ".staging",
			},
		},
	}
}

// LoadConfig loads configuration from a file
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.New(ErrConfigFileReadFailed, "failed to read config file", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.New(ErrConfigFileParseFailed, "failed to parse config file", err)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.New(ErrConfigValidationFailed, "configuration validation failed", err)
	}

	return &config, nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.New(ErrConfigFileMarshalFailed, "failed to marshal config", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return errors.New(ErrConfigFileWriteFailed, "failed to write config file", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return errors.New(ErrStorageValidationFailed, "storage validation failed", err)
	}
	return nil
}

// Validate validates the storage configuration
func (s *StorageConfig) Validate() error {
	if err := s.Catalog.Validate(); err != nil {
		return errors.New(ErrCatalogValidationFailed, "catalog validation failed", err)
	}

	if err := s.Staging.Validate(); err != nil {
		return errors.New(ErrStagingValidationFailed, "staging validation failed", err)
	}

	if s.DataPath == "" {
		return errors.New(ErrDataPathRequired, "data_path is required in storage configuration", nil)
	}

	return nil
}

// Validate validates the catalog configuration
func (c *CatalogConfig) Validate() error {
	if c.Type == "" {
		return errors.New(ErrCatalogTypeRequired, "catalog type is required", nil)
	}
	return nil
}

// Validate validates the staging configuration
func (s *StagingConfig) Validate() error {
	switch s.Scheme {
	case "", StagingSchemeLegacy, StagingSchemeCurrent:
		return nil
	default:
		return errors.New(ErrStagingSchemeInvalid, "staging scheme must be 'legacy' or 'current'", nil).
			AddContext("scheme", s.Scheme)
	}
}

// GetStoragePath returns the storage path
func (c *Config) GetStoragePath() string {
	return c.Storage.DataPath
}

// GetCatalogType returns the catalog type
func (c *Config) GetCatalogType() string {
	return c.Storage.Catalog.Type
}

// GetStagingScheme returns the configured staging scheme, defaulting to current
func (c *Config) GetStagingScheme() string {
	if c.Storage.Staging.Scheme == "" {
		return StagingSchemeCurrent
	}
	return c.Storage.Staging.Scheme
}

// GetStagingScratchRoot returns the legacy-scheme scratch root
func (c *Config) GetStagingScratchRoot() string {
	if c.Storage.Staging.ScratchRoot == "" {
		return os.TempDir()
	}
	return c.Storage.Staging.ScratchRoot
}

// GetStagingDirName returns the current-scheme staging directory base name
func (c *Config) GetStagingDirName() string {
	if c.Storage.Staging.DirName == "" {
		return ".staging"
	}
	return c.Storage.Staging.DirName
}
