package cli

import (
	"context"
	"strings"

	"github.com/gear6io/strata/pkg/errors"
	"github.com/gear6io/strata/server/catalog"
	catalogshared "github.com/gear6io/strata/server/catalog/shared"
	"github.com/gear6io/strata/server/commit"
	"github.com/gear6io/strata/server/config"
	"github.com/gear6io/strata/server/partition"
	"github.com/gear6io/strata/server/paths"
	"github.com/gear6io/strata/server/staging"
	"github.com/gear6io/strata/server/storage"
	"github.com/gear6io/strata/server/storage/filesystem"
	"github.com/gear6io/strata/server/storage/s3"
	"github.com/rs/zerolog"
)

// Package-specific error codes for CLI argument handling
var (
	ErrInvalidTableName = errors.MustNewCode("cli.invalid_table_name")
	ErrInvalidSpec      = errors.MustNewCode("cli.invalid_spec")
)

// environment bundles the wired components one command invocation needs
type environment struct {
	cfg         *config.Config
	logger      zerolog.Logger
	pathManager paths.PathManager
	fs          storage.FileSystem
	catalog     catalogshared.Catalog
	staging     *staging.Manager
	executor    *commit.Executor
}

// openEnvironment wires path manager, storage engines, catalog, staging,
// and the insert executor from configuration. The local filesystem engine
// is the default; an S3 engine is registered when its environment
// configuration is present.
func openEnvironment(ctx context.Context) (*environment, error) {
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	pathManager := paths.NewManager(cfg.GetStoragePath())
	if err := pathManager.EnsureDirectoryStructure(); err != nil {
		return nil, err
	}

	registry := storage.NewEngineRegistry(logger)
	registry.RegisterEngine(filesystem.Type, filesystem.NewFileStorage(logger))
	if s3cfg := s3.ConfigFromEnv(); s3cfg != nil {
		engine, err := s3.NewObjectStorage(s3cfg, logger)
		if err != nil {
			return nil, err
		}
		registry.RegisterEngine(s3.Type, engine)
	}

	fs, err := registry.GetDefaultEngine()
	if err != nil {
		return nil, err
	}

	cat, err := catalog.NewCatalog(cfg, pathManager)
	if err != nil {
		return nil, err
	}

	stagingManager := staging.NewManager(cfg, fs, pathManager, logger)
	writer := commit.NewJSONRowWriter(fs, logger)
	executor := commit.NewExecutor(cat, fs, pathManager, stagingManager, writer, logger)

	return &environment{
		cfg:         cfg,
		logger:      logger,
		pathManager: pathManager,
		fs:          fs,
		catalog:     cat,
		staging:     stagingManager,
		executor:    executor,
	}, nil
}

func (e *environment) close(ctx context.Context) {
	if err := e.catalog.Shutdown(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("Catalog shutdown failed")
	}
}

// parseTableIdent parses "database.table"
func parseTableIdent(arg string) (catalogshared.TableIdent, error) {
	parts := strings.SplitN(arg, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return catalogshared.TableIdent{}, errors.New(ErrInvalidTableName, "table must be given as database.table", nil).
			AddContext("argument", arg)
	}
	return catalogshared.TableIdent{Database: parts[0], Table: parts[1]}, nil
}

// parseSpec parses "col=val,col2=val2" into a partition spec
func parseSpec(arg string) (partition.Spec, error) {
	if arg == "" {
		return nil, nil
	}
	spec := partition.Spec{}
	for _, pair := range strings.Split(arg, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, errors.New(ErrInvalidSpec, "partition spec must be col=value pairs", nil).
				AddContext("argument", arg)
		}
		spec[kv[0]] = kv[1]
	}
	return spec, nil
}
