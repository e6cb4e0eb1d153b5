package source

import (
	"context"
	"fmt"

	"mortality-platform/internal/config"
	"mortality-platform/internal/repository"
	"mortality-platform/pkg/database"
	"mortality-platform/pkg/logging"
	"mortality-platform/pkg/metrics"
)

func noopClose() error { return nil }

// FromConfig builds the configured source. The returned close func releases
// the connection pool of a postgres source and is a no-op otherwise.
func FromConfig(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (Source, func() error, error) {
	columns := cfg.Columns.ColumnMap()

	switch cfg.Source.Type {
	case config.SourceCSV, config.SourceXLSX:
		src, err := New(cfg.Source.Type, cfg.Source.Path, cfg.Source.Sheet, columns)
		if err != nil {
			return nil, nil, err
		}
		return src, noopClose, nil

	case config.SourcePostgres:
		db, err := OpenDatabase(ctx, cfg.Database, logger, metricsCollector)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMortalityRepository(db, cfg.Source.Table, columns, logger, metricsCollector)
		return NewRepositorySource(cfg.Source.Table, repo), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported source type %q", cfg.Source.Type)
	}
}

// OpenDatabase connects to the configured PostgreSQL database
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*database.PostgresDB, error) {
	return database.NewPostgresDB(ctx, &database.Config{
		DSN:             cfg.DSN(),
		Host:            cfg.Host,
		Database:        cfg.Database,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger, metricsCollector)
}
