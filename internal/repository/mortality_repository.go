package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"mortality-platform/internal/models"
	"mortality-platform/pkg/database"
	"mortality-platform/pkg/logging"
	"mortality-platform/pkg/metrics"
)

// MortalityRepository reads raw mortality rows from a staging table
type MortalityRepository interface {
	ListRawRecords(ctx context.Context) ([]models.RawMortalityRecord, error)
	HealthCheck(ctx context.Context) error
}

// mortalityRepository implements MortalityRepository
type mortalityRepository struct {
	db      *database.PostgresDB
	table   string
	columns models.ColumnMap
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewMortalityRepository creates a repository over table using the given column mapping
func NewMortalityRepository(db *database.PostgresDB, table string, columns models.ColumnMap, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) MortalityRepository {
	return &mortalityRepository{
		db:      db,
		table:   table,
		columns: columns,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// undefined_table
const pqUndefinedTable = "42P01"

// ListRawRecords returns every row of the table in physical order.
// Label columns are read as text; numeric columns are handed over untouched
// for the normalizer to clean.
func (r *mortalityRepository) ListRawRecords(ctx context.Context) ([]models.RawMortalityRecord, error) {
	timer := time.Now()

	query := buildSelectQuery(r.table, r.columns)

	var records []models.RawMortalityRecord
	err := r.db.SelectContext(ctx, "list_raw_records", &records, query)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUndefinedTable {
			return nil, &NotFoundError{Resource: "table", ID: r.table}
		}
		return nil, fmt.Errorf("failed to list raw records: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_LIST_RAW] Raw records loaded", logging.Fields{
		"table":       r.table,
		"count":       len(records),
		"duration_ms": time.Since(timer).Milliseconds(),
	})

	return records, nil
}

// HealthCheck performs a repository health check
func (r *mortalityRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// buildSelectQuery aliases the configured columns onto the db tags of
// RawMortalityRecord. Identifiers are quoted, never interpolated raw.
func buildSelectQuery(table string, columns models.ColumnMap) string {
	text := func(col string) string {
		return fmt.Sprintf("COALESCE(%s::text, '')", pq.QuoteIdentifier(col))
	}
	raw := func(col string) string {
		return pq.QuoteIdentifier(col)
	}

	return fmt.Sprintf(
		"SELECT %s AS jurisdiction, %s AS group_label, %s AS subgroup, %s AS year, %s AS month, %s AS death_count FROM %s",
		text(columns.Jurisdiction),
		text(columns.Group),
		text(columns.Subgroup),
		raw(columns.Year),
		raw(columns.Month),
		raw(columns.DeathCount),
		quoteQualified(table),
	)
}

// quoteQualified quotes each part of a possibly schema-qualified name
func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// IsTransient returns false; the table has to be created first
func (e *NotFoundError) IsTransient() bool {
	return false
}
