package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"mortality-platform/internal/models"
	"mortality-platform/pkg/database"
	"mortality-platform/pkg/logging"
	"mortality-platform/pkg/metrics"
)

// StagingWriter creates and fills the raw staging table that the postgres
// source reads. Every column is TEXT: cells are stored exactly as extracted
// and cleaned on the way out.
type StagingWriter struct {
	db      *database.PostgresDB
	table   string
	columns models.ColumnMap
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStagingWriter creates a writer for table
func NewStagingWriter(db *database.PostgresDB, table string, columns models.ColumnMap, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StagingWriter {
	return &StagingWriter{
		db:      db,
		table:   table,
		columns: columns,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// CreateTable creates the staging table if it does not exist
func (w *StagingWriter) CreateTable(ctx context.Context) error {
	if _, err := w.db.ExecContext(ctx, "create_staging_table", buildCreateTable(w.table, w.columns)); err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}
	return nil
}

// DropTable removes the staging table
func (w *StagingWriter) DropTable(ctx context.Context) error {
	query := "DROP TABLE IF EXISTS " + quoteQualified(w.table)
	if _, err := w.db.ExecContext(ctx, "drop_staging_table", query); err != nil {
		return fmt.Errorf("failed to drop staging table: %w", err)
	}
	return nil
}

// InsertBatch bulk-loads records with COPY in a single transaction
func (w *StagingWriter) InsertBatch(ctx context.Context, records []models.RawMortalityRecord) error {
	if len(records) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		w.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"table":       w.table,
			"count":       len(records),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := w.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, copyStatement(w.table, w.columns))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.Jurisdiction,
			r.Group,
			r.Subgroup,
			cellText(r.Year),
			cellText(r.Month),
			cellText(r.DeathCount),
		)
		if err != nil {
			return fmt.Errorf("failed to copy record: %w", err)
		}
	}

	// flush buffered rows
	if _, err := stmt.ExecContext(ctx); err != nil {
		w.metrics.RecordDBError("copy_error")
		return fmt.Errorf("failed to flush copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func buildCreateTable(table string, columns models.ColumnMap) string {
	defs := make([]string, 0, 6)
	for _, col := range columns.Names() {
		defs = append(defs, pq.QuoteIdentifier(col)+" TEXT")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteQualified(table), strings.Join(defs, ", "))
}

func copyStatement(table string, columns models.ColumnMap) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pq.CopyInSchema(schema, name, columns.Names()...)
	}
	return pq.CopyIn(table, columns.Names()...)
}

// cellText stores nil as NULL and everything else in its printed form
func cellText(v interface{}) interface{} {
	switch c := v.(type) {
	case nil:
		return nil
	case string:
		return c
	case []byte:
		return string(c)
	default:
		return fmt.Sprint(c)
	}
}
