package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"mortality-platform/internal/config"
	"mortality-platform/internal/repository"
	"mortality-platform/internal/source"
	"mortality-platform/pkg/logging"
	"mortality-platform/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	direction := flag.String("direction", "up", "Migration direction: up or down")
	seed := flag.String("seed", "", "CSV or XLSX extract to load into the staging table after migrating up")
	batchSize := flag.Int("batch-size", 5000, "Number of records to copy per transaction")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if cfg.Source.Table == "" {
		fmt.Fprintln(os.Stderr, "source.table must name the staging table")
		os.Exit(1)
	}
	if *batchSize < 1 {
		fmt.Fprintln(os.Stderr, "batch-size must be positive")
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("mortality-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	logger.SetFormat(cfg.Logging.Format)
	metricsCollector := metrics.NewCollector("mortality_migrate", prometheus.NewRegistry())

	ctx := context.Background()

	// Connect to database
	db, err := source.OpenDatabase(ctx, cfg.Database, logger, metricsCollector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("Connected to database successfully")

	writer := repository.NewStagingWriter(db, cfg.Source.Table, cfg.Columns.ColumnMap(), logger, metricsCollector)

	switch *direction {
	case "up":
		fmt.Printf("Creating staging table: %s\n", cfg.Source.Table)
		if err := writer.CreateTable(ctx); err != nil {
			fail(db.Close, err)
		}
	case "down":
		fmt.Printf("Dropping staging table: %s\n", cfg.Source.Table)
		if err := writer.DropTable(ctx); err != nil {
			fail(db.Close, err)
		}
		fmt.Println("Migration completed successfully")
		return
	default:
		fail(db.Close, fmt.Errorf("unknown direction %q", *direction))
	}

	fmt.Println("Migration completed successfully")

	if *seed == "" {
		return
	}

	kind := source.KindCSV
	if ext := strings.ToLower(filepath.Ext(*seed)); ext == ".xlsx" || ext == ".xlsm" {
		kind = source.KindXLSX
	}
	src, err := source.New(kind, *seed, cfg.Source.Sheet, cfg.Columns.ColumnMap())
	if err != nil {
		fail(db.Close, err)
	}

	records, err := src.Load(ctx)
	if err != nil {
		fail(db.Close, err)
	}

	for start := 0; start < len(records); start += *batchSize {
		end := min(start+*batchSize, len(records))
		if err := writer.InsertBatch(ctx, records[start:end]); err != nil {
			fail(db.Close, err)
		}
	}

	fmt.Printf("Loaded %d records from %s\n", len(records), *seed)
}

func fail(closeDB func() error, err error) {
	closeDB()
	fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
	os.Exit(1)
}
