package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus"

	"mortality-platform/internal/config"
	"mortality-platform/internal/services"
	"mortality-platform/internal/source"
	"mortality-platform/pkg/logging"
	"mortality-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (default: ./config.yaml or ./configs/config.yaml if present)")
	sourceType := flag.String("source", "", "Source type override: csv, xlsx or postgres")
	path := flag.String("path", "", "Source file path override")
	sheet := flag.String("sheet", "", "Workbook sheet override (xlsx only)")
	jurisdiction := flag.String("jurisdiction", "", "Target jurisdiction override")
	group := flag.String("group", "", "Target group override")
	dump := flag.Bool("dump", false, "Dump the full report structure after the summary")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *sourceType != "" {
		cfg.Source.Type = *sourceType
	}
	if *path != "" {
		cfg.Source.Path = *path
	}
	if *sheet != "" {
		cfg.Source.Sheet = *sheet
	}
	if *jurisdiction != "" {
		cfg.Cohort.TargetJurisdiction = *jurisdiction
	}
	if *group != "" {
		cfg.Cohort.TargetGroup = *group
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so the report on stdout stays clean
	logger := logging.NewStructuredLogger("mortality-analyzer", version, logging.ParseLevel(cfg.Logging.Level))
	logger.SetOutput(os.Stderr)
	logger.SetFormat(cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[ANALYZER_START] Starting mortality analysis", logging.Fields{
		"version":             version,
		"source_type":         cfg.Source.Type,
		"source_path":         cfg.Source.Path,
		"target_jurisdiction": cfg.Cohort.TargetJurisdiction,
		"target_group":        cfg.Cohort.TargetGroup,
	})

	metricsCollector := metrics.NewCollector("mortality_analyzer", prometheus.NewRegistry())

	src, closeSource, err := source.FromConfig(ctx, cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[ANALYZER_ERROR] Failed to open source", logging.Fields{
			"source_type": cfg.Source.Type,
		}, err)
	}
	defer closeSource()

	pipeline := services.NewPipelineService(src, cfg.Source.Type, cfg.Cohort.Target(), cfg.Pipeline.Workers, logger, metricsCollector)

	report, err := pipeline.Run(ctx)
	if err != nil {
		closeSource()
		logger.Fatal(ctx, "[ANALYZER_ERROR] Analysis failed", logging.Fields{
			"source": src.Name(),
		}, err)
	}

	printReport(os.Stdout, report)

	if *dump {
		fmt.Println()
		spew.Fdump(os.Stdout, report)
	}

	logger.Info(ctx, "[ANALYZER_COMPLETE] Analysis completed successfully", logging.Fields{
		"run_id":           report.RunID,
		"cohort_size":      report.Summary.Count,
		"duration_seconds": report.Duration.Seconds(),
	})
}
