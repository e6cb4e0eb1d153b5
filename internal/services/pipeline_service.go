package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"mortality-platform/internal/cohort"
	"mortality-platform/internal/models"
	"mortality-platform/internal/normalize"
	"mortality-platform/internal/source"
	"mortality-platform/internal/stats"
	"mortality-platform/pkg/logging"
	"mortality-platform/pkg/metrics"
)

// ErrNoReport is returned before the first successful run
var ErrNoReport = errors.New("no report available")

// Diagnostics explains how the raw table shrank to the cohort
type Diagnostics struct {
	Normalization normalize.Report `json:"normalization"`
	Cohort        cohort.Counts    `json:"cohort"`
}

// Report is the immutable result of one pipeline run
type Report struct {
	RunID       string                   `json:"run_id"`
	Source      string                   `json:"source"`
	Target      models.Target            `json:"target"`
	GeneratedAt time.Time                `json:"generated_at"`
	Duration    time.Duration            `json:"duration_ns"`
	Diagnostics Diagnostics              `json:"diagnostics"`
	Summary     models.SummaryStatistics `json:"summary"`
	Subgroups   []models.SubgroupSummary `json:"subgroups"`
	Trend       models.TrendSeries       `json:"trend"`

	cohort *models.Cohort
}

// Cohort returns the population slice the report was computed over
func (r *Report) Cohort() *models.Cohort {
	return r.cohort
}

// PipelineService runs load, normalize, filter and statistics, and keeps the
// latest report for readers
type PipelineService struct {
	src     source.Source
	kind    string
	target  models.Target
	workers int
	logger  *logging.StructuredLogger
	metrics *metrics.Collector

	runMu sync.Mutex

	mu      sync.RWMutex
	latest  *Report
	records []models.MortalityRecord
}

// NewPipelineService creates a pipeline over src. kind labels source metrics.
func NewPipelineService(src source.Source, kind string, target models.Target, workers int, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *PipelineService {
	if workers < 1 {
		workers = 1
	}
	return &PipelineService{
		src:     src,
		kind:    kind,
		target:  target,
		workers: workers,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Run loads the source and replaces the latest report. Concurrent calls are
// serialised; readers keep seeing the previous report until this one is done.
func (s *PipelineService) Run(ctx context.Context) (*Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if err := s.target.Validate(); err != nil {
		s.metrics.RecordRun("error")
		return nil, err
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	startTime := time.Now()

	s.logger.Info(ctx, "[PIPELINE_START] Starting mortality pipeline", logging.Fields{
		"source":              s.src.Name(),
		"target_jurisdiction": s.target.Jurisdiction,
		"target_group":        s.target.Group,
		"workers":             s.workers,
		"stage":               "INITIALIZATION",
	})

	timer := s.metrics.StageTimer("load")
	raws, err := s.src.Load(ctx)
	timer.ObserveDuration()
	if err != nil {
		s.metrics.RecordSourceError(s.kind)
		s.metrics.RecordRun("error")
		s.logger.Error(ctx, "[PIPELINE_LOAD_ERROR] Failed to load raw records", logging.Fields{
			"source": s.src.Name(),
			"stage":  "LOAD",
		}, err)
		return nil, fmt.Errorf("failed to load %s: %w", s.src.Name(), err)
	}
	s.metrics.RecordsLoadedTotal.Add(float64(len(raws)))

	s.logger.Info(ctx, "[PIPELINE_LOADED] Raw records loaded", logging.Fields{
		"records": len(raws),
		"stage":   "LOAD",
	})

	timer = s.metrics.StageTimer("normalize")
	records, err := normalize.All(ctx, raws, s.workers)
	timer.ObserveDuration()
	if err != nil {
		s.metrics.RecordRun("error")
		return nil, fmt.Errorf("failed to normalize records: %w", err)
	}

	report := s.analyze(ctx, records, s.target)
	report.RunID = runID
	report.Duration = time.Since(startTime)
	s.recordReport(report)

	s.mu.Lock()
	s.latest = report
	s.records = records
	s.mu.Unlock()

	outcome := "success"
	if report.cohort.IsEmpty() {
		outcome = "empty"
	}
	s.metrics.RecordRun(outcome)

	s.logger.Info(ctx, "[PIPELINE_COMPLETE] Mortality pipeline completed", logging.Fields{
		"cohort_size":      report.Summary.Count,
		"trend_periods":    len(report.Trend),
		"subgroups":        len(report.Subgroups),
		"duration_seconds": report.Duration.Seconds(),
		"outcome":          outcome,
		"stage":            "COMPLETE",
	})

	return report, nil
}

// Latest returns the most recent report
func (s *PipelineService) Latest() (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return nil, ErrNoReport
	}
	return s.latest, nil
}

// ForTarget recomputes the report for another target over the records of the
// latest run, without touching the source or replacing the latest report
func (s *PipelineService) ForTarget(ctx context.Context, target models.Target) (*Report, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	latest, records := s.latest, s.records
	s.mu.RUnlock()

	if latest == nil {
		return nil, ErrNoReport
	}
	if target == latest.Target {
		return latest, nil
	}

	startTime := time.Now()
	report := s.analyze(ctx, records, target)
	report.RunID = latest.RunID
	report.Duration = time.Since(startTime)
	return report, nil
}

// analyze is the pure part of a run: normalized records in, report out
func (s *PipelineService) analyze(ctx context.Context, records []models.MortalityRecord, target models.Target) *Report {
	norm := normalize.Summarize(records)

	timer := s.metrics.StageTimer("filter")
	c, counts := cohort.FilterWithCounts(records, target)
	timer.ObserveDuration()

	if c.IsEmpty() {
		s.logger.Warn(ctx, "[PIPELINE_EMPTY_COHORT] No records matched the target", logging.Fields{
			"target_jurisdiction": target.Jurisdiction,
			"target_group":        target.Group,
			"input":               counts.Input,
			"missing_required":    counts.MissingRequired,
		})
	}

	timer = s.metrics.StageTimer("statistics")
	report := &Report{
		Source:      s.src.Name(),
		Target:      target,
		GeneratedAt: time.Now().UTC(),
		Diagnostics: Diagnostics{Normalization: norm, Cohort: counts},
		Summary:     stats.Summarize(c),
		Subgroups:   stats.BySubgroup(c),
		Trend:       stats.Trend(c),
		cohort:      c,
	}
	timer.ObserveDuration()

	s.logger.Debug(ctx, "[PIPELINE_ANALYZED] Cohort statistics computed", logging.Fields{
		"input":           counts.Input,
		"target_mismatch": counts.TargetMismatch,
		"missing_fields":  counts.MissingRequired,
		"kept":            counts.Kept,
		"skew":            string(report.Summary.Skew()),
	})

	return report
}

// HealthCheck reports whether a report has been produced
func (s *PipelineService) HealthCheck(ctx context.Context) error {
	if _, err := s.Latest(); err != nil {
		return err
	}
	return nil
}

// recordReport publishes the run's diagnostics as metrics
func (s *PipelineService) recordReport(r *Report) {
	norm, counts := r.Diagnostics.Normalization, r.Diagnostics.Cohort
	s.metrics.RecordMissing("year", norm.MissingYear)
	s.metrics.RecordMissing("month", norm.MissingMonth)
	s.metrics.RecordMissing("death_count", norm.MissingDeathCount)
	s.metrics.RecordDropped("target_mismatch", counts.TargetMismatch)
	s.metrics.RecordDropped("missing_required", counts.MissingRequired)
	s.metrics.CohortSize.Set(float64(r.cohort.Len()))
	s.metrics.TrendPeriods.Set(float64(len(r.Trend)))
}
