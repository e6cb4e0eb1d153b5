package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// RawMortalityRecord is one row as delivered by a source, before cleaning.
// Cell values are whatever the source produced: strings for CSV, strings or
// numbers for workbooks, nullable columns for Postgres.
type RawMortalityRecord struct {
	Jurisdiction string      `json:"jurisdiction" db:"jurisdiction"`
	Group        string      `json:"group" db:"group_label"`
	Subgroup     string      `json:"subgroup" db:"subgroup"`
	Year         interface{} `json:"year" db:"year"`
	Month        interface{} `json:"month" db:"month"`
	DeathCount   interface{} `json:"death_count" db:"death_count"`
}

// MortalityRecord is a RawMortalityRecord after field normalization.
// A nil pointer is the missing marker; a non-nil value is finite and non-negative.
type MortalityRecord struct {
	Jurisdiction string   `json:"jurisdiction"`
	Group        string   `json:"group"`
	Subgroup     string   `json:"subgroup"`
	Year         *int     `json:"year,omitempty"`
	Month        *int     `json:"month,omitempty"`
	DeathCount   *float64 `json:"death_count,omitempty"`
}

// HasRequiredFields reports whether year and death count are both present
func (r *MortalityRecord) HasRequiredFields() bool {
	return r.Year != nil && r.DeathCount != nil
}

// Target selects one jurisdiction and one non-overlapping partition scheme
type Target struct {
	Jurisdiction string `json:"target_jurisdiction"`
	Group        string `json:"target_group"`
}

// Validate rejects blank targets; an unknown but non-blank target is not an error
func (t Target) Validate() error {
	if t.Jurisdiction == "" {
		return &ValidationError{Field: "target_jurisdiction", Value: t.Jurisdiction, Message: "target jurisdiction is required"}
	}
	if t.Group == "" {
		return &ValidationError{Field: "target_group", Value: t.Group, Message: "target group is required"}
	}
	return nil
}

// Cohort is the filtered, immutable population slice all statistics run over.
// Every record in it matches Target and has a present year and death count.
type Cohort struct {
	target  Target
	records []MortalityRecord
}

// NewCohort copies records into a new Cohort. Callers are responsible for
// having applied the cohort predicate; see cohort.Filter.
func NewCohort(target Target, records []MortalityRecord) *Cohort {
	owned := make([]MortalityRecord, len(records))
	copy(owned, records)
	return &Cohort{target: target, records: owned}
}

// Target returns the selection the cohort was built for
func (c *Cohort) Target() Target {
	return c.target
}

// Len returns the number of records in the cohort
func (c *Cohort) Len() int {
	return len(c.records)
}

// IsEmpty reports whether nothing matched
func (c *Cohort) IsEmpty() bool {
	return len(c.records) == 0
}

// Records returns a copy of the cohort rows in source order
func (c *Cohort) Records() []MortalityRecord {
	out := make([]MortalityRecord, len(c.records))
	copy(out, c.records)
	return out
}

// DeathCounts returns the death count of every record in source order
func (c *Cohort) DeathCounts() []float64 {
	values := make([]float64, 0, len(c.records))
	for _, r := range c.records {
		values = append(values, *r.DeathCount)
	}
	return values
}

// Subgroups returns the distinct subgroup labels in first-appearance order
func (c *Cohort) Subgroups() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, r := range c.records {
		if !seen[r.Subgroup] {
			seen[r.Subgroup] = true
			labels = append(labels, r.Subgroup)
		}
	}
	return labels
}

// MarshalJSON exposes the cohort for distribution and comparison consumers
func (c *Cohort) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Target  Target            `json:"target"`
		Count   int               `json:"count"`
		Records []MortalityRecord `json:"records"`
	}{
		Target:  c.target,
		Count:   len(c.records),
		Records: c.records,
	})
}

// Skew describes the asymmetry of a distribution from its mean and median
type Skew string

const (
	SkewUndefined Skew = "undefined"
	SkewRight     Skew = "right"
	SkewLeft      Skew = "left"
	SkewSymmetric Skew = "symmetric"
)

// SummaryStatistics is a read-only snapshot of center and spread.
// On an empty cohort every value is NaN and Count is zero.
type SummaryStatistics struct {
	Count             int     `json:"count"`
	Mean              float64 `json:"mean"`
	Median            float64 `json:"median"`
	StandardDeviation float64 `json:"std"`
	Q1                float64 `json:"q1"`
	Q3                float64 `json:"q3"`
	IQR               float64 `json:"iqr"`
	Min               float64 `json:"min"`
	Max               float64 `json:"max"`
}

// UndefinedSummary is the "no data" result
func UndefinedSummary() SummaryStatistics {
	nan := math.NaN()
	return SummaryStatistics{
		Mean:              nan,
		Median:            nan,
		StandardDeviation: nan,
		Q1:                nan,
		Q3:                nan,
		IQR:               nan,
		Min:               nan,
		Max:               nan,
	}
}

// Defined reports whether the summary was computed over at least one value
func (s SummaryStatistics) Defined() bool {
	return s.Count > 0
}

// Labeled returns the statistics as a name to value mapping
func (s SummaryStatistics) Labeled() map[string]float64 {
	return map[string]float64{
		"mean":   s.Mean,
		"median": s.Median,
		"std":    s.StandardDeviation,
		"q1":     s.Q1,
		"q3":     s.Q3,
		"iqr":    s.IQR,
		"min":    s.Min,
		"max":    s.Max,
	}
}

// Skew classifies the distribution by comparing mean and median
func (s SummaryStatistics) Skew() Skew {
	if !s.Defined() || math.IsNaN(s.Mean) || math.IsNaN(s.Median) {
		return SkewUndefined
	}
	switch {
	case s.Mean > s.Median:
		return SkewRight
	case s.Mean < s.Median:
		return SkewLeft
	default:
		return SkewSymmetric
	}
}

// MarshalJSON writes NaN statistics as null
func (s SummaryStatistics) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 10)
	out["count"] = s.Count
	for name, v := range s.Labeled() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[name] = nil
			continue
		}
		out[name] = v
	}
	out["skew"] = s.Skew()
	return json.Marshal(out)
}

// SubgroupSummary pairs a subgroup label with its own statistics
type SubgroupSummary struct {
	Subgroup string            `json:"subgroup"`
	Summary  SummaryStatistics `json:"summary"`
}

// TrendPoint is one calendar month of the trend series
type TrendPoint struct {
	Index       int     `json:"index"`
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	TotalDeaths float64 `json:"total_deaths"`
}

// Period renders the point as YYYY-MM
func (p TrendPoint) Period() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// TrendSeries is ordered by Index, which is dense and zero-based
type TrendSeries []TrendPoint

// ColumnMap names the source column that feeds each raw field
type ColumnMap struct {
	Jurisdiction string `json:"jurisdiction"`
	Group        string `json:"group"`
	Subgroup     string `json:"subgroup"`
	Year         string `json:"year"`
	Month        string `json:"month"`
	DeathCount   string `json:"death_count"`
}

// Names lists the mapped columns in a fixed order
func (m ColumnMap) Names() []string {
	return []string{m.Jurisdiction, m.Group, m.Subgroup, m.Year, m.Month, m.DeathCount}
}
