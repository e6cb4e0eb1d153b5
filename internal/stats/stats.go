// Package stats computes center and spread over a cohort and aggregates it
// into a monthly trend series.
//
// Quantiles use linear interpolation between order statistics at position
// (n-1)p, so Median and the 50th percentile are the same number. Standard
// deviation is the sample estimate (n-1 denominator). Every function returns
// NaN instead of panicking when there is nothing to compute over.
package stats

import (
	"math"
	"slices"
	"sort"

	"mortality-platform/internal/models"
)

// Well-known percentile positions
const (
	PercentileQ1     = 0.25
	PercentileMedian = 0.5
	PercentileQ3     = 0.75
)

// Mean returns the arithmetic mean, or NaN for no values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev returns the n-1 standard deviation, or NaN for fewer than two values
func SampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// Percentile returns the p-th quantile (p in [0, 1]) of values by linear
// interpolation. The input is not modified. NaN for no values or p out of range.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 || math.IsNaN(p) || p < 0 || p > 1 {
		return math.NaN()
	}

	h := p * float64(n-1)
	lower := int(math.Floor(h))
	upper := int(math.Ceil(h))
	if lower == upper {
		return sorted[lower]
	}

	frac := h - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Median returns the 50th percentile
func Median(values []float64) float64 {
	return Percentile(values, PercentileMedian)
}

// Describe computes a SummaryStatistics over a plain vector
func Describe(values []float64) models.SummaryStatistics {
	if len(values) == 0 {
		return models.UndefinedSummary()
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	q1 := percentileSorted(sorted, PercentileQ1)
	q3 := percentileSorted(sorted, PercentileQ3)

	return models.SummaryStatistics{
		Count:             len(sorted),
		Mean:              Mean(sorted),
		Median:            percentileSorted(sorted, PercentileMedian),
		StandardDeviation: SampleStdDev(sorted),
		Q1:                q1,
		Q3:                q3,
		IQR:               q3 - q1,
		Min:               sorted[0],
		Max:               sorted[len(sorted)-1],
	}
}

// Summarize computes the death count statistics of a cohort
func Summarize(c *models.Cohort) models.SummaryStatistics {
	return Describe(c.DeathCounts())
}

// BySubgroup summarizes each subgroup separately, in first-appearance order
func BySubgroup(c *models.Cohort) []models.SubgroupSummary {
	values := make(map[string][]float64)
	for _, r := range c.Records() {
		values[r.Subgroup] = append(values[r.Subgroup], *r.DeathCount)
	}

	labels := c.Subgroups()
	out := make([]models.SubgroupSummary, 0, len(labels))
	for _, label := range labels {
		out = append(out, models.SubgroupSummary{
			Subgroup: label,
			Summary:  Describe(values[label]),
		})
	}
	return out
}

type period struct {
	year  int
	month int
}

// Trend sums death counts per (year, month) across all cohort records and
// indexes the periods chronologically from zero. Records without a month
// cannot be placed on the time axis and are left out.
func Trend(c *models.Cohort) models.TrendSeries {
	totals := make(map[period]float64)
	for _, r := range c.Records() {
		if r.Month == nil {
			continue
		}
		totals[period{year: *r.Year, month: *r.Month}] += *r.DeathCount
	}

	periods := make([]period, 0, len(totals))
	for p := range totals {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool {
		if periods[i].year != periods[j].year {
			return periods[i].year < periods[j].year
		}
		return periods[i].month < periods[j].month
	})

	series := make(models.TrendSeries, len(periods))
	for i, p := range periods {
		series[i] = models.TrendPoint{
			Index:       i,
			Year:        p.year,
			Month:       p.month,
			TotalDeaths: totals[p],
		}
	}
	return series
}
