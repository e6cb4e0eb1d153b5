package main

import (
	"io"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mortality-platform/internal/models"
	"mortality-platform/internal/services"
)

var skewInterpretation = map[models.Skew]string{
	models.SkewRight:     "mean is above the median: right-skewed, a few months with very high deaths pull the mean up",
	models.SkewLeft:      "mean is below the median: left-skewed, low-count months pull the mean down",
	models.SkewSymmetric: "mean equals the median: the distribution is symmetric",
	models.SkewUndefined: "no data: the cohort is empty",
}

// printReport writes the human-readable report with thousands separators
func printReport(w io.Writer, report *services.Report) {
	p := message.NewPrinter(language.English)
	rule := strings.Repeat("=", 80)
	num := func(v float64) string {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "n/a"
		}
		return p.Sprintf("%.2f", v)
	}

	p.Fprintln(w, rule)
	p.Fprintln(w, "COVID-19 MORTALITY REPORT")
	p.Fprintln(w, rule)
	p.Fprintf(w, "Source:            %s\n", report.Source)
	p.Fprintf(w, "Target:            %s / %s\n", report.Target.Jurisdiction, report.Target.Group)
	p.Fprintf(w, "Run ID:            %s\n", report.RunID)

	norm, counts := report.Diagnostics.Normalization, report.Diagnostics.Cohort
	p.Fprintf(w, "\nRecords loaded:    %d\n", norm.Total)
	p.Fprintf(w, "Missing year:      %d\n", norm.MissingYear)
	p.Fprintf(w, "Missing month:     %d\n", norm.MissingMonth)
	p.Fprintf(w, "Missing deaths:    %d\n", norm.MissingDeathCount)
	p.Fprintf(w, "Other targets:     %d\n", counts.TargetMismatch)
	p.Fprintf(w, "Incomplete rows:   %d\n", counts.MissingRequired)
	p.Fprintf(w, "Cohort size:       %d\n", counts.Kept)

	s := report.Summary
	p.Fprintln(w, "\n"+rule)
	p.Fprintln(w, "SUMMARY STATISTICS (COVID deaths per record)")
	p.Fprintln(w, rule)
	p.Fprintf(w, "Mean:              %s\n", num(s.Mean))
	p.Fprintf(w, "Median:            %s\n", num(s.Median))
	p.Fprintf(w, "Std deviation:     %s\n", num(s.StandardDeviation))
	p.Fprintf(w, "Q1:                %s\n", num(s.Q1))
	p.Fprintf(w, "Q3:                %s\n", num(s.Q3))
	p.Fprintf(w, "IQR:               %s\n", num(s.IQR))
	p.Fprintf(w, "Range:             %s to %s\n", num(s.Min), num(s.Max))
	p.Fprintf(w, "Interpretation:    %s\n", skewInterpretation[s.Skew()])

	if len(report.Subgroups) > 0 {
		p.Fprintln(w, "\n"+rule)
		p.Fprintln(w, "BY SUBGROUP")
		p.Fprintln(w, rule)
		p.Fprintf(w, "%-24s %8s %14s %14s %14s\n", "Subgroup", "Count", "Mean", "Median", "IQR")
		for _, sg := range report.Subgroups {
			p.Fprintf(w, "%-24s %8d %14s %14s %14s\n",
				sg.Subgroup, sg.Summary.Count, num(sg.Summary.Mean), num(sg.Summary.Median), num(sg.Summary.IQR))
		}
	}

	if len(report.Trend) > 0 {
		p.Fprintln(w, "\n"+rule)
		p.Fprintln(w, "MONTHLY TREND")
		p.Fprintln(w, rule)
		for _, point := range report.Trend {
			p.Fprintf(w, "%4d  %s  %16s\n", point.Index, point.Period(), num(point.TotalDeaths))
		}
	}
}
