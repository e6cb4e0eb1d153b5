// Package cohort selects the non-overlapping population slice that every
// statistic is computed over.
package cohort

import (
	"mortality-platform/internal/models"
)

// Counts explains where the records that did not make the cohort went
type Counts struct {
	Input           int `json:"input"`
	TargetMismatch  int `json:"target_mismatch"`
	MissingRequired int `json:"missing_required"`
	Kept            int `json:"kept"`
}

// Matches is the cohort predicate: exact, case-sensitive match on
// jurisdiction and group, with year and death count both present.
func Matches(r *models.MortalityRecord, target models.Target) bool {
	return r.Jurisdiction == target.Jurisdiction &&
		r.Group == target.Group &&
		r.HasRequiredFields()
}

// Filter builds the cohort for target. Zero matches is a valid, empty cohort.
func Filter(records []models.MortalityRecord, target models.Target) *models.Cohort {
	c, _ := FilterWithCounts(records, target)
	return c
}

// FilterWithCounts is Filter plus a tally of dropped records
func FilterWithCounts(records []models.MortalityRecord, target models.Target) (*models.Cohort, Counts) {
	counts := Counts{Input: len(records)}
	kept := make([]models.MortalityRecord, 0, len(records)/4)

	for i := range records {
		r := &records[i]
		if r.Jurisdiction != target.Jurisdiction || r.Group != target.Group {
			counts.TargetMismatch++
			continue
		}
		if !r.HasRequiredFields() {
			counts.MissingRequired++
			continue
		}
		kept = append(kept, *r)
	}

	counts.Kept = len(kept)
	return models.NewCohort(target, kept), counts
}

// Refilter applies Filter to an existing cohort's records
func Refilter(c *models.Cohort, target models.Target) *models.Cohort {
	return Filter(c.Records(), target)
}
