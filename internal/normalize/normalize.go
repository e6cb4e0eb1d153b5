// Package normalize turns raw cell values into numbers or the missing marker.
//
// Nothing here returns an error, logs, or panics on bad data: a cell that
// cannot be read as a number simply becomes nil.
package normalize

import (
	"context"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"mortality-platform/internal/models"
)

// Numeric parses a raw cell into a finite float. Thousands separators and
// surrounding whitespace are stripped first. Blank, non-numeric, nil, NaN and
// infinite inputs all yield nil.
func Numeric(raw interface{}) *float64 {
	var f float64
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return parseText(v)
	case []byte:
		return parseText(string(v))
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case *float64:
		if v == nil {
			return nil
		}
		f = *v
	case *string:
		if v == nil {
			return nil
		}
		return parseText(*v)
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func parseText(s string) *float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	// ParseFloat also reads hex floats and underscore separators; extracts never use either
	if cleaned == "" || strings.ContainsAny(cleaned, "xX_") {
		return nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Count parses a non-negative quantity such as a death count
func Count(raw interface{}) *float64 {
	f := Numeric(raw)
	if f == nil || *f < 0 {
		return nil
	}
	return f
}

// Year parses a calendar year. Fractional or negative years are missing.
func Year(raw interface{}) *int {
	f := Numeric(raw)
	if f == nil || *f < 0 || *f != math.Trunc(*f) || *f > math.MaxInt32 {
		return nil
	}
	y := int(*f)
	return &y
}

// Month parses a calendar month in 1..12
func Month(raw interface{}) *int {
	f := Numeric(raw)
	if f == nil || *f != math.Trunc(*f) || *f < 1 || *f > 12 {
		return nil
	}
	m := int(*f)
	return &m
}

// Record converts a raw row into a clean one. The input is not modified.
func Record(raw models.RawMortalityRecord) models.MortalityRecord {
	return models.MortalityRecord{
		Jurisdiction: raw.Jurisdiction,
		Group:        raw.Group,
		Subgroup:     raw.Subgroup,
		Year:         Year(raw.Year),
		Month:        Month(raw.Month),
		DeathCount:   Count(raw.DeathCount),
	}
}

// minChunk keeps small inputs on a single goroutine
const minChunk = 4096

// All normalizes every raw row, splitting the work across up to workers
// goroutines. Output order always equals input order.
func All(ctx context.Context, raws []models.RawMortalityRecord, workers int) ([]models.MortalityRecord, error) {
	out := make([]models.MortalityRecord, len(raws))
	if workers < 1 {
		workers = 1
	}

	chunk := (len(raws) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(raws); start += chunk {
		lo, hi := start, start+chunk
		if hi > len(raws) {
			hi = len(raws)
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%minChunk == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				out[i] = Record(raws[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Report counts missing cells across a normalized batch
type Report struct {
	Total             int `json:"total"`
	MissingYear       int `json:"missing_year"`
	MissingMonth      int `json:"missing_month"`
	MissingDeathCount int `json:"missing_death_count"`
}

// Summarize tallies the missing markers in records
func Summarize(records []models.MortalityRecord) Report {
	r := Report{Total: len(records)}
	for i := range records {
		if records[i].Year == nil {
			r.MissingYear++
		}
		if records[i].Month == nil {
			r.MissingMonth++
		}
		if records[i].DeathCount == nil {
			r.MissingDeathCount++
		}
	}
	return r
}
