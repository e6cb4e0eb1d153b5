// Package source supplies raw mortality records to the pipeline. Sources do
// no cleaning: every cell is passed on as read, and only a missing required
// column is reported as an error.
package source

import (
	"context"
	"fmt"
	"strings"

	"mortality-platform/internal/models"
)

// Source loads the full raw table into memory
type Source interface {
	Name() string
	Load(ctx context.Context) ([]models.RawMortalityRecord, error)
}

// columnIndex resolves each mapped column to its position in header
func columnIndex(sourceName string, header []string, columns models.ColumnMap) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	var missing []string
	for _, name := range columns.Names() {
		if _, ok := positions[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &models.SchemaError{Source: sourceName, Missing: missing}
	}
	return positions, nil
}

// rowMapper builds raw records from positional string rows
type rowMapper struct {
	jurisdiction, group, subgroup, year, month, deaths int
}

func newRowMapper(positions map[string]int, columns models.ColumnMap) rowMapper {
	return rowMapper{
		jurisdiction: positions[columns.Jurisdiction],
		group:        positions[columns.Group],
		subgroup:     positions[columns.Subgroup],
		year:         positions[columns.Year],
		month:        positions[columns.Month],
		deaths:       positions[columns.DeathCount],
	}
}

// record reads one row; short rows yield blank cells
func (m rowMapper) record(row []string) models.RawMortalityRecord {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	return models.RawMortalityRecord{
		Jurisdiction: cell(m.jurisdiction),
		Group:        cell(m.group),
		Subgroup:     cell(m.subgroup),
		Year:         cell(m.year),
		Month:        cell(m.month),
		DeathCount:   cell(m.deaths),
	}
}

// Kind values accepted by New
const (
	KindCSV  = "csv"
	KindXLSX = "xlsx"
)

// New opens a file-backed source of the given kind
func New(kind, path, sheet string, columns models.ColumnMap) (Source, error) {
	switch kind {
	case KindCSV:
		return NewCSVSource(path, columns), nil
	case KindXLSX:
		return NewXLSXSource(path, sheet, columns), nil
	default:
		return nil, &models.ValidationError{Field: "source.type", Value: kind, Message: fmt.Sprintf("unsupported file source type %q", kind)}
	}
}
