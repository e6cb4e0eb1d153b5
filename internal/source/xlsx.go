package source

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"mortality-platform/internal/models"
)

// XLSXSource reads one sheet of a workbook whose first row is the header
type XLSXSource struct {
	path    string
	sheet   string
	columns models.ColumnMap
}

// NewXLSXSource creates a workbook source; an empty sheet means the first one
func NewXLSXSource(path, sheet string, columns models.ColumnMap) *XLSXSource {
	return &XLSXSource{path: path, sheet: sheet, columns: columns}
}

// Name identifies the source in logs and errors
func (s *XLSXSource) Name() string {
	if s.sheet == "" {
		return s.path
	}
	return s.path + "#" + s.sheet
}

// Load reads every row of the sheet
func (s *XLSXSource) Load(ctx context.Context) ([]models.RawMortalityRecord, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readWorkbook(ctx, f, s.Name(), s.sheet, s.columns)
}

// ReadXLSX parses a workbook from r
func ReadXLSX(ctx context.Context, r io.Reader, name, sheet string, columns models.ColumnMap) ([]models.RawMortalityRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readWorkbook(ctx, f, name, sheet, columns)
}

func readWorkbook(ctx context.Context, f *excelize.File, name, sheet string, columns models.ColumnMap) ([]models.RawMortalityRecord, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", name)
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, &models.SchemaError{Source: name, Missing: columns.Names()}
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	positions, err := columnIndex(name, header, columns)
	if err != nil {
		return nil, err
	}
	mapper := newRowMapper(positions, columns)

	var records []models.RawMortalityRecord
	for rows.Next() {
		if len(records)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(records)+2, err)
		}
		if isBlank(row) {
			continue
		}
		records = append(records, mapper.record(row))
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate sheet %q: %w", sheet, err)
	}

	return records, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
