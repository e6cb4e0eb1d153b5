package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"mortality-platform/internal/models"
)

// CSVSource reads a delimited file with a header row
type CSVSource struct {
	path    string
	columns models.ColumnMap
}

// NewCSVSource creates a CSV source for path
func NewCSVSource(path string, columns models.ColumnMap) *CSVSource {
	return &CSVSource{path: path, columns: columns}
}

// Name identifies the source in logs and errors
func (s *CSVSource) Name() string {
	return s.path
}

// Load reads the whole file
func (s *CSVSource) Load(ctx context.Context) ([]models.RawMortalityRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	return ReadCSV(ctx, f, s.path, s.columns)
}

// ReadCSV parses r with every column kept as text so that malformed numbers
// and NA-like labels reach the normalizer unchanged
func ReadCSV(ctx context.Context, r io.Reader, name string, columns models.ColumnMap) ([]models.RawMortalityRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv %s: %w", name, err)
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithLazyQuotes(true),
		dataframe.NaNValues([]string{}),
	)
	if df.Err != nil {
		// gota rejects a frame without data rows; a bare header is an empty table
		if header, ok := headerOnly(data); ok {
			if _, err := columnIndex(name, header, columns); err != nil {
				return nil, err
			}
			return []models.RawMortalityRecord{}, nil
		}
		return nil, fmt.Errorf("failed to parse csv %s: %w", name, df.Err)
	}

	rows := df.Records()
	positions, err := columnIndex(name, rows[0], columns)
	if err != nil {
		return nil, err
	}
	mapper := newRowMapper(positions, columns)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]models.RawMortalityRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, mapper.record(row))
	}
	return records, nil
}

// headerOnly returns the header of a CSV that has no data rows
func headerOnly(data []byte) ([]string, bool) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, false
	}
	if _, err := reader.Read(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return header, true
}
