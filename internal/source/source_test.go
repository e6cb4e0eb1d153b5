package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"mortality-platform/internal/config"
	"mortality-platform/internal/models"
	"mortality-platform/pkg/logging"
	"mortality-platform/pkg/metrics"
)

var testColumns = models.ColumnMap{
	Jurisdiction: "jurisdiction_residence",
	Group:        "group",
	Subgroup:     "subgroup1",
	Year:         "year",
	Month:        "month",
	DeathCount:   "COVID_deaths",
}

const sampleCSV = `data_as_of,jurisdiction_residence,year,month,group,subgroup1,COVID_deaths
09/27/2023,United States,2020,1,Sex,Female,"1,234"
09/27/2023,United States,2020,2,Sex,Male, 500
09/27/2023,Alabama,2020,1,Sex,Male,10
09/27/2023,United States,N/A,3,Sex,Male,
`

func TestReadCSV(t *testing.T) {
	records, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV), "sample.csv", testColumns)
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, models.RawMortalityRecord{
		Jurisdiction: "United States",
		Group:        "Sex",
		Subgroup:     "Female",
		Year:         "2020",
		Month:        "1",
		DeathCount:   "1,234",
	}, records[0])

	// cells are passed through uncleaned
	assert.Equal(t, "500", strings.TrimSpace(records[1].DeathCount.(string)))
	assert.Equal(t, "Alabama", records[2].Jurisdiction)
	assert.Equal(t, "N/A", records[3].Year)
	assert.Equal(t, "", records[3].DeathCount)
}

func TestReadCSV_MissingColumns(t *testing.T) {
	data := "jurisdiction_residence,group,year\nUnited States,Sex,2020\n"

	_, err := ReadCSV(context.Background(), strings.NewReader(data), "narrow.csv", testColumns)
	require.Error(t, err)

	var schemaErr *models.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "narrow.csv", schemaErr.Source)
	assert.Equal(t, []string{"subgroup1", "month", "COVID_deaths"}, schemaErr.Missing)
}

func TestReadCSV_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadCSV(ctx, strings.NewReader(sampleCSV), "sample.csv", testColumns)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadCSV_NALabelsVerbatim(t *testing.T) {
	data := "jurisdiction_residence,group,subgroup1,year,month,COVID_deaths\n" +
		"United States,Sex,NA,2020,1,NA\n" +
		"United States,Sex,NaN,2020,2,12\n"

	records, err := ReadCSV(context.Background(), strings.NewReader(data), "na.csv", testColumns)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "NA", records[0].Subgroup)
	assert.Equal(t, "NA", records[0].DeathCount)
	assert.Equal(t, "NaN", records[1].Subgroup)
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	data := "jurisdiction_residence,group,subgroup1,year,month,COVID_deaths\n"

	records, err := ReadCSV(context.Background(), strings.NewReader(data), "empty.csv", testColumns)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadCSV_HeaderOnlyMissingColumns(t *testing.T) {
	data := "jurisdiction_residence,group,year\n"

	_, err := ReadCSV(context.Background(), strings.NewReader(data), "empty.csv", testColumns)

	var schemaErr *models.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"subgroup1", "month", "COVID_deaths"}, schemaErr.Missing)
}

func TestCSVSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deaths.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	src := NewCSVSource(path, testColumns)
	assert.Equal(t, path, src.Name())

	records, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestCSVSource_MissingFile(t *testing.T) {
	src := NewCSVSource(filepath.Join(t.TempDir(), "absent.csv"), testColumns)

	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// writeWorkbook saves rows to a single-sheet workbook and returns its path
func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "deaths.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSXSource_Load(t *testing.T) {
	path := writeWorkbook(t, "Deaths", [][]interface{}{
		{"jurisdiction_residence", "group", "subgroup1", "year", "month", "COVID_deaths"},
		{"United States", "Sex", "Female", 2020, 1, "1,234"},
		{"United States", "Sex", "Male", 2020, 2, 500},
		{},
		{"United States", "Sex", "Male", 2021},
	})

	src := NewXLSXSource(path, "", testColumns)
	records, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3, "blank rows are skipped")

	assert.Equal(t, "Female", records[0].Subgroup)
	assert.Equal(t, "2020", records[0].Year)
	assert.Equal(t, "1,234", records[0].DeathCount)
	assert.Equal(t, "500", records[1].DeathCount)

	// trailing cells absent from a short row read as blank
	assert.Equal(t, "2021", records[2].Year)
	assert.Equal(t, "", records[2].Month)
	assert.Equal(t, "", records[2].DeathCount)
}

func TestXLSXSource_NamedSheet(t *testing.T) {
	path := writeWorkbook(t, "Monthly", [][]interface{}{
		{"COVID_deaths", "month", "year", "subgroup1", "group", "jurisdiction_residence"},
		{7, 3, 2022, "Male", "Sex", "United States"},
	})

	src := NewXLSXSource(path, "Monthly", testColumns)
	assert.Equal(t, path+"#Monthly", src.Name())

	records, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "United States", records[0].Jurisdiction)
	assert.Equal(t, "7", records[0].DeathCount)
	assert.Equal(t, "3", records[0].Month)
}

func TestReadXLSX_FromReader(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"jurisdiction_residence", "group", "subgroup1", "year", "month", "COVID_deaths"},
		{"United States", "Sex", "Female", 2021, 12, "2,500"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	records, err := ReadXLSX(context.Background(), buf, "upload.xlsx", "", testColumns)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Female", records[0].Subgroup)
	assert.Equal(t, "12", records[0].Month)
	assert.Equal(t, "2,500", records[0].DeathCount)
}

func TestXLSXSource_HeaderOnly(t *testing.T) {
	path := writeWorkbook(t, "Deaths", [][]interface{}{
		{"jurisdiction_residence", "group", "subgroup1", "year", "month", "COVID_deaths"},
	})

	records, err := NewXLSXSource(path, "", testColumns).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestXLSXSource_UnknownSheet(t *testing.T) {
	path := writeWorkbook(t, "Deaths", [][]interface{}{
		{"jurisdiction_residence", "group", "subgroup1", "year", "month", "COVID_deaths"},
	})

	_, err := NewXLSXSource(path, "Nope", testColumns).Load(context.Background())
	assert.Error(t, err)
}

func TestXLSXSource_MissingColumns(t *testing.T) {
	path := writeWorkbook(t, "Deaths", [][]interface{}{
		{"jurisdiction_residence", "group", "year"},
		{"United States", "Sex", 2020},
	})

	_, err := NewXLSXSource(path, "", testColumns).Load(context.Background())

	var schemaErr *models.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"subgroup1", "month", "COVID_deaths"}, schemaErr.Missing)
}

func TestColumnIndex_TrimsHeader(t *testing.T) {
	header := []string{"\ufeffjurisdiction_residence", " group ", "subgroup1", "year", "month", "COVID_deaths", "group"}

	positions, err := columnIndex("bom.csv", header, testColumns)
	require.NoError(t, err)
	assert.Equal(t, 0, positions["jurisdiction_residence"])
	assert.Equal(t, 1, positions["group"], "first occurrence wins")
}

func TestNew(t *testing.T) {
	src, err := New(KindCSV, "a.csv", "", testColumns)
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, src)

	src, err = New(KindXLSX, "a.xlsx", "Sheet1", testColumns)
	require.NoError(t, err)
	assert.IsType(t, &XLSXSource{}, src)

	_, err = New("parquet", "a.parquet", "", testColumns)
	var validationErr *models.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

type stubRepository struct {
	records []models.RawMortalityRecord
	err     error
}

func (s *stubRepository) ListRawRecords(ctx context.Context) ([]models.RawMortalityRecord, error) {
	return s.records, s.err
}

func (s *stubRepository) HealthCheck(ctx context.Context) error {
	return s.err
}

func TestRepositorySource(t *testing.T) {
	repo := &stubRepository{records: []models.RawMortalityRecord{{Jurisdiction: "United States", Year: int64(2020)}}}

	src := NewRepositorySource("provisional_deaths", repo)
	assert.Equal(t, "provisional_deaths", src.Name())

	records, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, repo.records, records)

	repo.err = errors.New("connection refused")
	_, err = src.Load(context.Background())
	assert.EqualError(t, err, "connection refused")
}

func TestStatic_ReturnsCopy(t *testing.T) {
	raws := []models.RawMortalityRecord{{Jurisdiction: "United States"}}
	src := NewStatic("fixture", raws)

	records, err := src.Load(context.Background())
	require.NoError(t, err)
	records[0].Jurisdiction = "changed"

	assert.Equal(t, "United States", raws[0].Jurisdiction)
}

func TestFromConfig_FileSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deaths.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	cfg := &config.Config{
		Source: config.SourceConfig{Type: config.SourceCSV, Path: path},
		Columns: config.ColumnConfig{
			Jurisdiction: "jurisdiction_residence",
			Group:        "group",
			Subgroup:     "subgroup1",
			Year:         "year",
			Month:        "month",
			DeathCount:   "COVID_deaths",
		},
	}
	collector := metrics.NewCollector("mortality_test", prometheus.NewRegistry())

	src, closeFn, err := FromConfig(context.Background(), cfg, logging.Discard(), collector)
	require.NoError(t, err)
	defer closeFn()

	records, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 4)

	cfg.Source.Type = "parquet"
	_, _, err = FromConfig(context.Background(), cfg, logging.Discard(), collector)
	assert.Error(t, err)
}
