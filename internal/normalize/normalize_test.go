package normalize

import (
	"context"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mortality-platform/internal/models"
)

func TestNumeric(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want *float64
	}{
		{name: "thousands separator", raw: "1,234", want: f(1234)},
		{name: "several separators", raw: "1,234,567", want: f(1234567)},
		{name: "surrounding whitespace", raw: "  500 ", want: f(500)},
		{name: "separator and whitespace", raw: " 12,000\t", want: f(12000)},
		{name: "decimal", raw: "2,020.0", want: f(2020)},
		{name: "plain number", raw: "0", want: f(0)},
		{name: "already numeric float", raw: 42.5, want: f(42.5)},
		{name: "already numeric int", raw: 7, want: f(7)},
		{name: "int64", raw: int64(2021), want: f(2021)},
		{name: "bytes", raw: []byte("3,000"), want: f(3000)},
		{name: "empty string", raw: "", want: nil},
		{name: "whitespace only", raw: "   ", want: nil},
		{name: "commas only", raw: ",,", want: nil},
		{name: "not available", raw: "N/A", want: nil},
		{name: "text", raw: "suppressed", want: nil},
		{name: "nil", raw: nil, want: nil},
		{name: "NaN text", raw: "NaN", want: nil},
		{name: "infinite text", raw: "Inf", want: nil},
		{name: "NaN float", raw: math.NaN(), want: nil},
		{name: "infinite float", raw: math.Inf(1), want: nil},
		{name: "unsupported type", raw: struct{}{}, want: nil},
		{name: "nil float pointer", raw: (*float64)(nil), want: nil},
		{name: "hex float", raw: "0x1p4", want: nil},
		{name: "hex integer", raw: "0X10", want: nil},
		{name: "underscore separator", raw: "1_000", want: nil},
		{name: "exponent", raw: "1e3", want: f(1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Numeric(tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestNumeric_ThousandsSeparatorProperty(t *testing.T) {
	for _, n := range []int{0, 7, 999, 1000, 1234, 65432, 1000000, 123456789} {
		raw := groupThousands(n)
		got := Numeric(raw)
		require.NotNil(t, got, "Numeric(%q)", raw)
		assert.Equal(t, float64(n), *got, "Numeric(%q)", raw)
	}
}

func TestCountYearMonth(t *testing.T) {
	assert.Nil(t, Count("-5"), "negative count is missing")
	require.NotNil(t, Count("1,000"))
	assert.Equal(t, 1000.0, *Count("1,000"))

	require.NotNil(t, Year("2,020"))
	assert.Equal(t, 2020, *Year("2,020"))
	require.NotNil(t, Year(2021.0))
	assert.Equal(t, 2021, *Year(2021.0))
	assert.Nil(t, Year("2020.5"))
	assert.Nil(t, Year("-1"))
	assert.Nil(t, Year("year"))

	require.NotNil(t, Month("12"))
	assert.Equal(t, 12, *Month("12"))
	assert.Nil(t, Month("0"))
	assert.Nil(t, Month("13"))
	assert.Nil(t, Month("1.5"))
	assert.Nil(t, Month(""))
}

func TestRecord(t *testing.T) {
	raw := models.RawMortalityRecord{
		Jurisdiction: "United States",
		Group:        "Sex",
		Subgroup:     "Male",
		Year:         "2020",
		Month:        "4",
		DeathCount:   "1,000",
	}

	clean := Record(raw)
	assert.Equal(t, "United States", clean.Jurisdiction)
	assert.Equal(t, "Sex", clean.Group)
	assert.Equal(t, "Male", clean.Subgroup)
	require.NotNil(t, clean.Year)
	require.NotNil(t, clean.Month)
	require.NotNil(t, clean.DeathCount)
	assert.Equal(t, 2020, *clean.Year)
	assert.Equal(t, 4, *clean.Month)
	assert.Equal(t, 1000.0, *clean.DeathCount)
	assert.True(t, clean.HasRequiredFields())

	// The raw row is untouched.
	assert.Equal(t, "1,000", raw.DeathCount)
}

func TestRecord_NotAvailableDeathCount(t *testing.T) {
	clean := Record(models.RawMortalityRecord{
		Jurisdiction: "US", Group: "Sex", Subgroup: "Male",
		Year: "2020", Month: "1", DeathCount: "N/A",
	})
	assert.Nil(t, clean.DeathCount)
	assert.False(t, clean.HasRequiredFields())
}

func TestAll_PreservesOrder(t *testing.T) {
	raws := make([]models.RawMortalityRecord, 3*minChunk+17)
	for i := range raws {
		raws[i] = models.RawMortalityRecord{
			Jurisdiction: "US",
			Group:        "Sex",
			Year:         "2020",
			Month:        "1",
			DeathCount:   groupThousands(i),
		}
	}

	for _, workers := range []int{0, 1, 4, 16} {
		out, err := All(context.Background(), raws, workers)
		require.NoError(t, err)
		require.Len(t, out, len(raws))
		for i := range out {
			require.NotNil(t, out[i].DeathCount)
			if *out[i].DeathCount != float64(i) {
				t.Fatalf("workers=%d: out[%d] = %v, want %d", workers, i, *out[i].DeathCount, i)
			}
		}
	}
}

func TestAll_Empty(t *testing.T) {
	out, err := All(context.Background(), nil, 4)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raws := make([]models.RawMortalityRecord, minChunk)
	_, err := All(ctx, raws, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	records := []models.MortalityRecord{
		Record(models.RawMortalityRecord{Year: "2020", Month: "1", DeathCount: "5"}),
		Record(models.RawMortalityRecord{Year: "", Month: "1", DeathCount: "5"}),
		Record(models.RawMortalityRecord{Year: "2020", Month: "x", DeathCount: ""}),
	}

	report := Summarize(records)
	assert.Equal(t, Report{Total: 3, MissingYear: 1, MissingMonth: 1, MissingDeathCount: 1}, report)
}

func f(v float64) *float64 { return &v }

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
