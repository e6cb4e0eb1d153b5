package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mortality-platform/internal/models"
	"mortality-platform/internal/normalize"
)

func raw(j, g, s string, year, month, deaths interface{}) models.RawMortalityRecord {
	return models.RawMortalityRecord{Jurisdiction: j, Group: g, Subgroup: s, Year: year, Month: month, DeathCount: deaths}
}

func clean(raws ...models.RawMortalityRecord) []models.MortalityRecord {
	out := make([]models.MortalityRecord, len(raws))
	for i, r := range raws {
		out[i] = normalize.Record(r)
	}
	return out
}

func TestFilter_SelectsOnePartition(t *testing.T) {
	records := clean(
		raw("US", "Sex", "Male", "2020", "1", "1,000"),
		raw("US", "Sex", "Female", "2020", "1", "500"),
		raw("US", "Age", "0-17", "2020", "1", "10"),
	)

	c := Filter(records, models.Target{Jurisdiction: "US", Group: "Sex"})
	require.Equal(t, 2, c.Len())
	assert.Equal(t, []float64{1000, 500}, c.DeathCounts())
	assert.Equal(t, []string{"Male", "Female"}, c.Subgroups())
}

func TestFilter_Counts(t *testing.T) {
	records := clean(
		raw("US", "Sex", "Male", "2020", "1", "1,000"),
		raw("US", "Sex", "Female", "2020", "1", "N/A"),
		raw("US", "Sex", "Female", "", "1", "20"),
		raw("US", "Age", "0-17", "2020", "1", "10"),
		raw("Texas", "Sex", "Male", "2020", "1", "10"),
	)

	c, counts := FilterWithCounts(records, models.Target{Jurisdiction: "US", Group: "Sex"})
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, Counts{Input: 5, TargetMismatch: 2, MissingRequired: 2, Kept: 1}, counts)
}

func TestFilter_CaseSensitive(t *testing.T) {
	records := clean(
		raw("United States", "Sex", "Male", "2020", "1", "5"),
		raw("united states", "Sex", "Male", "2020", "1", "5"),
		raw("United States", "sex", "Male", "2020", "1", "5"),
		raw("United States ", "Sex", "Male", "2020", "1", "5"),
	)

	c := Filter(records, models.Target{Jurisdiction: "United States", Group: "Sex"})
	assert.Equal(t, 1, c.Len())
}

func TestFilter_NotAvailableExcludedRegardlessOfOtherFields(t *testing.T) {
	records := clean(raw("US", "Sex", "Male", "2020", "1", "N/A"))

	c := Filter(records, models.Target{Jurisdiction: "US", Group: "Sex"})
	assert.True(t, c.IsEmpty())
}

func TestFilter_MissingMonthKept(t *testing.T) {
	records := clean(raw("US", "Sex", "Male", "2020", "", "5"))

	c := Filter(records, models.Target{Jurisdiction: "US", Group: "Sex"})
	require.Equal(t, 1, c.Len())
	assert.Nil(t, c.Records()[0].Month)
}

func TestFilter_EmptyAndUnknownTarget(t *testing.T) {
	records := clean(raw("US", "Sex", "Male", "2020", "1", "5"))

	empty := Filter(nil, models.Target{Jurisdiction: "US", Group: "Sex"})
	assert.True(t, empty.IsEmpty())
	assert.Empty(t, empty.DeathCounts())

	unknown := Filter(records, models.Target{Jurisdiction: "Atlantis", Group: "Sex"})
	assert.True(t, unknown.IsEmpty())
}

func TestFilter_Idempotent(t *testing.T) {
	records := clean(
		raw("US", "Sex", "Male", "2020", "1", "1,000"),
		raw("US", "Sex", "Female", "2020", "2", "500"),
		raw("US", "Race", "Asian", "2020", "1", "3"),
		raw("US", "Sex", "Female", "2021", "1", ""),
	)
	target := models.Target{Jurisdiction: "US", Group: "Sex"}

	once := Filter(records, target)
	twice := Refilter(once, target)
	assert.Equal(t, once.Records(), twice.Records())
	assert.Equal(t, once.Target(), twice.Target())
}

func TestFilter_DoesNotAliasInput(t *testing.T) {
	records := clean(raw("US", "Sex", "Male", "2020", "1", "5"))
	c := Filter(records, models.Target{Jurisdiction: "US", Group: "Sex"})

	records[0].Subgroup = "changed"
	assert.Equal(t, "Male", c.Records()[0].Subgroup)
}
