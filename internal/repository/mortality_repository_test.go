package repository

import (
	"testing"

	"mortality-platform/internal/models"
)

func TestBuildSelectQuery(t *testing.T) {
	columns := models.ColumnMap{
		Jurisdiction: "jurisdiction_residence",
		Group:        "group",
		Subgroup:     "subgroup1",
		Year:         "year",
		Month:        "month",
		DeathCount:   "COVID_deaths",
	}

	tests := []struct {
		name  string
		table string
		want  string
	}{
		{
			name:  "plain table",
			table: "provisional_deaths",
			want: `SELECT COALESCE("jurisdiction_residence"::text, '') AS jurisdiction, ` +
				`COALESCE("group"::text, '') AS group_label, ` +
				`COALESCE("subgroup1"::text, '') AS subgroup, ` +
				`"year" AS year, "month" AS month, "COVID_deaths" AS death_count ` +
				`FROM "provisional_deaths"`,
		},
		{
			name:  "schema qualified",
			table: "staging.provisional_deaths",
			want: `SELECT COALESCE("jurisdiction_residence"::text, '') AS jurisdiction, ` +
				`COALESCE("group"::text, '') AS group_label, ` +
				`COALESCE("subgroup1"::text, '') AS subgroup, ` +
				`"year" AS year, "month" AS month, "COVID_deaths" AS death_count ` +
				`FROM "staging"."provisional_deaths"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildSelectQuery(tt.table, columns); got != tt.want {
				t.Errorf("buildSelectQuery() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestQuoteQualified_EscapesQuotes(t *testing.T) {
	got := quoteQualified(`bad"name`)
	if got != `"bad""name"` {
		t.Errorf("quoteQualified() = %s", got)
	}
}

func TestNotFoundError(t *testing.T) {
	err := &NotFoundError{Resource: "table", ID: "provisional_deaths"}

	if err.Error() != "table not found: provisional_deaths" {
		t.Errorf("Error() = %v", err.Error())
	}
	if err.IsTransient() {
		t.Error("NotFoundError should not be transient")
	}
}

func TestBuildCreateTable(t *testing.T) {
	columns := models.ColumnMap{
		Jurisdiction: "jurisdiction_residence",
		Group:        "group",
		Subgroup:     "subgroup1",
		Year:         "year",
		Month:        "month",
		DeathCount:   "COVID_deaths",
	}

	got := buildCreateTable("staging.provisional_deaths", columns)
	want := `CREATE TABLE IF NOT EXISTS "staging"."provisional_deaths" (` +
		`"jurisdiction_residence" TEXT, "group" TEXT, "subgroup1" TEXT, ` +
		`"year" TEXT, "month" TEXT, "COVID_deaths" TEXT)`
	if got != want {
		t.Errorf("buildCreateTable() =\n%s\nwant\n%s", got, want)
	}
}

func TestCopyStatement(t *testing.T) {
	columns := models.ColumnMap{Jurisdiction: "j", Group: "g", Subgroup: "s", Year: "y", Month: "m", DeathCount: "d"}

	if got := copyStatement("deaths", columns); got != `COPY "deaths" ("j", "g", "s", "y", "m", "d") FROM STDIN` {
		t.Errorf("copyStatement() = %s", got)
	}
	if got := copyStatement("raw.deaths", columns); got != `COPY "raw"."deaths" ("j", "g", "s", "y", "m", "d") FROM STDIN` {
		t.Errorf("copyStatement() = %s", got)
	}
}

func TestCellText(t *testing.T) {
	tests := []struct {
		in   interface{}
		want interface{}
	}{
		{nil, nil},
		{"1,234", "1,234"},
		{[]byte("12"), "12"},
		{int64(2020), "2020"},
		{12.5, "12.5"},
	}
	for _, tt := range tests {
		if got := cellText(tt.in); got != tt.want {
			t.Errorf("cellText(%#v) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
