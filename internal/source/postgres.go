package source

import (
	"context"

	"mortality-platform/internal/models"
	"mortality-platform/internal/repository"
)

// RepositorySource adapts a MortalityRepository to Source
type RepositorySource struct {
	name string
	repo repository.MortalityRepository
}

// NewRepositorySource wraps repo; name is used in logs only
func NewRepositorySource(name string, repo repository.MortalityRepository) *RepositorySource {
	return &RepositorySource{name: name, repo: repo}
}

// Name identifies the source in logs and errors
func (s *RepositorySource) Name() string {
	return s.name
}

// Load reads every row of the staging table
func (s *RepositorySource) Load(ctx context.Context) ([]models.RawMortalityRecord, error) {
	return s.repo.ListRawRecords(ctx)
}

// Static serves an in-memory slice, for tests and embedding callers
type Static struct {
	name    string
	records []models.RawMortalityRecord
}

// NewStatic wraps records as a Source
func NewStatic(name string, records []models.RawMortalityRecord) *Static {
	return &Static{name: name, records: records}
}

// Name identifies the source in logs and errors
func (s *Static) Name() string {
	return s.name
}

// Load returns a copy of the wrapped records
func (s *Static) Load(ctx context.Context) ([]models.RawMortalityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.RawMortalityRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}
