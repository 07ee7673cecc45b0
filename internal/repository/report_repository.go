package repository

import (
	"context"

	"github.com/andresuchdata/popsync/internal/domain"
)

// ReportRepository keeps a history of computed report summaries.
type ReportRepository interface {
	SaveSummary(ctx context.Context, summary *domain.Summary) error
	LatestSummary(ctx context.Context, objectKey string) (*domain.Summary, error)
}

type noopReportRepository struct{}

// NewNoopReportRepository is used when no database is configured.
func NewNoopReportRepository() ReportRepository {
	return noopReportRepository{}
}

func (noopReportRepository) SaveSummary(ctx context.Context, summary *domain.Summary) error {
	return nil
}

func (noopReportRepository) LatestSummary(ctx context.Context, objectKey string) (*domain.Summary, error) {
	return nil, domain.ErrNotFound
}
