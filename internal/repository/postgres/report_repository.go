package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/popsync/internal/domain"
	"github.com/andresuchdata/popsync/internal/repository"
	"github.com/jmoiron/sqlx"
)

var schemaStatements = []string{`
	CREATE TABLE IF NOT EXISTS population_reports (
		id           BIGSERIAL PRIMARY KEY,
		object_key   TEXT             NOT NULL,
		sha256       TEXT             NOT NULL,
		start_year   INTEGER          NOT NULL,
		end_year     INTEGER          NOT NULL,
		record_count INTEGER          NOT NULL,
		mean         DOUBLE PRECISION NOT NULL,
		stddev       DOUBLE PRECISION NOT NULL,
		has_data     BOOLEAN          NOT NULL,
		generated_at TIMESTAMPTZ      NOT NULL
	)`, `
	CREATE INDEX IF NOT EXISTS population_reports_key_generated_idx
		ON population_reports (object_key, generated_at DESC)`,
}

const insertPopulationReport = `
	INSERT INTO population_reports
		(object_key, sha256, start_year, end_year, record_count, mean, stddev, has_data, generated_at)
	VALUES
		(:object_key, :sha256, :start_year, :end_year, :record_count, :mean, :stddev, :has_data, :generated_at)
`

const selectLatestPopulationReport = `
	SELECT object_key, sha256, start_year, end_year, record_count, mean, stddev, has_data, generated_at
	FROM population_reports
	WHERE object_key = $1
	ORDER BY generated_at DESC
	LIMIT 1
`

type ReportRepository struct {
	db *DB
}

func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// EnsureSchema creates the report history table if it does not exist.
func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create population_reports: %w", err)
			}
		}
		return nil
	})
}

func (r *ReportRepository) SaveSummary(ctx context.Context, summary *domain.Summary) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertPopulationReport, summary); err != nil {
			return fmt.Errorf("failed to insert population report: %w", err)
		}
		return nil
	})
}

func (r *ReportRepository) LatestSummary(ctx context.Context, objectKey string) (*domain.Summary, error) {
	var summary domain.Summary
	err := r.db.GetContext(ctx, &summary, selectLatestPopulationReport, objectKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no report for %s: %w", objectKey, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest population report: %w", err)
	}
	return &summary, nil
}

var _ repository.ReportRepository = (*ReportRepository)(nil)
