package main

import (
	"context"

	"github.com/andresuchdata/popsync/internal/cache"
	"github.com/andresuchdata/popsync/internal/config"
	"github.com/andresuchdata/popsync/internal/fetch"
	"github.com/andresuchdata/popsync/internal/ingest"
	"github.com/andresuchdata/popsync/internal/report"
	"github.com/andresuchdata/popsync/internal/repository"
	"github.com/andresuchdata/popsync/internal/repository/postgres"
	"github.com/andresuchdata/popsync/internal/storage"
	"github.com/andresuchdata/popsync/pkg/logger"
)

func newStorage(cfg *config.Config) (storage.ObjectStorage, error) {
	return storage.New(cfg.Storage)
}

// newReportCache never fails; the cache is an optimization.
func newReportCache(cfg *config.Config) cache.ReportCache {
	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("report cache unavailable")
		return cache.NewNoopReportCache()
	}
	return reportCache
}

func newIngestService(cfg *config.Config, store storage.ObjectStorage, reportCache cache.ReportCache) *ingest.Service {
	fetcher := fetch.NewHTTPFetcher(cfg.HTTP.FetchTimeout(), cfg.HTTP.UserAgent)
	return ingest.NewService(store, fetcher, ingest.Options{
		MirrorEnabled: cfg.Sources.MirrorEnabled,
		BLSBaseURL:    cfg.Sources.BLSBaseURL,
		MirrorPrefix:  cfg.Storage.MirrorPrefix,
		PopulationAPI: cfg.Sources.PopulationAPI,
		PopulationKey: cfg.Storage.PopulationKey,
	}).WithInvalidator(reportCache)
}

// newReportRepository opens the postgres history store. It fails when the
// database is configured but unusable.
func newReportRepository(ctx context.Context, cfg *config.Config) (repository.ReportRepository, func(), error) {
	if cfg.Database.URL == "" {
		return repository.NewNoopReportRepository(), func() {}, nil
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	repo := postgres.NewReportRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, func() { db.Close() }, nil
}

// optionalReportRepository is newReportRepository for callers that can run
// without history: an unusable database degrades to the noop repository.
func optionalReportRepository(ctx context.Context, cfg *config.Config) (repository.ReportRepository, func()) {
	repo, closeFn, err := newReportRepository(ctx, cfg)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("report history unavailable, summaries will not be saved")
		return repository.NewNoopReportRepository(), func() {}
	}
	return repo, closeFn
}

// newReportJob assembles the report job. The returned func releases the
// database pool, if one was opened.
func newReportJob(ctx context.Context, cfg *config.Config, store storage.ObjectStorage, reportCache cache.ReportCache) (*report.Job, func()) {
	repo, closeFn := optionalReportRepository(ctx, cfg)

	job := report.NewJob(store, reportCache, repo, report.Options{
		PopulationKey: cfg.Storage.PopulationKey,
		StartYear:     cfg.Report.StartYear,
		EndYear:       cfg.Report.EndYear,
	})
	return job, closeFn
}
