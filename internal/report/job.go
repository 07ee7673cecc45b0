package report

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/popsync/internal/cache"
	"github.com/andresuchdata/popsync/internal/domain"
	"github.com/andresuchdata/popsync/internal/ingest"
	"github.com/andresuchdata/popsync/internal/repository"
	"github.com/andresuchdata/popsync/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	DefaultStartYear = 2013
	DefaultEndYear   = 2018
)

// Options configures a Job. Zero years fall back to the defaults.
type Options struct {
	PopulationKey string
	StartYear     int
	EndYear       int
}

// Job computes the population summary over the stored population document.
type Job struct {
	store storage.ObjectStorage
	cache cache.ReportCache
	repo  repository.ReportRepository
	opts  Options
	now   func() time.Time
}

func NewJob(store storage.ObjectStorage, cacheImpl cache.ReportCache, repo repository.ReportRepository, opts Options) *Job {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	if repo == nil {
		repo = repository.NewNoopReportRepository()
	}
	if opts.PopulationKey == "" {
		opts.PopulationKey = ingest.DefaultPopulationKey
	}
	if opts.StartYear == 0 && opts.EndYear == 0 {
		opts.StartYear, opts.EndYear = DefaultStartYear, DefaultEndYear
	}
	return &Job{
		store: store,
		cache: cacheImpl,
		repo:  repo,
		opts:  opts,
		now:   time.Now,
	}
}

// Run loads the population document and summarizes it. An empty year range
// is reported through Summary.HasData, not as an error.
func (j *Job) Run(ctx context.Context) (*domain.Summary, error) {
	key := j.opts.PopulationKey

	digest := j.recordedDigest(ctx, key)
	cacheKey := cache.ReportKey{ObjectKey: key, Digest: digest, StartYear: j.opts.StartYear, EndYear: j.opts.EndYear}
	if digest != "" {
		if cached, ok, err := j.cache.GetSummary(ctx, cacheKey); err == nil && ok {
			log.Info().Str("key", key).Str("sha256", digest).Msg("report: cache hit")
			logSummary(cached)
			return cached, nil
		} else if err != nil {
			log.Warn().Err(err).Msg("report: cache get summary failed")
		}
	}

	data, _, err := j.store.GetObject(ctx, key)
	if storage.IsNotFound(err) {
		return nil, fmt.Errorf("report: population document %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("report: load %s: %w", key, err)
	}
	if actual := ingest.Digest(data); actual != digest {
		// Either no digest was recorded or the object changed since the stat.
		digest = actual
		cacheKey.Digest = actual
	}

	records, err := ParseRecords(data)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	summary := j.summarize(key, digest, records)
	logSummary(summary)

	if err := j.cache.SetSummary(ctx, cacheKey, summary); err != nil {
		log.Warn().Err(err).Msg("report: cache set summary failed")
	}
	if err := j.repo.SaveSummary(ctx, summary); err != nil {
		log.Warn().Err(err).Msg("report: save summary failed")
	}

	return summary, nil
}

func (j *Job) summarize(key, digest string, records []domain.PopulationRecord) *domain.Summary {
	inRange := FilterYears(records, j.opts.StartYear, j.opts.EndYear)
	mean, stddev, ok := MeanStdDev(inRange)
	return &domain.Summary{
		Key:         key,
		Digest:      digest,
		StartYear:   j.opts.StartYear,
		EndYear:     j.opts.EndYear,
		Count:       len(inRange),
		Mean:        mean,
		StdDev:      stddev,
		HasData:     ok,
		GeneratedAt: j.now().UTC(),
	}
}

// recordedDigest returns the digest stored in the object's metadata, or ""
// when it cannot be determined without downloading the payload.
func (j *Job) recordedDigest(ctx context.Context, key string) string {
	info, err := j.store.StatObject(ctx, key)
	if err != nil {
		if !storage.IsNotFound(err) {
			log.Warn().Err(err).Str("key", key).Msg("report: metadata lookup failed")
		}
		return ""
	}
	return info.MetadataValue(ingest.DigestMetadataKey)
}

func logSummary(s *domain.Summary) {
	if !s.HasData {
		log.Info().
			Int("start_year", s.StartYear).
			Int("end_year", s.EndYear).
			Msgf("report: no rows found in %d-%d range", s.StartYear, s.EndYear)
		return
	}
	log.Info().
		Int("records", s.Count).
		Float64("mean", s.Mean).
		Float64("stddev", s.StdDev).
		Msgf("report: population %d-%d mean=%.2f stddev=%.2f", s.StartYear, s.EndYear, s.Mean, s.StdDev)
}
