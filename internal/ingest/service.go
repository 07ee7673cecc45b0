package ingest

import (
	"context"
	"fmt"

	"github.com/andresuchdata/popsync/internal/domain"
	"github.com/andresuchdata/popsync/internal/fetch"
	"github.com/andresuchdata/popsync/internal/storage"
	"github.com/rs/zerolog/log"
)

// Options selects what an ingest run does.
type Options struct {
	MirrorEnabled bool
	BLSBaseURL    string
	MirrorPrefix  string
	PopulationAPI string
	PopulationKey string
}

// Invalidator drops derived data that a new population document makes stale.
type Invalidator interface {
	InvalidateAll(ctx context.Context) error
}

// Service runs one ingest invocation: the listing mirror, then the
// population sync.
type Service struct {
	opts        Options
	mirror      *Mirror
	population  *PopulationWriter
	invalidator Invalidator
}

func NewService(store storage.ObjectStorage, fetcher fetch.Fetcher, opts Options) *Service {
	cas := NewChangeAwareStore(store)
	return &Service{
		opts:       opts,
		mirror:     NewMirror(fetcher, cas, opts.MirrorPrefix),
		population: NewPopulationWriter(fetcher, cas, opts.PopulationKey),
	}
}

// WithInvalidator makes Run call inv after the population document changes.
func (s *Service) WithInvalidator(inv Invalidator) *Service {
	s.invalidator = inv
	return s
}

func (s *Service) Run(ctx context.Context) (domain.IngestResult, error) {
	var result domain.IngestResult
	log.Info().Msg("ingest: starting")

	if s.opts.MirrorEnabled {
		n, err := s.mirror.Mirror(ctx, s.opts.BLSBaseURL)
		if err != nil {
			return result, fmt.Errorf("ingest: %w", err)
		}
		result.MirroredFiles = n
	} else {
		result.MirrorSkipped = true
		log.Info().Msg("ingest: listing mirror disabled")
	}

	written, err := s.population.Sync(ctx, s.opts.PopulationAPI)
	if err != nil {
		return result, fmt.Errorf("ingest: %w", err)
	}
	result.PopulationWritten = written

	if written && s.invalidator != nil {
		if err := s.invalidator.InvalidateAll(ctx); err != nil {
			log.Warn().Err(err).Msg("ingest: report cache invalidation failed")
		}
	}

	log.Info().
		Int("mirrored_files", result.MirroredFiles).
		Bool("population_written", result.PopulationWritten).
		Msg("ingest: done")
	return result, nil
}
