package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-sim/internal/models"
	"github.com/noah-isme/campus-sim/internal/random"
	appErrors "github.com/noah-isme/campus-sim/pkg/errors"
)

// maxSeedSpan bounds how many calendar years one seed may cover.
const maxSeedSpan = 10

type seedStore interface {
	ReplaceAll(ctx context.Context, data *models.Dataset) error
}

type cacheInvalidator interface {
	InvalidateAll(ctx context.Context) error
}

// SeedRequest is the year range of a Seed call.
type SeedRequest struct {
	YearStart int `json:"year_start" validate:"required,gte=1900,lte=2200"`
	YearEnd   int `json:"year_end" validate:"required,gtefield=YearStart,lte=2200"`
}

// SeedConfig fixes the generator inputs that are not part of a request.
type SeedConfig struct {
	Seed          int64
	TotalStudents int
}

// SeedService regenerates the whole dataset from the fixed seed.
type SeedService struct {
	store      seedStore
	reference  *ReferenceGenerator
	population *PopulationGenerator
	cache      cacheInvalidator
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        SeedConfig
	now        func() time.Time
}

// NewSeedService constructs a SeedService. cache and metrics may be nil.
func NewSeedService(store seedStore, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg SeedConfig) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.TotalStudents <= 0 {
		cfg.TotalStudents = 1200
	}
	return &SeedService{
		store:      store,
		reference:  NewReferenceGenerator(logger),
		population: NewPopulationGenerator(logger),
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the wall clock used to label periods and bound the backfill.
func (s *SeedService) WithClock(now func() time.Time) *SeedService {
	if now != nil {
		s.now = now
	}
	return s
}

// Build generates the dataset without persisting it.
func (s *SeedService) Build(req SeedRequest) (*models.Dataset, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	now := s.now()
	rng := random.New(s.cfg.Seed)
	ref := s.reference.Generate(rng, ReferenceConfig{
		YearStart:        req.YearStart,
		YearEnd:          req.YearEnd,
		ExpectedStudents: s.cfg.TotalStudents,
		Now:              now,
	})
	pop := s.population.Generate(rng, ref, PopulationConfig{
		TotalStudents: s.cfg.TotalStudents,
		Now:           now,
	})

	return &models.Dataset{
		Periods:       ref.Periods,
		Programs:      ref.Programs,
		Courses:       ref.Courses,
		Sections:      ref.Sections,
		Persons:       pop.Persons,
		Students:      pop.Students,
		Registrations: pop.Registrations,
		Transcripts:   pop.Transcripts,
		Credentials:   pop.Credentials,
		Risks:         pop.Risks,
	}, nil
}

// Seed clears every simulator entity, including the clock, and writes a freshly generated dataset.
func (s *SeedService) Seed(ctx context.Context, req SeedRequest) (*models.SeedSummary, error) {
	start := time.Now()
	data, err := s.Build(req)
	if err != nil {
		return nil, err
	}

	if err := s.store.ReplaceAll(ctx, data); err != nil {
		s.logger.Error("seed persist failed", zap.Error(err))
		return nil, appErrors.Internal(err, "failed to persist seeded dataset")
	}

	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			s.logger.Warn("cache invalidation after seed failed", zap.Error(err))
		}
	}

	summary := data.Summary()
	summary.YearStart, summary.YearEnd = req.YearStart, req.YearEnd
	s.metrics.ObserveSeed(time.Since(start), summary)
	s.logger.Sugar().Infow("seed complete",
		"year_start", req.YearStart,
		"year_end", req.YearEnd,
		"periods", summary.Periods,
		"sections", summary.Sections,
		"students", summary.Students,
		"registrations", summary.Registrations,
		"transcripts", summary.Transcripts,
		"credentials", summary.Credentials,
		"risks", summary.Risks,
		"duration", time.Since(start),
	)
	return &summary, nil
}

func (s *SeedService) validate(req SeedRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid seed range")
	}
	if span := req.YearEnd - req.YearStart + 1; span > maxSeedSpan {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("seed range spans %d years; at most %d allowed", span, maxSeedSpan))
	}
	return nil
}
