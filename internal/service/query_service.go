package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-sim/internal/models"
	appErrors "github.com/noah-isme/campus-sim/pkg/errors"
)

type queryStore interface {
	GetSimulationState(ctx context.Context) (*models.SimulationState, error)
	ListPeriods(ctx context.Context) ([]models.AcademicPeriod, error)
	FindPeriodByCode(ctx context.Context, code string) (*models.AcademicPeriod, error)
	ListRisksByPeriod(ctx context.Context, periodID string) ([]models.StudentRisk, error)
}

// StateView is the clock plus the period it currently falls in.
type StateView struct {
	State        models.SimulationState `json:"state"`
	ActivePeriod *models.AcademicPeriod `json:"active_period,omitempty"`
}

// PeriodRisks lists the risk rows of one period with per-bucket counts.
type PeriodRisks struct {
	Period  models.AcademicPeriod     `json:"period"`
	Buckets map[models.RiskBucket]int `json:"buckets"`
	Risks   []models.StudentRisk      `json:"risks"`
}

// QueryService serves the read side consumers poll between ticks.
type QueryService struct {
	store  queryStore
	cache  *CacheService
	logger *zap.Logger
}

// NewQueryService constructs a QueryService. cache may be nil.
func NewQueryService(store queryStore, cache *CacheService, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{store: store, cache: cache, logger: logger}
}

// State returns the simulated clock and the active period, if any.
func (s *QueryService) State(ctx context.Context) (*StateView, error) {
	key := s.cache.Key("state")
	var cached StateView
	if s.tryCache(ctx, key, &cached) {
		return &cached, nil
	}

	state, err := s.store.GetSimulationState(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "simulation clock not started")
		}
		return nil, appErrors.Internal(err, "failed to load simulation state")
	}
	periods, err := s.Periods(ctx)
	if err != nil {
		return nil, err
	}

	view := &StateView{State: *state}
	for i := range periods {
		p := periods[i]
		if !state.CurrentSimDate.Before(p.StartOn) && !state.CurrentSimDate.After(p.EndOn) {
			view.ActivePeriod = &p
			break
		}
	}
	s.persistCache(ctx, key, view)
	return view, nil
}

// Periods lists every period ordered by start date.
func (s *QueryService) Periods(ctx context.Context) ([]models.AcademicPeriod, error) {
	key := s.cache.Key("periods")
	var cached []models.AcademicPeriod
	if s.tryCache(ctx, key, &cached) {
		return cached, nil
	}

	periods, err := s.store.ListPeriods(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list periods")
	}
	if len(periods) == 0 {
		return nil, appErrors.ErrNotSeeded
	}
	s.persistCache(ctx, key, periods)
	return periods, nil
}

// PeriodRisks returns the risk rows of the period with the given code.
func (s *QueryService) PeriodRisks(ctx context.Context, code string) (*PeriodRisks, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period code is required")
	}

	key := s.cache.Key("risks", code)
	var cached PeriodRisks
	if s.tryCache(ctx, key, &cached) {
		return &cached, nil
	}

	period, err := s.store.FindPeriodByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.Internal(err, "failed to load period")
	}
	risks, err := s.store.ListRisksByPeriod(ctx, period.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list student risks")
	}

	out := &PeriodRisks{
		Period: *period,
		Buckets: map[models.RiskBucket]int{
			models.RiskBucketLow:    0,
			models.RiskBucketMedium: 0,
			models.RiskBucketHigh:   0,
		},
		Risks: risks,
	}
	for _, r := range risks {
		out.Buckets[r.OverallRiskBucket]++
	}
	s.persistCache(ctx, key, out)
	return out, nil
}

func (s *QueryService) tryCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		return false
	}
	return hit
}

func (s *QueryService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, 0); err != nil {
		s.logger.Warn("query cache write failed", zap.String("key", key), zap.Error(err))
	}
}
