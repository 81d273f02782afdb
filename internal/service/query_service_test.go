package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-sim/internal/repository"
	appErrors "github.com/noah-isme/campus-sim/pkg/errors"
)

type memoryCacheRepo struct {
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

func TestCacheServiceKeyAndInvalidateAll(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, "campus", time.Minute, nil, true)
	ctx := context.Background()

	assert.Equal(t, "campus:risks:2020SP", cache.Key("risks", "2020SP"))
	require.NoError(t, cache.Set(ctx, cache.Key("state"), map[string]int{"n": 1}, 0))
	repo.entries["other:key"] = []byte(`1`)

	var dest map[string]int
	hit, err := cache.Get(ctx, cache.Key("state"), &dest)
	require.NoError(t, err)
	assert.True(t, hit)

	require.NoError(t, cache.InvalidateAll(ctx))
	hit, err = cache.Get(ctx, cache.Key("state"), &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Contains(t, repo.entries, "other:key")

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))
}

func TestCacheServiceDisabled(t *testing.T) {
	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	assert.Equal(t, "a:b", nilCache.Key("a", "b"))
	assert.NoError(t, nilCache.InvalidateAll(context.Background()))

	cache := NewCacheService(newMemoryCacheRepo(), nil, "campus", 0, nil, false)
	hit, err := cache.Get(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestQueryServicePeriodsAndRisks(t *testing.T) {
	store := seededStore(t)
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, "campus", time.Minute, nil, true)
	svc := NewQueryService(store, cache, nil)
	ctx := context.Background()

	periods, err := svc.Periods(ctx)
	require.NoError(t, err)
	require.Len(t, periods, 6)
	assert.Contains(t, repo.entries, "campus:periods")

	res, err := svc.PeriodRisks(ctx, " 2020sp ")
	require.NoError(t, err)
	assert.Equal(t, "2020SP", res.Period.Code)
	assert.NotEmpty(t, res.Risks)
	total := 0
	for _, n := range res.Buckets {
		total += n
	}
	assert.Equal(t, len(res.Risks), total)

	// a cached payload is served until invalidated
	cachedRes, err := svc.PeriodRisks(ctx, "2020SP")
	require.NoError(t, err)
	assert.Equal(t, len(res.Risks), len(cachedRes.Risks))

	_, err = svc.PeriodRisks(ctx, "1999FA")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = svc.PeriodRisks(ctx, "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestQueryServiceState(t *testing.T) {
	store := seededStore(t)
	svc := NewQueryService(store, nil, nil)
	ctx := context.Background()

	_, err := svc.State(ctx)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = newTestTickService(store, nil).AdvanceWeek(ctx)
	require.NoError(t, err)

	view, err := svc.State(ctx)
	require.NoError(t, err)
	require.NotNil(t, view.ActivePeriod)
	assert.Equal(t, "2020SP", view.ActivePeriod.Code)
}

func TestQueryServiceNotSeeded(t *testing.T) {
	svc := NewQueryService(repository.NewMemoryStore(), nil, nil)
	_, err := svc.Periods(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrNotSeeded))
}

func TestTickInvalidatesCache(t *testing.T) {
	store := seededStore(t)
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, "campus", time.Minute, nil, true)
	ctx := context.Background()

	_, err := NewQueryService(store, cache, nil).Periods(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, repo.entries)

	metrics := NewMetricsService()
	tick := NewTickService(store, nil, cache, metrics, nil, TickConfig{Seed: 42}).WithClock(fixedClock)
	_, err = tick.AdvanceWeek(ctx)
	require.NoError(t, err)

	for key := range repo.entries {
		assert.False(t, strings.HasPrefix(key, "campus:"), key)
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ticksTotal.WithLabelValues(tickOutcomeSuccess)))
}
