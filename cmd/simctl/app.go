package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-sim/internal/repository"
	"github.com/noah-isme/campus-sim/internal/service"
	"github.com/noah-isme/campus-sim/pkg/cache"
	"github.com/noah-isme/campus-sim/pkg/config"
	"github.com/noah-isme/campus-sim/pkg/logger"
)

// app holds the services one command invocation needs.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   repository.Store
	seeds   *service.SeedService
	ticks   *service.TickService
	queries *service.QueryService

	db    *sqlx.DB
	redis *redis.Client
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Log.Format = "console"
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, db, err := repository.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	metrics := service.NewMetricsService()
	var locker repository.Locker = repository.NewMemoryLocker()
	cacheSvc := service.NewCacheService(nil, metrics, cfg.Redis.CachePrefix, cfg.Cache.TTL, logr, false)
	if client != nil {
		// Same lock key and cache namespace as the API so a CLI tick cannot
		// race a server tick and never leaves stale reads behind.
		locker = repository.NewRedisLocker(client)
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(client, logr), metrics, cfg.Redis.CachePrefix, cfg.Cache.TTL, logr, true)
	}

	return &app{
		cfg:    cfg,
		logger: logr,
		store:  store,
		seeds: service.NewSeedService(store, cacheSvc, metrics, nil, logr, service.SeedConfig{
			Seed:          cfg.Simulation.Seed,
			TotalStudents: cfg.Simulation.TotalStudents,
		}),
		ticks: service.NewTickService(store, locker, cacheSvc, metrics, logr, service.TickConfig{
			Seed:    cfg.Simulation.Seed,
			LockTTL: cfg.Simulation.TickLockTTL,
		}),
		queries: service.NewQueryService(store, cacheSvc, logr),
		db:      db,
		redis:   client,
	}, nil
}

func (a *app) Close() {
	_ = a.logger.Sync()
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// printResult writes v as JSON when --json is set and falls back to text otherwise.
func printResult(cmd *cobra.Command, v interface{}, text func(w io.Writer)) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(cmd.OutOrStdout())
	return nil
}
