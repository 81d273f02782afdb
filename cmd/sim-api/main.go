package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-sim/api/swagger"
	"github.com/noah-isme/campus-sim/internal/handler"
	"github.com/noah-isme/campus-sim/internal/middleware"
	"github.com/noah-isme/campus-sim/internal/repository"
	"github.com/noah-isme/campus-sim/internal/service"
	"github.com/noah-isme/campus-sim/pkg/cache"
	"github.com/noah-isme/campus-sim/pkg/config"
	"github.com/noah-isme/campus-sim/pkg/jobs"
	"github.com/noah-isme/campus-sim/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-sim/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-sim/pkg/middleware/requestid"
	"github.com/noah-isme/campus-sim/pkg/storage"
)

// @title Campus Simulator API
// @version 0.1.0
// @description Seeds a synthetic institution and advances it week by week.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, db, err := repository.Open(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to open store", zap.Error(err))
	}
	if db != nil {
		defer db.Close() //nolint:errcheck
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	var locker repository.Locker = repository.NewMemoryLocker()
	cacheSvc := service.NewCacheService(nil, metrics, cfg.Redis.CachePrefix, cfg.Cache.TTL, logr, false)
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		locker = repository.NewRedisLocker(redisClient)
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Redis.CachePrefix, cfg.Cache.TTL, logr, true)
	}

	seeds := service.NewSeedService(store, cacheSvc, metrics, validate, logr, service.SeedConfig{
		Seed:          cfg.Simulation.Seed,
		TotalStudents: cfg.Simulation.TotalStudents,
	})
	ticks := service.NewTickService(store, locker, cacheSvc, metrics, logr, service.TickConfig{
		Seed:    cfg.Simulation.Seed,
		LockTTL: cfg.Simulation.TickLockTTL,
	})
	queries := service.NewQueryService(store, cacheSvc, logr)
	auth := service.NewAuthService(validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		AdminUsername:     cfg.Auth.AdminUsername,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
	})

	files, err := storage.NewLocalStorage(cfg.Exports.Directory)
	if err != nil {
		logr.Fatal("failed to prepare export directory", zap.Error(err))
	}
	exports := service.NewExportService(store, files, storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL}, logr, nil, nil)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.Register(r, cfg.APIPrefix, handler.Routes{
		Simulation: handler.NewSimulationHandler(seeds, ticks, queries, exports, logr),
		Auth:       handler.NewAuthHandler(auth),
		Metrics:    handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient)),
		Tokens:     auth,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	queue := jobs.NewQueue("ticks", service.NewTickWorker(ticks, logr).Handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 1,
		MaxRetries: 2,
		RetryDelay: 5 * time.Second,
		Retryable:  service.RetryableTickError,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	if cfg.Simulation.AutoTickInterval > 0 {
		go service.RunAutoTick(ctx, queue, cfg.Simulation.AutoTickInterval, logr)
		logr.Sugar().Infow("auto tick enabled", "interval", cfg.Simulation.AutoTickInterval)
	}
	go sweepExports(ctx, exports, cfg.Exports.SignedURLTTL, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func readinessChecks(db *sqlx.DB, client *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	return checks
}

// sweepExports removes stored reports once their links can no longer be valid.
func sweepExports(ctx context.Context, exports *service.ExportService, ttl time.Duration, logr *zap.Logger) {
	if ttl <= 0 {
		return
	}
	t := time.NewTicker(ttl)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			removed, err := exports.Cleanup(2 * ttl)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Sugar().Infow("exports removed", "count", len(removed))
			}
		}
	}
}
