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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/grievance-api/api/swagger"
	"github.com/noah-isme/grievance-api/internal/grievance"
	"github.com/noah-isme/grievance-api/internal/handler"
	"github.com/noah-isme/grievance-api/internal/repository"
	"github.com/noah-isme/grievance-api/internal/router"
	"github.com/noah-isme/grievance-api/internal/service"
	"github.com/noah-isme/grievance-api/pkg/cache"
	"github.com/noah-isme/grievance-api/pkg/config"
	"github.com/noah-isme/grievance-api/pkg/database"
	"github.com/noah-isme/grievance-api/pkg/logger"
)

// @title Grievance API
// @version 1.0.0
// @description Grievance classification, submission and lifecycle tracking
// @BasePath /api/v1
// @schemes http

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

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db, logr)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if len(applied) > 0 {
		logr.Info("migrations applied", zap.Strings("versions", applied))
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	metrics := service.NewMetricsService()

	var (
		cacheClient redis.Cmdable
		sequence    grievance.Sequence = grievance.NewClockSequence(nil)
	)
	if redisClient != nil {
		defer redisClient.Close()
		cacheClient = redisClient
		if cfg.Grievances.IDSequence == config.SequenceRedis {
			sequence = repository.NewSequenceRepository(redisClient, cfg.Grievances.IDSequenceKey)
		}
	} else if cfg.Grievances.IDSequence == config.SequenceRedis {
		logr.Warn("redis id sequence requested while redis is disabled, falling back to clock")
	}

	ids := grievance.NewGenerator(sequence,
		grievance.WithPrefix(cfg.Grievances.IDPrefix),
		grievance.WithMaxAttempts(cfg.Grievances.IDMaxAttempts),
		grievance.WithCollisionHook(func(id string, attempt int) {
			metrics.RecordIdentifierCollision()
			logr.Warn("grievance id collision", zap.String("grievance_id", id), zap.Int("attempt", attempt))
		}),
	)

	grievanceRepo := repository.NewGrievanceRepository(db)
	cacheRepo := repository.NewCacheRepository(cacheClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled && redisClient != nil)

	grievanceSvc := service.NewGrievanceService(grievanceRepo, ids, logr,
		service.WithGrievanceCache(cacheSvc, cfg.Stats.CacheTTL),
		service.WithGrievanceMetrics(metrics),
	)
	identity := service.NewIdentityService(service.IdentityConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	grievanceHandler := handler.NewGrievanceHandler(grievanceSvc, nil)
	if cfg.Exports.Enabled {
		exporter := service.NewExportService(grievanceSvc, cfg.Exports.MaxRows, logr)
		grievanceHandler = handler.NewGrievanceHandler(grievanceSvc, exporter)
	}

	var refresher *service.StatsRefresher
	if cfg.Stats.RefreshCron != "" {
		refresher, err = service.NewStatsRefresher(grievanceSvc, cfg.Stats.RefreshCron, logr)
		if err != nil {
			return err
		}
	}

	checks := map[string]handler.Pinger{"postgres": grievanceRepo}
	if redisClient != nil {
		checks["redis"] = cacheRepo
	}

	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		Validator:      identity,
		Grievances:     grievanceHandler,
		Taxonomy:       handler.NewTaxonomyHandler(grievanceSvc),
		Probes:         handler.NewMetricsHandler(metrics, checks, logr),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logr.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if refresher != nil {
		g.Go(func() error { return refresher.Run(gctx) })
	}

	return g.Wait()
}
