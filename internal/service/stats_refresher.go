package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/models"
)

type statsSource interface {
	RefreshStats(ctx context.Context) (*models.GrievanceStats, error)
}

// StatsRefresher periodically recomputes dashboard statistics so the cache and
// the status gauges stay warm between writes.
type StatsRefresher struct {
	engine  *cron.Cron
	source  statsSource
	logger  *zap.Logger
	timeout time.Duration
}

// NewStatsRefresher registers the refresh job on spec, a standard cron
// expression or descriptor such as "@every 1m".
func NewStatsRefresher(source statsSource, spec string, logger *zap.Logger) (*StatsRefresher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &StatsRefresher{
		engine:  cron.New(cron.WithLocation(time.UTC)),
		source:  source,
		logger:  logger,
		timeout: 30 * time.Second,
	}
	if _, err := r.engine.AddFunc(spec, func() { r.RefreshOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule stats refresh %q: %w", spec, err)
	}
	return r, nil
}

// RefreshOnce runs a single refresh, logging failures.
func (r *StatsRefresher) RefreshOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	stats, err := r.source.RefreshStats(ctx)
	if err != nil {
		r.logger.Warn("grievance stats refresh failed", zap.Error(err))
		return
	}
	r.logger.Debug("grievance stats refreshed", zap.Int("total", stats.Total))
}

// Run refreshes immediately, then on schedule until ctx is cancelled. It waits
// for a running job to finish before returning.
func (r *StatsRefresher) Run(ctx context.Context) error {
	r.RefreshOnce(ctx)
	r.engine.Start()
	r.logger.Info("stats refresher started")

	<-ctx.Done()
	<-r.engine.Stop().Done()
	r.logger.Info("stats refresher stopped")
	return nil
}
