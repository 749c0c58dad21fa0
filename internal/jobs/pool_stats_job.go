package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"invite-exchange/internal/models"
)

// PoolSummarizer is satisfied by *services.PoolStatsService
type PoolSummarizer interface {
	Summary(ctx context.Context) (*models.PoolSummary, error)
}

// PoolStatsJob periodically logs the state of the code pool
type PoolStatsJob struct {
	stats     PoolSummarizer
	interval  time.Duration
	log       *zap.Logger
	scheduler gocron.Scheduler
}

// NewPoolStatsJob creates a new pool stats job
func NewPoolStatsJob(stats PoolSummarizer, interval time.Duration, log *zap.Logger) *PoolStatsJob {
	return &PoolStatsJob{
		stats:    stats,
		interval: interval,
		log:      log,
	}
}

// Start schedules the job. It is a no-op when the interval is not positive.
func (j *PoolStatsJob) Start() error {
	if j.interval <= 0 {
		return nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(j.interval),
		gocron.NewTask(j.RunOnce),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule pool stats job: %w", err)
	}

	sched.Start()
	j.scheduler = sched
	j.log.Info("Pool stats job started", zap.Duration("interval", j.interval))
	return nil
}

// Stop shuts the scheduler down and waits for a running task
func (j *PoolStatsJob) Stop() error {
	if j.scheduler == nil {
		return nil
	}
	j.log.Info("Stopping pool stats job")
	return j.scheduler.Shutdown()
}

// RunOnce logs a single summary
func (j *PoolStatsJob) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := j.stats.Summary(ctx)
	if err != nil {
		j.log.Error("Failed to summarise pool", zap.Error(err))
		return
	}

	j.log.Info("Pool stats",
		zap.Int64("active_codes", summary.ActiveCodes),
		zap.Int64("remaining_uses", summary.RemainingUses),
		zap.Int64("claims_today", summary.ClaimsToday),
		zap.Int64("codes_posted_today", summary.CodesPostedToday),
	)
}
