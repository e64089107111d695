// Package scheduler runs the periodic reward box sweeps and the ledger
// reconciliation.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/aimd54/reward-economy/internal/cache"
	"github.com/aimd54/reward-economy/internal/config"
	prommetrics "github.com/aimd54/reward-economy/internal/metrics"
	"github.com/aimd54/reward-economy/internal/service/boxes"
	"github.com/aimd54/reward-economy/internal/service/reconcile"
	"github.com/aimd54/reward-economy/pkg/logger"
)

// Job names, used in metrics, logs and lock keys.
const (
	JobBoxGeneration   = "box_generation"
	JobBoxExpiry       = "box_expiry"
	JobLedgerReconcile = "ledger_reconcile"
)

// BoxSweeper is the box lifecycle work the scheduler drives.
type BoxSweeper interface {
	Generate(ctx context.Context) (boxes.GenerateResult, error)
	Expire(ctx context.Context) (int64, error)
}

// Reconciler checks balances against the ledger.
type Reconciler interface {
	Run(ctx context.Context) (reconcile.Result, error)
}

// Service handles sweep scheduling. When several instances run, a Redis lock
// keeps each tick to a single runner.
type Service struct {
	config     *config.SchedulerConfig
	sweeper    BoxSweeper
	reconciler Reconciler
	locks      cache.Cache
	log        *logger.Logger
	cron       *cron.Cron
}

// NewService creates a new scheduler service. A nil locks runs every tick
// locally without coordination. A nil reconciler or an empty
// LedgerReconcile schedule leaves reconciliation unscheduled.
func NewService(cfg *config.SchedulerConfig, sweeper BoxSweeper, reconciler Reconciler, locks cache.Cache, log *logger.Logger) *Service {
	return &Service{
		config:     cfg,
		sweeper:    sweeper,
		reconciler: reconciler,
		locks:      locks,
		log:        log,
	}
}

// ValidateSchedule checks a standard five-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Timezone, err)
	}

	type job struct {
		name     string
		schedule string
		run      func(ctx context.Context) error
	}
	jobs := []job{
		{JobBoxGeneration, s.config.BoxGeneration, s.generate},
		{JobBoxExpiry, s.config.BoxExpiry, s.expire},
	}
	if s.reconciler != nil && s.config.LedgerReconcile != "" {
		jobs = append(jobs, job{JobLedgerReconcile, s.config.LedgerReconcile, s.reconcile})
	}

	s.cron = cron.New(cron.WithLocation(location))
	for _, job := range jobs {
		if err := ValidateSchedule(job.schedule); err != nil {
			return fmt.Errorf("%s: %w", job.name, err)
		}
		name, run := job.name, job.run
		if _, err := s.cron.AddFunc(job.schedule, func() {
			s.RunJob(context.Background(), name, run)
		}); err != nil {
			return fmt.Errorf("failed to register %s job: %w", job.name, err)
		}
		s.log.Info().Str("job", job.name).Str("schedule", job.schedule).Msg("Scheduler job registered")
	}

	s.cron.Start()

	nextRun := ""
	if entries := s.cron.Entries(); len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("timezone", s.config.Timezone).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// RunJob runs one tick of a job under its lock and records the outcome.
// It returns the status recorded: success, error or skipped.
func (s *Service) RunJob(ctx context.Context, name string, run func(ctx context.Context) error) string {
	start := time.Now()

	acquired, release := s.lock(ctx, name)
	if !acquired {
		s.log.Debug().Str("job", name).Msg("Job already running elsewhere, skipping")
		prommetrics.RecordSchedulerJobRun(name, "skipped")
		return "skipped"
	}
	defer release()

	defer func() {
		prommetrics.ObserveSchedulerJobDuration(name, time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun(name)
	}()

	if err := run(ctx); err != nil {
		s.log.Error().
			Err(err).
			Str("job", name).
			Dur("duration", time.Since(start)).
			Msg("Scheduler job failed")
		prommetrics.RecordSchedulerJobRun(name, "error")
		return "error"
	}

	prommetrics.RecordSchedulerJobRun(name, "success")
	return "success"
}

func lockKey(name string) string {
	return "scheduler:lock:" + name
}

// lock takes the job's lock. A lock store failure lets the job run: every
// job tolerates concurrent runs, the lock only saves duplicate work.
func (s *Service) lock(ctx context.Context, name string) (bool, func()) {
	noop := func() {}
	if s.locks == nil {
		return true, noop
	}

	key := lockKey(name)
	token := uuid.NewString()
	ok, err := s.locks.SetNX(ctx, key, token, s.config.LockTTL())
	if err != nil {
		s.log.Warn().Err(err).Str("job", name).Msg("Failed to take scheduler lock, running unlocked")
		return true, noop
	}
	if !ok {
		return false, noop
	}

	return true, func() {
		released, err := s.locks.DelIfValue(context.Background(), key, token)
		if err != nil {
			s.log.Warn().Err(err).Str("job", name).Msg("Failed to release scheduler lock")
			return
		}
		if !released {
			s.log.Warn().Str("job", name).Msg("Scheduler lock expired before the run finished")
		}
	}
}

func (s *Service) generate(ctx context.Context) error {
	result, err := s.sweeper.Generate(ctx)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		s.log.Warn().Int("failed", result.Failed).Int("scanned", result.Scanned).Msg("Some accounts did not get a box")
	}
	return nil
}

func (s *Service) expire(ctx context.Context) error {
	_, err := s.sweeper.Expire(ctx)
	return err
}

// reconcile fails the run when drift is found so the error status alerts.
func (s *Service) reconcile(ctx context.Context) error {
	result, err := s.reconciler.Run(ctx)
	if err != nil {
		return err
	}
	if n := len(result.Mismatches); n > 0 {
		return fmt.Errorf("%d of %d accounts do not match their ledger", n, result.Scanned)
	}
	return nil
}
