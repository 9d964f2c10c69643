// Package scheduler drives the batch jobs from inside the server for deployments without a cron.
package scheduler

import (
	"context"
	"errors"
	"time"

	"rent-tracking/internal/domain"
	"rent-tracking/pkg/clock"

	"go.uber.org/zap"
)

type JobRunner interface {
	Run(ctx context.Context, name domain.JobName) (*domain.JobRun, error)
}

// Scheduler generates each month once and runs the daily sweeps once per calendar day. The
// generator runs before the sweeps on the first tick of a month.
type Scheduler struct {
	runner   JobRunner
	clock    clock.Clock
	loc      *time.Location
	interval time.Duration
	log      *zap.Logger

	lastDay   time.Time
	lastMonth time.Time
}

func New(runner JobRunner, clk clock.Clock, loc *time.Location, interval time.Duration, log *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		runner:   runner,
		clock:    clk,
		loc:      loc,
		interval: interval,
		log:      log.Named("scheduler"),
	}
}

// Run ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs whatever is due now.
func (s *Scheduler) Tick(ctx context.Context) {
	today := clock.DateOf(s.clock.Now().In(s.loc))
	month := clock.Date(today.Year(), today.Month(), 1)

	if !month.Equal(s.lastMonth) {
		if !s.runJob(ctx, domain.JobGenerate) {
			return
		}
		s.lastMonth = month
	}

	if today.Equal(s.lastDay) {
		return
	}
	for _, job := range []domain.JobName{domain.JobCheckPayments, domain.JobProcessReminders} {
		if !s.runJob(ctx, job) {
			return
		}
	}
	s.lastDay = today
}

// runJob reports whether the job can be considered done for this period. A run held by another
// process counts as done.
func (s *Scheduler) runJob(ctx context.Context, job domain.JobName) bool {
	_, err := s.runner.Run(ctx, job)
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrJobAlreadyRunning):
		s.log.Info("job already running elsewhere", zap.String("job", string(job)))
		return true
	default:
		s.log.Error("scheduled job failed, retrying next tick", zap.String("job", string(job)), zap.Error(err))
		return false
	}
}
