package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"rent-tracking/internal/domain"
	"rent-tracking/pkg/clock"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	jobRunSetKey    = "job_runs"
	jobRunKeyPrefix = "jobs:run:"
	jobLockPrefix   = "jobs:lock:"

	defaultLockTTL = 30 * time.Minute
	defaultRunsTTL = 7 * 24 * time.Hour
)

// Locker is a lease-style mutual exclusion shared by every process running jobs.
type Locker interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// RunStore is the key-value store holding job history.
type RunStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	SAdd(ctx context.Context, key string, members ...any) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...any) error
}

type JobRunnerConfig struct {
	LockTTL time.Duration
	RunsTTL time.Duration
}

// JobRunner runs the batch jobs under a lock and records each outcome.
type JobRunner struct {
	generator  *Generator
	matcher    *Matcher
	escalation *EscalationDriver
	locker     Locker
	runs       RunStore
	clock      clock.Clock
	cfg        JobRunnerConfig
	log        *zap.Logger
}

func NewJobRunner(
	generator *Generator,
	matcher *Matcher,
	escalation *EscalationDriver,
	locker Locker,
	runs RunStore,
	clk clock.Clock,
	cfg JobRunnerConfig,
	log *zap.Logger,
) *JobRunner {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.RunsTTL <= 0 {
		cfg.RunsTTL = defaultRunsTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &JobRunner{
		generator:  generator,
		matcher:    matcher,
		escalation: escalation,
		locker:     locker,
		runs:       runs,
		clock:      clk,
		cfg:        cfg,
		log:        log.Named("jobs"),
	}
}

func (r *JobRunner) Run(ctx context.Context, name domain.JobName) (*domain.JobRun, error) {
	switch name {
	case domain.JobGenerate:
		return r.run(ctx, name, func(ctx context.Context) (any, error) {
			return r.generator.GenerateMonthlyTracking(ctx)
		})
	case domain.JobCheckPayments:
		return r.run(ctx, name, func(ctx context.Context) (any, error) {
			return r.matcher.CheckPayments(ctx)
		})
	case domain.JobProcessReminders:
		return r.run(ctx, name, func(ctx context.Context) (any, error) {
			return r.escalation.ProcessReminders(ctx)
		})
	}
	return nil, fmt.Errorf("unknown job %q", name)
}

// RunGenerateFor backfills one explicit month.
func (r *JobRunner) RunGenerateFor(ctx context.Context, year, month int) (*domain.JobRun, error) {
	if month < 1 || month > 12 || year < 1 {
		return nil, domain.ErrInvalidPeriod
	}
	return r.run(ctx, domain.JobGenerate, func(ctx context.Context) (any, error) {
		return r.generator.GenerateForPeriod(ctx, year, time.Month(month))
	})
}

func (r *JobRunner) run(ctx context.Context, name domain.JobName, fn func(context.Context) (any, error)) (*domain.JobRun, error) {
	run := &domain.JobRun{
		ID:        uuid.NewString(),
		Job:       name,
		StartedAt: r.clock.Now(),
	}

	if r.locker != nil {
		key := jobLockPrefix + string(name)
		ok, err := r.locker.Acquire(ctx, key, run.ID, r.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire %s lock: %w", name, err)
		}
		if !ok {
			return nil, domain.ErrJobAlreadyRunning
		}
		defer func() {
			// the job context may already be cancelled
			if err := r.locker.Release(context.WithoutCancel(ctx), key, run.ID); err != nil {
				r.log.Warn("release job lock failed", zap.String("job", string(name)), zap.Error(err))
			}
		}()
	}

	r.log.Info("job started", zap.String("job", string(name)), zap.String("run_id", run.ID))

	summary, err := fn(ctx)
	run.Summary = summary
	run.FinishedAt = r.clock.Now()
	if err != nil {
		msg := err.Error()
		run.Error = &msg
	}

	if serr := r.saveRun(context.WithoutCancel(ctx), run); serr != nil {
		r.log.Warn("save job run failed", zap.String("run_id", run.ID), zap.Error(serr))
	}

	fields := []zap.Field{
		zap.String("job", string(name)),
		zap.String("run_id", run.ID),
		zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)),
	}
	if err != nil {
		r.log.Error("job failed", append(fields, zap.Error(err))...)
		return run, err
	}
	r.log.Info("job finished", fields...)
	return run, nil
}

func (r *JobRunner) saveRun(ctx context.Context, run *domain.JobRun) error {
	if r.runs == nil {
		return nil
	}

	data, err := json.Marshal(run)
	if err != nil {
		return err
	}

	key := jobRunKeyPrefix + run.ID
	if err := r.runs.Set(ctx, key, string(data), r.cfg.RunsTTL); err != nil {
		return err
	}
	return r.runs.SAdd(ctx, jobRunSetKey, key)
}

// ListRuns returns the most recent runs first. Members whose record expired are pruned from the set.
func (r *JobRunner) ListRuns(ctx context.Context, limit int) ([]domain.JobRun, error) {
	if r.runs == nil {
		return nil, errors.New("job history store not configured")
	}

	keys, err := r.runs.SMembers(ctx, jobRunSetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get job run keys: %w", err)
	}

	runs := make([]domain.JobRun, 0, len(keys))
	var stale []any
	for _, key := range keys {
		data, err := r.runs.Get(ctx, key)
		if err != nil {
			stale = append(stale, key)
			continue
		}

		var run domain.JobRun
		if err := json.Unmarshal([]byte(data), &run); err != nil {
			continue
		}
		runs = append(runs, run)
	}

	if len(stale) > 0 {
		if err := r.runs.SRem(ctx, jobRunSetKey, stale...); err != nil {
			r.log.Warn("prune job runs failed", zap.Error(err))
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
