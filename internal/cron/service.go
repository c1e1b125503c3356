package cron

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"github.com/angelmondragon/sunrise-backend/pkg/metrics"
)

const (
	defaultInterval   = time.Minute
	defaultJobTimeout = 4 * time.Minute
)

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronMetrics
	Interval time.Duration
	// JobTimeout bounds each job run. Keep it below the lock TTL.
	JobTimeout time.Duration
	Now        func() time.Time
}

// Service wakes up every interval and runs whichever registered jobs are due,
// holding the distributed lock for the whole cycle.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronMetrics
	interval   time.Duration
	jobTimeout time.Duration
	now        func() time.Time
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger required")
	case p.Lock == nil:
		return nil, errors.New("lock required")
	}
	s := &Service{
		logg:       p.Logger,
		registry:   p.Registry,
		lock:       p.Lock,
		metrics:    p.Metrics,
		interval:   p.Interval,
		jobTimeout: p.JobTimeout,
		now:        p.Now,
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Run executes a cycle immediately and then once per interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "scheduled run failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.metrics.LockContended()
		s.logg.Debug(ctx, "cron lock held elsewhere")
		return nil
	}
	defer func() {
		// Release even when ctx was canceled mid-cycle.
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "failed to release cron lock", err)
		}
	}()

	now := s.now()
	for _, job := range s.registry.Due(now) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.runJob(ctx, job)
		s.registry.MarkRun(job.Name(), now)
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})
	runCtx, cancel := context.WithTimeout(jobCtx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	outcome, err := s.invoke(runCtx, job)
	took := time.Since(start)
	s.metrics.ObserveRun(name, outcome, took, s.now())

	jobCtx = s.logg.WithFields(jobCtx, map[string]any{"duration_ms": took.Milliseconds(), "outcome": outcome})
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return
	}
	s.logg.Info(jobCtx, "job completed")
}

// invoke runs job, converting a panic into an error so the remaining jobs in
// the cycle still run.
func (s *Service) invoke(ctx context.Context, job Job) (outcome string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = metrics.RunPanicked
			err = fmt.Errorf("job panicked: %v\n%s", rec, debug.Stack())
		}
	}()
	if err := job.Run(ctx); err != nil {
		return metrics.RunFailed, err
	}
	return metrics.RunSucceeded, nil
}
