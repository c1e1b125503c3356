package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

// PurgeFunc deletes rows older than cutoff and reports how many went.
type PurgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// RetentionTarget is one table swept by the retention job.
type RetentionTarget struct {
	Name   string
	Window time.Duration
	Purge  PurgeFunc
}

type RetentionJobParams struct {
	Logger  *logger.Logger
	Targets []RetentionTarget
}

// NewRetentionJob sweeps each target independently; one failing target does
// not stop the others.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if len(params.Targets) == 0 {
		return nil, errors.New("at least one retention target required")
	}
	for _, target := range params.Targets {
		switch {
		case target.Name == "":
			return nil, errors.New("retention target name required")
		case target.Purge == nil:
			return nil, fmt.Errorf("retention target %s has no purge func", target.Name)
		case target.Window <= 0:
			return nil, fmt.Errorf("retention target %s needs a positive window", target.Name)
		}
	}
	return &retentionJob{logg: params.Logger, targets: params.Targets, now: time.Now}, nil
}

type retentionJob struct {
	logg    *logger.Logger
	targets []RetentionTarget
	now     func() time.Time
}

func (j *retentionJob) Name() string { return "retention" }

func (j *retentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs error
	for _, target := range j.targets {
		cutoff := now.Add(-target.Window)
		tctx := j.logg.WithFields(ctx, map[string]any{"target": target.Name, "cutoff": cutoff})

		deleted, err := target.Purge(ctx, cutoff)
		if err != nil {
			j.logg.Error(tctx, "retention.purge_failed", err)
			errs = multierr.Append(errs, err)
			continue
		}
		j.logg.Info(j.logg.WithField(tctx, "rows_deleted", deleted), "retention.purged")
	}
	return errs
}
