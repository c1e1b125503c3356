package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"go.uber.org/multierr"
)

const (
	defaultExpiryBatchSize = 100
	maxExpiryRounds        = 10
)

type attemptExpirer interface {
	ExpireStale(ctx context.Context, limit int) (int, error)
}

type PaymentAttemptExpiryJobParams struct {
	Logger    *logger.Logger
	Expirer   attemptExpirer
	BatchSize int
}

// NewPaymentAttemptExpiryJob cancels payment intents whose attempt outlived its TTL
// and marks the attempt expired.
func NewPaymentAttemptExpiryJob(params PaymentAttemptExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("checkout expirer required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &paymentAttemptExpiryJob{
		logg:    params.Logger,
		expirer: params.Expirer,
		batch:   batch,
	}, nil
}

type paymentAttemptExpiryJob struct {
	logg    *logger.Logger
	expirer attemptExpirer
	batch   int
}

func (j *paymentAttemptExpiryJob) Name() string { return "payment-attempt-expiry" }

// Run drains full batches until a short one comes back. Rows that fail stay
// pending and are retried next cycle; their errors are aggregated.
func (j *paymentAttemptExpiryJob) Run(ctx context.Context) error {
	var (
		total int
		errs  error
	)
	for round := 0; round < maxExpiryRounds; round++ {
		expired, err := j.expirer.ExpireStale(ctx, j.batch)
		total += expired
		if err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		if expired < j.batch {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"attempts_expired": total,
		"failures":         len(multierr.Errors(errs)),
	})
	if errs != nil {
		j.logg.Warn(logCtx, "payment attempt expiry finished with failures")
		return errs
	}
	j.logg.Info(logCtx, "payment attempt expiry complete")
	return nil
}
