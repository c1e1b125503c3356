package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

const heartbeatInterval = time.Minute

type consumer interface {
	Name() string
	Run(ctx context.Context) error
}

type dependency struct {
	name string
	ping func(context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies []dependency
	Consumers    []consumer
}

// Service runs every order event consumer until one of them stops.
type Service struct {
	logg      *logger.Logger
	deps      []dependency
	consumers []consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	for _, c := range params.Consumers {
		if c == nil {
			return nil, errors.New("consumer must not be nil")
		}
	}
	return &Service{
		logg:      params.Logger,
		deps:      params.Dependencies,
		consumers: params.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := pingDependency(ctx, s.logg, dep.name, dep.ping); err != nil {
			return err
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// Run starts the consumers concurrently. The first consumer to stop cancels
// the others and its error is returned.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(s.consumers))
	for _, c := range s.consumers {
		go func(c consumer) {
			results <- result{name: c.Name(), err: c.Run(runCtx)}
		}(c)
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case res := <-results:
			cctx := s.logg.WithField(ctx, "consumer", res.name)
			if res.err != nil && !errors.Is(res.err, context.Canceled) {
				s.logg.Error(cctx, "consumer stopped unexpectedly", res.err)
				return res.err
			}
			s.logg.Warn(cctx, "consumer stopped")
			if res.err == nil {
				return fmt.Errorf("consumer %s stopped", res.name)
			}
			return res.err
		case <-ticker.C:
			s.logg.Debug(ctx, "worker heartbeat")
		}
	}
}
