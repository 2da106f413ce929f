package buildjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run drives the lifecycle until ctx is cancelled: a pool of poll workers
// claiming pending jobs, plus a scheduled sweep reverting stale building
// jobs to pending. Run returns once all workers have drained.
func (s *Service) Run(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create reclaim scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(s.cfg.ReclaimInterval),
		gocron.NewTask(func() {
			if _, err := s.Reclaim(); err != nil {
				s.logger.Error("reclaim sweep failed", zap.Error(err))
			}
		}),
		gocron.WithName("reclaim-stale-builds"),
	)
	if err != nil {
		return fmt.Errorf("schedule reclaim sweep: %w", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			s.logger.Error("scheduler shutdown failed", zap.Error(err))
		}
	}()

	workers := s.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	s.logger.Info("build workers starting", zap.Int("workers", workers))

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		worker := i
		g.Go(func() error {
			return s.pollLoop(ctx, worker)
		})
	}
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// pollLoop claims jobs until the context ends. After an empty poll it waits
// one interval; after work it immediately polls again to drain bursts.
func (s *Service) pollLoop(ctx context.Context, worker int) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		processed, err := s.ProcessOne(ctx)
		if err != nil {
			s.logger.Error("worker error", zap.Int("worker", worker), zap.Error(err))
		}
		if processed && ctx.Err() == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
