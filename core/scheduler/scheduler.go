package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is a named, periodically-triggered unit of work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs registered jobs on independent tickers until the context is
// cancelled. A job error is logged, never fatal: the next tick retries.
type Scheduler struct {
	jobs   []Job
	logger *zap.Logger
}

// New creates a scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add registers a job. Jobs with a non-positive interval are ignored, which is
// how individual sync tasks are disabled through configuration.
func (s *Scheduler) Add(job Job) {
	if job.Interval <= 0 {
		s.logger.Info("Scheduled job disabled", zap.String("job", job.Name))
		return
	}
	s.jobs = append(s.jobs, job)
}

// Start runs all jobs and blocks until the context is cancelled. Each job runs
// once immediately, then on its ticker. Overlapping runs of different jobs are
// expected; each job's own runs never overlap with themselves.
func (s *Scheduler) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		job := job
		g.Go(func() error {
			s.runOnce(ctx, job)
			ticker := time.NewTicker(job.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					s.runOnce(ctx, job)
				}
			}
		})
	}
	return g.Wait()
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("Scheduled job failed",
			zap.String("job", job.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("Scheduled job finished",
		zap.String("job", job.Name),
		zap.Duration("elapsed", time.Since(start)),
	)
}
