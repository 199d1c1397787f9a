// Package scheduler runs a task on a fixed interval until the context
// is cancelled. The first run fires immediately so a freshly started
// watcher does not sit idle for a full interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Task is one unit of scheduled work. Errors are reported, not fatal:
// a failed cycle never stops the schedule.
type Task func(ctx context.Context) error

// Scheduler repeats a task on a fixed cadence.
type Scheduler struct {
	interval time.Duration
	logger   *slog.Logger
}

// New builds a scheduler. Intervals below one second are clamped to one
// second to guard against a zero-value config.
func New(interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval < time.Second {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{interval: interval, logger: logger}
}

// Run executes the task immediately, then on every interval tick, until
// ctx is cancelled. It returns ctx.Err() once the context ends.
func (s *Scheduler) Run(ctx context.Context, task Task) error {
	s.runOnce(ctx, task)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx, task)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task Task) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := task(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err, "elapsed", time.Since(start))
		return
	}
	s.logger.Debug("scheduled run finished", "elapsed", time.Since(start))
}
