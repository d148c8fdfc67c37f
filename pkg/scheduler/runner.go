package scheduler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Runner triggers all sweeps on a fixed interval.
type Runner struct {
	scheduler SchedulerService
	interval  time.Duration
	done      chan struct{}
}

func NewRunner(scheduler SchedulerService, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultConfig().Interval
	}
	return &Runner{scheduler: scheduler, interval: interval, done: make(chan struct{})}
}

// Start runs the loop in the background until ctx is cancelled. A pass that
// is underway when ctx is cancelled still finishes.
func (r *Runner) Start(ctx context.Context) {
	go r.run(ctx)
}

// Done is closed once the loop has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Infow("lifecycle scheduler started", "interval", r.interval.String())
	r.pass(ctx)
	for {
		select {
		case <-ticker.C:
			r.pass(ctx)
		case <-ctx.Done():
			log.Infow("lifecycle scheduler stopped")
			return
		}
	}
}

func (r *Runner) pass(ctx context.Context) {
	for _, report := range r.scheduler.RunAll(context.WithoutCancel(ctx)) {
		if report.Scanned == 0 {
			continue
		}
		log.Infow("sweep finished",
			"sweep", report.Sweep,
			"scanned", report.Scanned,
			"advanced", report.Advanced,
			"skipped", report.Skipped,
			"failed", report.Failed)
	}
}
