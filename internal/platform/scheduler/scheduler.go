package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task is a named job run on a fixed interval.
type Task struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// Runner executes registered tasks on their intervals until stopped. Each task
// gets its own goroutine and ticker; a failing run is logged and does not stop
// the schedule.
type Runner struct {
	log    zerolog.Logger
	tasks  []Task
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{log: log}
}

// Register adds a task. Must be called before Start.
func (r *Runner) Register(t Task) {
	r.tasks = append(r.tasks, t)
}

// Start launches all registered tasks. Each task runs once immediately, then
// on every tick of its interval.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	for _, t := range r.tasks {
		r.wg.Add(1)
		go r.loop(ctx, t)
	}
}

func (r *Runner) loop(ctx context.Context, t Task) {
	defer r.wg.Done()

	run := func() {
		start := time.Now()
		if err := t.Run(ctx); err != nil {
			r.log.Error().Err(err).Str("task", t.Name).Msg("scheduled task failed")
			return
		}
		r.log.Debug().Str("task", t.Name).Dur("elapsed", time.Since(start)).Msg("scheduled task completed")
	}

	run()

	ticker := time.NewTicker(t.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// Stop cancels all task loops and waits for in-flight runs to finish.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}
