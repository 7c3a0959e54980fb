// Package taskrunner generalizes the teacher repository's sop.TaskRunner (a
// thin errgroup wrapper) into the background-task group that runs this
// engine's Flusher writes. The Reclaimer loop runs in its own goroutine,
// outside this group.
package taskrunner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Runner bounds the number of concurrently running background tasks
// (flush writes) and collects their errors.
type Runner struct {
	eg  *errgroup.Group
	ctx context.Context
}

// New creates a Runner scoped to ctx. maxConcurrency <= 0 means unbounded,
// matching errgroup's default.
func New(ctx context.Context, maxConcurrency int) *Runner {
	eg, ctx2 := errgroup.WithContext(ctx)
	if maxConcurrency > 0 {
		eg.SetLimit(maxConcurrency)
	}
	return &Runner{eg: eg, ctx: ctx2}
}

// Context returns the group's derived context, canceled on the first
// task error.
func (r *Runner) Context() context.Context { return r.ctx }

// Go schedules task to run, blocking the caller only if the concurrency
// limit is currently saturated.
func (r *Runner) Go(task func() error) {
	r.eg.Go(task)
}

// Wait blocks until every scheduled task has returned, and returns the
// first non-nil error, if any.
func (r *Runner) Wait() error {
	return r.eg.Wait()
}
