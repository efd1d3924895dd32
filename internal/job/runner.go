// Package job runs render work off the caller's goroutine with cooperative
// cancellation.
package job

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"pageview/internal/render"
)

// Work renders one request. It must poll ctx and return once it is done.
type Work func(ctx context.Context) (image.Image, error)

// Done receives the outcome of a job. It is called from the worker goroutine.
type Done func(j *Job, img image.Image, err error)

// Job is one launched render. Its identity is the pointer: the scheduler
// compares it against its current job to detect stale completions.
type Job struct {
	id        uint64
	request   render.Request
	ctx       context.Context
	cancel    context.CancelFunc
	startedAt time.Time
}

func (j *Job) ID() uint64 {
	return j.id
}

func (j *Job) Request() render.Request {
	return j.request
}

// Adopt hands the job over to another requester.
func (j *Job) Adopt(id render.RequesterID) {
	j.request.Requester = id
}

// Cancel marks the job cancelled. The worker is not interrupted; it sees the
// cancellation the next time it checks its context.
func (j *Job) Cancel() {
	j.cancel()
}

func (j *Job) Cancelled() bool {
	return j.ctx.Err() != nil
}

func (j *Job) Elapsed() time.Duration {
	return time.Since(j.startedAt)
}

type Runner struct {
	logger *zap.Logger
	wg     sync.WaitGroup
	nextID atomic.Uint64
	jobs   atomic.Int64
}

func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{logger: logger}
}

// Start launches work for req on a new goroutine and returns immediately.
// Panics in work are recovered and reported to done as errors.
func (r *Runner) Start(req render.Request, work Work, done Done) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		id:        r.nextID.Add(1),
		request:   req,
		ctx:       ctx,
		cancel:    cancel,
		startedAt: time.Now(),
	}

	r.wg.Add(1)
	r.jobs.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.jobs.Add(-1)
		defer cancel()

		img, err := r.run(ctx, j, work)
		done(j, img, err)
	}()

	return j
}

func (r *Runner) run(ctx context.Context, j *Job, work Work) (img image.Image, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Render panicked",
				zap.Uint64("job", j.id),
				zap.Int("page", j.request.Page),
				zap.Any("panic", rec),
			)
			img, err = nil, fmt.Errorf("render panicked: %v", rec)
		}
	}()
	return work(ctx)
}

// Running is the number of worker goroutines that have not returned yet,
// cancelled ones included.
func (r *Runner) Running() int {
	return int(r.jobs.Load())
}

// Wait blocks until every started worker has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}
