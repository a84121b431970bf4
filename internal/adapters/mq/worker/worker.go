// Package worker runs independent batch jobs on a bounded pool.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/orgchart/pkg/logger"
	"github.com/okian/orgchart/pkg/metrics"
)

// ErrJobPanicked wraps a panic raised inside a job.
var ErrJobPanicked = errors.New("job panicked")

// Job is one independent unit of batch work.
type Job[T any] func(ctx context.Context) (T, error)

// Result is the outcome of the job at Index.
type Result[T any] struct {
	Index   int
	Value   T
	Err     error
	Latency time.Duration
}

// Pool bounds how many jobs run concurrently.
type Pool struct {
	size   int
	name   string
	logger logger.Logger
}

// NewPool creates a pool sized to the CPU count unless WithSize says
// otherwise.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		size:   runtime.NumCPU(),
		name:   "batch",
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named(p.name)

	metrics.UpdateWorkerCount(p.size)
	return p
}

// Size returns the concurrency limit.
func (p *Pool) Size() int { return p.size }

// Run executes every job and returns results in job order. A failing job
// never cancels the others; jobs not yet started when ctx is done report
// ctx.Err().
func Run[T any](ctx context.Context, p *Pool, jobs []Job[T]) []Result[T] {
	results := make([]Result[T], len(jobs))

	var g errgroup.Group
	g.SetLimit(p.size)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = runJob(ctx, p, i, job)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func runJob[T any](ctx context.Context, p *Pool, i int, job Job[T]) (res Result[T]) {
	res.Index = i
	if err := ctx.Err(); err != nil {
		res.Err = err
		metrics.RecordBatchJob("canceled", 0)
		return res
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
		res.Latency = time.Since(start)

		outcome := "ok"
		if res.Err != nil {
			outcome = "error"
			p.logger.Warn(ctx, "batch job failed", logger.Int("job", i), logger.Error(res.Err))
		}
		metrics.RecordBatchJob(outcome, float64(res.Latency.Milliseconds()))
	}()

	res.Value, res.Err = job(ctx)
	return res
}
