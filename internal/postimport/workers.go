package postimport

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/datastore/internal/ir"
)

// ItemProcessor handles one dequeued resource. *Pipeline implements it.
type ItemProcessor interface {
	ProcessItem(ctx context.Context, res ir.Resource) (*Result, error)
}

// Workers drains a Queue with a fixed number of goroutines. A resource is
// handled start to finish by one worker.
type Workers struct {
	queue    *Queue
	pipeline ItemProcessor
}

// NewWorkers creates a worker pool over queue.
func NewWorkers(queue *Queue, pipeline ItemProcessor) *Workers {
	return &Workers{queue: queue, pipeline: pipeline}
}

// Run starts n workers and blocks until the queue is closed and drained,
// or ctx is cancelled. A failure to store a result stops every worker
// and is returned; failed runs are not errors here.
func (w *Workers) Run(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		worker := i
		g.Go(func() error {
			return w.loop(ctx, worker)
		})
	}
	return g.Wait()
}

func (w *Workers) loop(ctx context.Context, worker int) error {
	for {
		if res, ok := w.queue.TryDequeue(); ok {
			result, err := w.pipeline.ProcessItem(ctx, res)
			if err != nil {
				slog.Error("post import result not stored",
					"worker", worker,
					"resource", res.Identifier(),
					"error", err,
				)
				return err
			}
			slog.Info("post import finished",
				"worker", worker,
				"resource", res.Identifier(),
				"status", result.Status,
				"run_id", result.RunID,
			)
			continue
		}

		if w.queue.Closed() && w.queue.Len() == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.queue.Wait():
		}
	}
}
