// Package dispatcher implements the Dispatcher: a bounded worker pool that
// runs a submitted handler function with the caller's telemetry span
// context re-established inside the pool goroutine. No equivalent exists
// in the teacher (its worker is a single goroutine, not a pool) so this is
// built fresh in the teacher's small-struct-wrapping-a-client idiom, atop
// a pack-wide pooling library.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"contentpulse/internal/metrics"
	"contentpulse/internal/telemetry"
)

// task is the unit of work an ants pool goroutine picks up: a captured
// span context plus the handler closure to invoke under it.
type task struct {
	ctx     context.Context
	handle  func(context.Context) bool
	resultC chan<- bool
}

// Dispatcher runs submitted tasks on a bounded goroutine pool.
type Dispatcher struct {
	pool       *ants.PoolWithFunc
	maxWorkers int
	poolName   string
	log        *slog.Logger
}

// New constructs a Dispatcher with at most maxWorkers concurrent tasks.
// poolName labels the dispatcher_queue_depth metric (e.g. "contentworker",
// "queryworker") so the two worker binaries' pools are distinguishable.
func New(maxWorkers int, poolName string, log *slog.Logger) (*Dispatcher, error) {
	d := &Dispatcher{maxWorkers: maxWorkers, poolName: poolName, log: log.With("component", "dispatcher", "pool", poolName)}

	pool, err := ants.NewPoolWithFunc(maxWorkers, func(arg any) {
		t, ok := arg.(task)
		if !ok {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("dispatcher task panicked", "recovered", r)
				t.resultC <- false
			}
			metrics.DispatcherQueueDepth.WithLabelValues(d.poolName).Dec()
		}()
		result := t.handle(t.ctx)
		t.resultC <- result
	})
	if err != nil {
		return nil, fmt.Errorf("dispatcher: new pool: %w", err)
	}
	d.pool = pool
	return d, nil
}

// MaxWorkerCount returns the configured pool size.
func (d *Dispatcher) MaxWorkerCount() int { return d.maxWorkers }

// Submit captures the span context from ctx, schedules handle to run on a
// pool goroutine with that span context restored, and returns a channel
// that receives handle's single result once it completes. Submit itself
// never blocks on handle running — only on the pool having a free slot to
// accept the task, which the Consumer's semaphore already bounds.
func (d *Dispatcher) Submit(ctx context.Context, handle func(context.Context) bool) <-chan bool {
	resultC := make(chan bool, 1)
	captured := telemetry.Capture(ctx)

	metrics.DispatcherQueueDepth.WithLabelValues(d.poolName).Inc()
	t := task{
		ctx:     captured.Restore(context.Background()),
		handle:  handle,
		resultC: resultC,
	}

	if err := d.pool.Invoke(t); err != nil {
		metrics.DispatcherQueueDepth.WithLabelValues(d.poolName).Dec()
		d.log.Error("dispatcher: submit failed", "error", err)
		resultC <- false
	}
	return resultC
}

// Close releases pool resources. With cancelPending set, queued-but-not-
// yet-started tasks are dropped immediately; tasks already running are
// never interrupted either way, matching spec.md §5's "in-flight worker
// tasks are not cancelled" guarantee.
func (d *Dispatcher) Close(cancelPending bool) {
	if cancelPending {
		d.pool.Release()
		return
	}
	d.pool.ReleaseTimeout(30 * time.Second)
}
