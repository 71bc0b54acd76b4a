package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/torosent/pacer/internal/metrics"
)

// Result captures execution summary.
type Result struct {
	Record     metrics.RunRecord
	Dispatched int64
	Completed  int64
	Dropped    int64
	Duration   time.Duration
}

// Runner paces requests against a single target and stops once enough
// outcomes have been recorded.
type Runner struct {
	opt     Options
	agg     *metrics.Aggregator
	arrival arrivalController
	slots   *semaphore.Weighted
}

func New(opt Options) *Runner {
	opt.normalize()
	r := &Runner{
		opt:     opt,
		agg:     opt.Aggregator,
		arrival: newArrivalController(opt),
	}
	if opt.Concurrency > 0 {
		r.slots = semaphore.NewWeighted(int64(opt.Concurrency))
	}
	return r
}

// Aggregator returns the aggregator the runner records into.
func (r *Runner) Aggregator() *metrics.Aggregator {
	return r.agg
}

// Run executes the load run. It returns after the run is finalized and the
// report has been emitted; the error is the reporter's.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	r.agg.Start()
	if r.opt.Reporter != nil {
		r.opt.Reporter.Banner(r.agg.Info())
	}

	// Cancelling dispatchCtx stops new ticks. In-flight requests run on ctx
	// and are left to finish.
	dispatchCtx, stop := context.WithCancel(ctx)
	defer stop()

	target := int64(r.opt.TotalRequests)
	var dispatched int64
	var inflight sync.WaitGroup

	for target > 0 {
		if dispatchCtx.Err() != nil {
			break
		}
		if err := r.arrival.Wait(dispatchCtx); err != nil {
			break
		}
		if r.slots != nil {
			if err := r.slots.Acquire(dispatchCtx, 1); err != nil {
				break
			}
		}
		// The stop signal may have arrived while we were waiting.
		if dispatchCtx.Err() != nil {
			r.release()
			break
		}

		atomic.AddInt64(&dispatched, 1)
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			defer r.release()
			r.fire(ctx, target, stop)
		}()
	}

	if r.opt.Cutover == CutoverStrict {
		inflight.Wait()
	}

	r.agg.Finalize()
	record := r.agg.Record()

	var reportErr error
	if r.opt.Reporter != nil {
		reportErr = r.opt.Reporter.Report(record)
	}

	return Result{
		Record:     record,
		Dispatched: atomic.LoadInt64(&dispatched),
		Completed:  r.agg.CompletedCount(),
		Dropped:    r.agg.DroppedCount(),
		Duration:   time.Since(start),
	}, reportErr
}

// fire issues one request, records its outcome and signals stop once the
// completion target is reached.
func (r *Runner) fire(ctx context.Context, target int64, stop context.CancelFunc) {
	requestStart := time.Now()
	status, err := r.send(ctx)
	r.agg.RecordOutcome(metrics.NewOutcome(requestStart, time.Now(), status, err))
	if r.agg.CompletedCount() >= target {
		stop()
	}
}

func (r *Runner) send(ctx context.Context) (status int, err error) {
	if r.opt.Sender == nil {
		return 0, errNoSender
	}
	defer func() {
		if p := recover(); p != nil {
			status, err = 0, &PanicError{Value: p}
		}
	}()
	return r.opt.Sender.Send(ctx, r.opt.Method, r.opt.URL)
}

func (r *Runner) release() {
	if r.slots != nil {
		r.slots.Release(1)
	}
}
