package runner_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/torosent/pacer/internal/metrics"
	"github.com/torosent/pacer/internal/runner"
)

// fakeSender simulates a request with fixed latency and status.
type fakeSender struct {
	latency  time.Duration
	status   int
	err      error
	calls    int64
	inflight int64
	peak     int64
}

func (f *fakeSender) Send(ctx context.Context, method, target string) (int, error) {
	atomic.AddInt64(&f.calls, 1)
	cur := atomic.AddInt64(&f.inflight, 1)
	defer atomic.AddInt64(&f.inflight, -1)
	for {
		peak := atomic.LoadInt64(&f.peak)
		if cur <= peak || atomic.CompareAndSwapInt64(&f.peak, peak, cur) {
			break
		}
	}
	select {
	case <-time.After(f.latency):
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return f.status, f.err
}

type recordingReporter struct {
	mu      sync.Mutex
	banners []metrics.RunInfo
	reports []metrics.RunRecord
	err     error
}

func (r *recordingReporter) Banner(info metrics.RunInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banners = append(r.banners, info)
}

func (r *recordingReporter) Report(record metrics.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, record)
	return r.err
}

func TestRunnerStopsAfterTotalCompletions(t *testing.T) {
	sender := &fakeSender{latency: time.Millisecond, status: 200}
	rep := &recordingReporter{}
	r := runner.New(runner.Options{
		URL:           "http://example.test",
		Method:        "GET",
		RatePerSecond: 200,
		TotalRequests: 10,
		Sender:        sender,
		Reporter:      rep,
	})

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Completed < 10 {
		t.Fatalf("completed = %d, want >= 10", res.Completed)
	}
	if res.Completed != res.Dispatched {
		t.Fatalf("strict cutover: completed %d != dispatched %d", res.Completed, res.Dispatched)
	}
	if got := atomic.LoadInt64(&sender.calls); got != res.Dispatched {
		t.Fatalf("sender called %d times, dispatched %d", got, res.Dispatched)
	}
	summary := res.Record.Summary
	if summary == nil {
		t.Fatal("record not finalized")
	}
	if summary.Successes+summary.Failures != res.Completed {
		t.Fatalf("successes+failures = %d, want %d", summary.Successes+summary.Failures, res.Completed)
	}
	if got := metrics.SumStatusCounts(summary.StatusCodes); int64(got) != res.Completed {
		t.Fatalf("histogram sums to %d, want %d", got, res.Completed)
	}
	if len(rep.banners) != 1 || len(rep.reports) != 1 {
		t.Fatalf("reporter called banner=%d report=%d times, want 1/1", len(rep.banners), len(rep.reports))
	}
	if rep.banners[0].RequestsCount != 10 || rep.banners[0].RPS != 200 {
		t.Fatalf("banner payload = %+v", rep.banners[0])
	}
	if !rep.reports[0].Finalized() {
		t.Fatal("reporter received an unfinalized record")
	}
}

func TestRunnerPacesTicks(t *testing.T) {
	sender := &fakeSender{status: 200}
	r := runner.New(runner.Options{
		URL:           "http://example.test",
		RatePerSecond: 50,
		TotalRequests: 6,
		Sender:        sender,
	})

	start := time.Now()
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	elapsed := time.Since(start)

	// Six ticks at 50 rps need five 20ms gaps.
	if elapsed < 90*time.Millisecond {
		t.Fatalf("run finished in %s, want >= ~100ms", elapsed)
	}
	if res.Completed < 6 {
		t.Fatalf("completed = %d, want >= 6", res.Completed)
	}
}

func TestRunnerDoesNotWaitForSlowRequests(t *testing.T) {
	sender := &fakeSender{latency: 200 * time.Millisecond, status: 200}
	r := runner.New(runner.Options{
		URL:           "http://example.test",
		RatePerSecond: 100,
		TotalRequests: 5,
		Sender:        sender,
	})

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Ticks keep firing while the first requests are outstanding.
	if atomic.LoadInt64(&sender.peak) < 5 {
		t.Fatalf("peak in-flight = %d, want >= 5", sender.peak)
	}
	if res.Dispatched <= 5 {
		t.Fatalf("dispatched = %d, want overshoot beyond 5", res.Dispatched)
	}
	if res.Completed != res.Dispatched {
		t.Fatalf("strict cutover: completed %d != dispatched %d", res.Completed, res.Dispatched)
	}
}

func TestRunnerLooseCutoverDropsStragglers(t *testing.T) {
	sender := &fakeSender{latency: 50 * time.Millisecond, status: 200}
	r := runner.New(runner.Options{
		URL:           "http://example.test",
		RatePerSecond: 200,
		TotalRequests: 3,
		Cutover:       runner.CutoverLoose,
		Sender:        sender,
	})

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Completed < 3 {
		t.Fatalf("completed = %d, want >= 3", res.Completed)
	}
	if int64(len(res.Record.Outcomes)) != res.Completed {
		t.Fatalf("record holds %d outcomes, completed %d", len(res.Record.Outcomes), res.Completed)
	}
	if res.Dispatched <= res.Completed {
		t.Fatalf("expected stragglers: dispatched %d, completed %d", res.Dispatched, res.Completed)
	}

	// Stragglers finish after finalization and are dropped.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && r.Aggregator().CompletedCount()+r.Aggregator().DroppedCount() < res.Dispatched {
		time.Sleep(5 * time.Millisecond)
	}
	if r.Aggregator().CompletedCount() != res.Completed {
		t.Fatalf("completed count moved after finalize: %d -> %d", res.Completed, r.Aggregator().CompletedCount())
	}
	if r.Aggregator().DroppedCount() == 0 {
		t.Fatal("expected dropped stragglers")
	}
}

func TestRunnerConcurrencyBound(t *testing.T) {
	sender := &fakeSender{latency: 20 * time.Millisecond, status: 200}
	r := runner.New(runner.Options{
		URL:           "http://example.test",
		RatePerSecond: 1000,
		TotalRequests: 12,
		Concurrency:   2,
		Sender:        sender,
	})

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if peak := atomic.LoadInt64(&sender.peak); peak > 2 {
		t.Fatalf("peak in-flight = %d, want <= 2", peak)
	}
	if res.Completed < 12 {
		t.Fatalf("completed = %d, want >= 12", res.Completed)
	}
}

func TestRunnerRecordsFailures(t *testing.T) {
	tests := []struct {
		name   string
		sender runner.Sender
		status int
	}{
		{
			name:   "transport error",
			sender: &fakeSender{err: errors.New("connection refused")},
			status: 0,
		},
		{
			name:   "server error",
			sender: &fakeSender{status: 503, err: &runner.HTTPError{StatusCode: 503}},
			status: 503,
		},
		{
			name: "panicking sender",
			sender: runner.SenderFunc(func(context.Context, string, string) (int, error) {
				panic("boom")
			}),
			status: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runner.New(runner.Options{
				URL:           "http://example.test",
				RatePerSecond: 500,
				TotalRequests: 4,
				Sender:        tt.sender,
			})
			res, err := r.Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			s := res.Record.Summary
			if s.Successes != 0 || s.Failures != res.Completed {
				t.Fatalf("successes/failures = %d/%d, completed %d", s.Successes, s.Failures, res.Completed)
			}
			for _, o := range res.Record.Outcomes {
				if o.StatusCode != tt.status || o.Error == "" {
					t.Fatalf("outcome = %+v, want status %d with error", o, tt.status)
				}
			}
		})
	}
}

func TestRunnerZeroRequestsFinalizesEmpty(t *testing.T) {
	sender := &fakeSender{status: 200}
	rep := &recordingReporter{}
	r := runner.New(runner.Options{
		URL:           "http://example.test",
		RatePerSecond: 10,
		TotalRequests: 0,
		Sender:        sender,
		Reporter:      rep,
	})

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Dispatched != 0 || sender.calls != 0 {
		t.Fatalf("dispatched %d requests, want none", res.Dispatched)
	}
	if !math.IsNaN(res.Record.Summary.SuccessPercent) || !math.IsNaN(res.Record.Summary.ElapsedStdDevMs) {
		t.Fatalf("expected NaN summary fields, got %+v", res.Record.Summary)
	}
	if len(rep.reports) != 1 {
		t.Fatalf("report called %d times, want 1", len(rep.reports))
	}
}

func TestRunnerStopsOnCancel(t *testing.T) {
	sender := &fakeSender{status: 200}
	r := runner.New(runner.Options{
		URL:           "http://example.test",
		RatePerSecond: 20,
		TotalRequests: 1000,
		Sender:        sender,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("run ignored cancellation, took %s", elapsed)
	}
	if res.Completed >= 1000 {
		t.Fatalf("completed = %d, expected early stop", res.Completed)
	}
	if res.Record.Summary == nil {
		t.Fatal("cancelled run was not finalized")
	}
}

func TestRunnerReturnsReporterError(t *testing.T) {
	rep := &recordingReporter{err: errors.New("write failed")}
	r := runner.New(runner.Options{
		URL:           "http://example.test",
		RatePerSecond: 100,
		TotalRequests: 1,
		Sender:        &fakeSender{status: 200},
		Reporter:      rep,
	})
	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected reporter error")
	}
}
