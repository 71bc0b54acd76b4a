package metrics

import (
	"crypto/rand"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/oklog/ulid/v2"
)

// Aggregator accumulates request outcomes for one run and computes the
// summary exactly once. It is safe for concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	record    RunRecord
	hist      *hdrhistogram.Histogram
	statuses  *statusHistogram
	errors    map[string]int
	completed atomic.Int64
	dropped   atomic.Int64
	summary   *Summary
	now       func() time.Time
}

// NewAggregator creates an Aggregator for a run described by info.
func NewAggregator(info RunInfo) *Aggregator {
	return newAggregator(info, time.Now)
}

func newAggregator(info RunInfo, now func() time.Time) *Aggregator {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Aggregator{
		record: RunRecord{
			ID:   ulid.MustNew(ulid.Timestamp(now()), rand.Reader).String(),
			Info: info,
		},
		hist:     h,
		statuses: newStatusHistogram(),
		errors:   make(map[string]int),
		now:      now,
	}
}

// Start stamps the run's init time. Calling it again resets the stamp
// unless the run has already been finalized.
func (a *Aggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.summary != nil {
		return
	}
	a.record.InitTime = a.now()
}

// Info returns the run's configuration snapshot.
func (a *Aggregator) Info() RunInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.record.Info
}

// RecordOutcome appends an outcome in completion order and bumps the
// completed counter. Outcomes arriving after Finalize are dropped and
// RecordOutcome returns false.
func (a *Aggregator) RecordOutcome(o Outcome) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.summary != nil {
		a.dropped.Add(1)
		return false
	}

	a.record.Outcomes = append(a.record.Outcomes, o)

	// Sub-microsecond and zero latencies land in the lowest bucket.
	us := o.Elapsed.Microseconds()
	if us < a.hist.LowestTrackableValue() {
		us = a.hist.LowestTrackableValue()
	}
	if us > a.hist.HighestTrackableValue() {
		us = a.hist.HighestTrackableValue()
	}
	_ = a.hist.RecordValue(us)

	a.statuses.add(o.StatusCode)
	if !o.Succeeded() {
		kind := o.ErrorKind
		if kind == "" {
			kind = KindRequest
			if o.HasStatus() {
				kind = KindHTTP
			}
		}
		a.errors[kind]++
	}

	a.completed.Add(1)
	return true
}

// CompletedCount returns the number of outcomes recorded so far.
func (a *Aggregator) CompletedCount() int64 {
	return a.completed.Load()
}

// DroppedCount returns the number of outcomes rejected after finalization.
func (a *Aggregator) DroppedCount() int64 {
	return a.dropped.Load()
}

// Finalize stamps the end time and computes the run summary. Only the first
// call computes; later calls return the same summary.
func (a *Aggregator) Finalize() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.summary != nil {
		return *a.summary
	}

	a.record.EndTime = a.now()
	if a.record.InitTime.IsZero() {
		a.record.InitTime = a.record.EndTime
	}
	summary := a.computeLocked()
	a.summary = &summary
	a.record.Summary = &summary
	return summary
}

// Record returns a copy of the run record.
func (a *Aggregator) Record() RunRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.record
	rec.Outcomes = append([]Outcome(nil), a.record.Outcomes...)
	if a.summary != nil {
		s := *a.summary
		s.StatusCodes = append([]StatusCount(nil), a.summary.StatusCodes...)
		s.Errors = copyCounts(a.summary.Errors)
		rec.Summary = &s
	}
	return rec
}

func (a *Aggregator) computeLocked() Summary {
	outcomes := a.record.Outcomes
	total := float64(a.record.Info.RequestsCount)
	totalElapsed := a.record.EndTime.Sub(a.record.InitTime)

	s := Summary{
		StatusCodes:    a.statuses.counts(),
		Errors:         copyCounts(a.errors),
		TotalElapsedMs: durationMs(totalElapsed),
	}
	for _, o := range outcomes {
		if o.Succeeded() {
			s.Successes++
		} else {
			s.Failures++
		}
	}

	if len(outcomes) == 0 {
		nan := math.NaN()
		s.SuccessPercent, s.ErrorPercent = nan, nan
		s.ElapsedStdDevMs, s.MinTimeMs, s.MaxTimeMs, s.MeanTimeMs = nan, nan, nan, nan
		s.P50TimeMs, s.P90TimeMs, s.P99TimeMs = nan, nan, nan
		return s
	}

	// Percentages are relative to the configured request count, not to the
	// number of outcomes actually recorded.
	s.SuccessPercent = float64(s.Successes) / total * 100
	s.ErrorPercent = float64(s.Failures) / total * 100

	sorted := make([]float64, len(outcomes))
	for i, o := range outcomes {
		sorted[i] = o.ElapsedMs
	}
	sort.Float64s(sorted)
	s.MinTimeMs = sorted[0]
	s.MaxTimeMs = sorted[len(sorted)-1]
	s.MeanTimeMs, s.ElapsedStdDevMs = meanStdDev(sorted)

	s.P50TimeMs = a.percentileMs(50, s.MinTimeMs, s.MaxTimeMs)
	s.P90TimeMs = a.percentileMs(90, s.MinTimeMs, s.MaxTimeMs)
	s.P99TimeMs = a.percentileMs(99, s.MinTimeMs, s.MaxTimeMs)

	if totalElapsed > 0 {
		s.RequestsPerSec = float64(len(outcomes)) / totalElapsed.Seconds()
	}
	return s
}

// percentileMs reads a quantile from the histogram. Buckets report their
// upper edge, so the value is clamped to the observed range.
func (a *Aggregator) percentileMs(q, minMs, maxMs float64) float64 {
	if a.hist.TotalCount() == 0 {
		return math.NaN()
	}
	v := float64(a.hist.ValueAtQuantile(q)) / 1000
	return math.Min(math.Max(v, minMs), maxMs)
}

// meanStdDev returns the mean and population standard deviation of values.
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

func copyCounts(in map[string]int) map[string]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
