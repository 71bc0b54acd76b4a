// Package metrics accumulates the outcomes of a load run and computes its
// summary statistics.
//
// An [Aggregator] owns the single [RunRecord] of a run. Request goroutines
// hand it one [Outcome] each through [Aggregator.RecordOutcome]; the
// dispatcher polls [Aggregator.CompletedCount] to decide when to stop and
// then calls [Aggregator.Finalize] once:
//
//	agg := metrics.NewAggregator(metrics.RunInfo{URL: url, Method: "GET", RPS: 10, RequestsCount: 100})
//	agg.Start()
//	agg.RecordOutcome(metrics.NewOutcome(start, time.Now(), 200, nil))
//	summary := agg.Finalize()
//
// # Success and failure
//
// An outcome succeeds when it carries a status code below 400. Outcomes
// without a status code, such as refused connections or timeouts, are
// failures.
//
// # Summary
//
// Success and error percentages are relative to the configured request
// count. Min and max are taken from a sorted copy of the elapsed times so the
// record keeps completion order. The status histogram lists codes in the
// order they were first seen; outcomes without a code are counted under 0.
// With no outcomes recorded, ratio and latency fields are NaN.
package metrics
