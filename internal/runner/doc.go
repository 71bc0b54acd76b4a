// Package runner provides the rate-paced request dispatcher for pacer.
//
// A [Runner] fires one tick every 1/RatePerSecond seconds. Each tick issues
// a request through a [Sender] in its own goroutine, so slow responses never
// delay the next tick. Every outcome, success or failure, is recorded on a
// [metrics.Aggregator]; once the aggregator has seen TotalRequests completed
// outcomes the runner stops ticking, finalizes the aggregator and hands the
// record to a [Reporter].
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		URL:           "http://localhost:8080/items",
//		Method:        http.MethodGet,
//		RatePerSecond: 10,
//		TotalRequests: 100,
//		Sender:        sender,
//		Reporter:      reporter,
//	})
//	result, err := r.Run(ctx)
//
// # Cutover
//
// Requests dispatched before the target is reached may still be in flight.
// [CutoverStrict] waits for them, so the record holds every dispatched
// request and may exceed TotalRequests. [CutoverLoose] finalizes at once and
// the aggregator drops the stragglers.
//
// # Concurrency
//
// In-flight requests are unbounded by default. Options.Concurrency caps
// them; a tick then waits for a free slot before dispatching.
//
// # Middleware
//
// Senders can be wrapped:
//   - [WithLogging]: log request failures
//   - [WithRetry]: retry with backoff; the tick records the last attempt
package runner
