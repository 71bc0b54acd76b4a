package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/pacer/internal/metrics"
)

// Sender issues one HTTP request and reports its status code and error.
// A response with a status code >= 400 is reported with both set; a
// transport failure is reported with a zero status code.
type Sender interface {
	Send(ctx context.Context, method, target string) (int, error)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, method, target string) (int, error)

func (f SenderFunc) Send(ctx context.Context, method, target string) (int, error) {
	return f(ctx, method, target)
}

// Reporter renders the run banner and the final report.
type Reporter interface {
	Banner(info metrics.RunInfo)
	Report(record metrics.RunRecord) error
}

// CutoverPolicy decides what happens to requests still in flight when the
// completion target is reached.
type CutoverPolicy string

const (
	// CutoverStrict waits for every dispatched request before finalizing.
	CutoverStrict CutoverPolicy = "strict"
	// CutoverLoose finalizes as soon as the target is reached; late
	// outcomes are dropped.
	CutoverLoose CutoverPolicy = "loose"
)

// ArrivalModel selects how ticks are spaced.
type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// Options configure the Runner.
type Options struct {
	URL            string
	Method         string
	RatePerSecond  float64                         // ticks per second; <= 0 means unpaced
	TotalRequests  int                             // completed outcomes to wait for
	Concurrency    int                             // max in-flight requests (0 means unbounded)
	Cutover        CutoverPolicy                   // defaults to CutoverStrict
	ArrivalModel   ArrivalModel                    // defaults to ArrivalModelUniform
	Sender         Sender                          // HTTP collaborator (required)
	Reporter       Reporter                        // optional
	Aggregator     *metrics.Aggregator             // created from the options when nil
	LimiterFactory func(rps float64) *rate.Limiter // optional injection for tests
	PoissonSampler func() float64                  // optional injection for tests
	RandomSeed     int64
}

func (o *Options) normalize() {
	if o.Concurrency < 0 {
		o.Concurrency = 0
	}
	if o.TotalRequests < 0 {
		o.TotalRequests = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.Method == "" {
		o.Method = "GET"
	}
	switch o.Cutover {
	case CutoverStrict, CutoverLoose:
	default:
		o.Cutover = CutoverStrict
	}
	switch o.ArrivalModel {
	case ArrivalModelUniform, ArrivalModelPoisson:
	default:
		o.ArrivalModel = ArrivalModelUniform
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps float64) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// A single dispatch goroutine consumes the tokens, so burst 1
			// gives exactly one tick per 1/rps.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
	if o.Aggregator == nil {
		o.Aggregator = metrics.NewAggregator(o.runInfo())
	}
}

func (o Options) runInfo() metrics.RunInfo {
	return metrics.RunInfo{
		URL:           o.URL,
		Method:        o.Method,
		RPS:           o.RatePerSecond,
		RequestsCount: o.TotalRequests,
	}
}
