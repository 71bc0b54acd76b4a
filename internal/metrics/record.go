package metrics

import "time"

// RunInfo is the configuration snapshot a run is executed with.
type RunInfo struct {
	URL           string  `json:"url"`
	Method        string  `json:"method"`
	RPS           float64 `json:"rps"`
	RequestsCount int     `json:"requests_count"`
}

// RunRecord is the full history of one run.
// Outcomes are kept in completion order. Summary is nil until the run is
// finalized.
type RunRecord struct {
	ID       string    `json:"id"`
	Info     RunInfo   `json:"info"`
	InitTime time.Time `json:"init_time"`
	EndTime  time.Time `json:"end_time"`
	Outcomes []Outcome `json:"outcomes"`
	Summary  *Summary  `json:"summary,omitempty"`
}

// Finalized reports whether summary statistics have been computed.
func (r RunRecord) Finalized() bool {
	return r.Summary != nil
}

// Summary holds the statistics computed once at the end of a run.
// Ratio and latency fields are NaN when the run recorded no outcomes.
type Summary struct {
	Successes      int64   `json:"successes"`
	Failures       int64   `json:"failures"`
	SuccessPercent float64 `json:"success_percent"`
	ErrorPercent   float64 `json:"error_percent"`

	// ElapsedStdDevMs is the population standard deviation of per-request
	// elapsed times.
	ElapsedStdDevMs float64 `json:"elapsed_stddev_ms"`
	MinTimeMs       float64 `json:"min_time_ms"`
	MaxTimeMs       float64 `json:"max_time_ms"`
	MeanTimeMs      float64 `json:"mean_time_ms"`
	P50TimeMs       float64 `json:"p50_time_ms"`
	P90TimeMs       float64 `json:"p90_time_ms"`
	P99TimeMs       float64 `json:"p99_time_ms"`

	TotalElapsedMs float64        `json:"total_elapsed_ms"`
	RequestsPerSec float64        `json:"requests_per_sec"`
	StatusCodes    []StatusCount  `json:"status_codes"`
	Errors         map[string]int `json:"errors,omitempty"`
}

// Completed returns the number of outcomes the summary covers.
func (s Summary) Completed() int64 {
	return s.Successes + s.Failures
}
