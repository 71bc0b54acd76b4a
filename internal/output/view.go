package output

import (
	"math"
	"time"

	"github.com/torosent/pacer/internal/metrics"
)

// reportView is the encoded shape of a run. Float statistics are pointers
// so that NaN can be written as null.
type reportView struct {
	ID       string        `json:"id" yaml:"id"`
	URL      string        `json:"url" yaml:"url"`
	Method   string        `json:"method" yaml:"method"`
	RPS      float64       `json:"rps" yaml:"rps"`
	Requests int           `json:"requests" yaml:"requests"`
	InitTime time.Time     `json:"init_time" yaml:"init_time"`
	EndTime  time.Time     `json:"end_time" yaml:"end_time"`
	Summary  *summaryView  `json:"summary" yaml:"summary"`
	Outcomes []outcomeView `json:"outcomes" yaml:"outcomes"`
}

type summaryView struct {
	Completed       int64                 `json:"completed" yaml:"completed"`
	Successes       int64                 `json:"successes" yaml:"successes"`
	Failures        int64                 `json:"failures" yaml:"failures"`
	SuccessPercent  *float64              `json:"success_percent" yaml:"success_percent"`
	ErrorPercent    *float64              `json:"error_percent" yaml:"error_percent"`
	ElapsedStdDevMs *float64              `json:"elapsed_stddev_ms" yaml:"elapsed_stddev_ms"`
	MinTimeMs       *float64              `json:"min_time_ms" yaml:"min_time_ms"`
	MaxTimeMs       *float64              `json:"max_time_ms" yaml:"max_time_ms"`
	MeanTimeMs      *float64              `json:"mean_time_ms" yaml:"mean_time_ms"`
	P50TimeMs       *float64              `json:"p50_time_ms" yaml:"p50_time_ms"`
	P90TimeMs       *float64              `json:"p90_time_ms" yaml:"p90_time_ms"`
	P99TimeMs       *float64              `json:"p99_time_ms" yaml:"p99_time_ms"`
	TotalElapsedMs  *float64              `json:"total_elapsed_ms" yaml:"total_elapsed_ms"`
	RequestsPerSec  *float64              `json:"requests_per_sec" yaml:"requests_per_sec"`
	StatusCodes     []metrics.StatusCount `json:"status_codes" yaml:"status_codes"`
	Errors          map[string]int        `json:"errors,omitempty" yaml:"errors,omitempty"`
}

type outcomeView struct {
	Start      time.Time `json:"start" yaml:"start"`
	ElapsedMs  float64   `json:"elapsed_ms" yaml:"elapsed_ms"`
	StatusCode int       `json:"status_code" yaml:"status_code"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

func newReportView(record metrics.RunRecord) reportView {
	v := reportView{
		ID:       record.ID,
		URL:      record.Info.URL,
		Method:   record.Info.Method,
		RPS:      record.Info.RPS,
		Requests: record.Info.RequestsCount,
		InitTime: record.InitTime,
		EndTime:  record.EndTime,
		Outcomes: make([]outcomeView, 0, len(record.Outcomes)),
	}
	for _, o := range record.Outcomes {
		v.Outcomes = append(v.Outcomes, outcomeView{
			Start:      o.Start,
			ElapsedMs:  o.ElapsedMs,
			StatusCode: o.StatusCode,
			Error:      o.Error,
		})
	}
	if s := record.Summary; s != nil {
		v.Summary = &summaryView{
			Completed:       s.Completed(),
			Successes:       s.Successes,
			Failures:        s.Failures,
			SuccessPercent:  finite(s.SuccessPercent),
			ErrorPercent:    finite(s.ErrorPercent),
			ElapsedStdDevMs: finite(s.ElapsedStdDevMs),
			MinTimeMs:       finite(s.MinTimeMs),
			MaxTimeMs:       finite(s.MaxTimeMs),
			MeanTimeMs:      finite(s.MeanTimeMs),
			P50TimeMs:       finite(s.P50TimeMs),
			P90TimeMs:       finite(s.P90TimeMs),
			P99TimeMs:       finite(s.P99TimeMs),
			TotalElapsedMs:  finite(s.TotalElapsedMs),
			RequestsPerSec:  finite(s.RequestsPerSec),
			StatusCodes:     s.StatusCodes,
			Errors:          s.Errors,
		}
	}
	return v
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
