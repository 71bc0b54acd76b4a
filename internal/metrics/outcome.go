package metrics

import "time"

// Outcome is the terminal result of one dispatched request.
// A zero StatusCode means the transport produced no response.
type Outcome struct {
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Elapsed    time.Duration `json:"-"`
	ElapsedMs  float64       `json:"elapsed_ms"`
	StatusCode int           `json:"status_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	ErrorKind  string        `json:"error_kind,omitempty"`
}

// NewOutcome builds an Outcome from the timing and result of a request.
// Both statusCode and err may be set, e.g. for 4xx/5xx responses.
func NewOutcome(start, end time.Time, statusCode int, err error) Outcome {
	elapsed := end.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	if statusCode < 0 {
		statusCode = 0
	}
	o := Outcome{
		Start:      start,
		End:        end,
		Elapsed:    elapsed,
		ElapsedMs:  durationMs(elapsed),
		StatusCode: statusCode,
	}
	if err != nil {
		o.Error = err.Error()
		o.ErrorKind = ClassifyError(statusCode, err)
	}
	return o
}

// HasStatus reports whether the request produced an HTTP status code.
func (o Outcome) HasStatus() bool {
	return o.StatusCode > 0
}

// Succeeded reports whether the outcome counts as a success: a status code
// below 400. Outcomes without a status code are failures.
func (o Outcome) Succeeded() bool {
	return o.HasStatus() && o.StatusCode < 400
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
