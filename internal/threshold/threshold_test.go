package threshold

import (
	"math"
	"strings"
	"testing"

	"github.com/torosent/pacer/internal/metrics"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Threshold
		wantError bool
	}{
		{
			name:  "p99 latency",
			input: "http_req_duration:p99 < 500",
			want:  Threshold{Metric: "http_req_duration", Aggregate: "p99", Operator: "<", Value: 500},
		},
		{
			name:  "failure rate",
			input: "http_req_failed:rate < 0.01",
			want:  Threshold{Metric: "http_req_failed", Aggregate: "rate", Operator: "<", Value: 0.01},
		},
		{
			name:  "stddev with <= and no spaces",
			input: "http_req_duration:stddev<=25",
			want:  Threshold{Metric: "http_req_duration", Aggregate: "stddev", Operator: "<=", Value: 25},
		},
		{
			name:  "request rate",
			input: "  http_requests:rate > 9.5 ",
			want:  Threshold{Metric: "http_requests", Aggregate: "rate", Operator: ">", Value: 9.5},
		},
		{name: "empty string", input: "", wantError: true},
		{name: "missing operator", input: "http_req_duration:p99 500", wantError: true},
		{name: "unknown metric", input: "cpu:p99 < 500", wantError: true},
		{name: "aggregate of another metric", input: "http_req_failed:p99 < 5", wantError: true},
		{name: "unsupported percentile", input: "http_req_duration:p95 < 500", wantError: true},
		{name: "bad operator", input: "http_req_duration:p99 << 500", wantError: true},
		{name: "not a number", input: "http_req_duration:p99 < abc", wantError: true},
		{name: "malformed number", input: "http_req_duration:p99 < 1.2.3", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantError {
				t.Fatalf("Parse() error = %v, wantError %v", err, tt.wantError)
			}
			if tt.wantError {
				return
			}
			if got.Metric != tt.want.Metric || got.Aggregate != tt.want.Aggregate ||
				got.Operator != tt.want.Operator || got.Value != tt.want.Value {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
			if got.Raw != strings.TrimSpace(tt.input) {
				t.Errorf("Raw = %q, want %q", got.Raw, strings.TrimSpace(tt.input))
			}
		})
	}
}

func TestParseMultiple(t *testing.T) {
	got, err := ParseMultiple([]string{"http_req_duration:p50 < 100", "http_requests:count >= 10"})
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	_, err = ParseMultiple([]string{"http_req_duration:p50 < 100", "bogus", "also bogus"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "threshold[1]") || !strings.Contains(err.Error(), "threshold[2]") {
		t.Errorf("error should list every bad entry: %v", err)
	}

	if got, err := ParseMultiple(nil); got != nil || err != nil {
		t.Errorf("ParseMultiple(nil) = %v, %v", got, err)
	}
}

func TestEvaluate(t *testing.T) {
	summary := metrics.Summary{
		Successes:       9,
		Failures:        1,
		ElapsedStdDevMs: 12,
		MinTimeMs:       10,
		MaxTimeMs:       90,
		MeanTimeMs:      30,
		P50TimeMs:       25,
		P90TimeMs:       60,
		P99TimeMs:       90,
		RequestsPerSec:  10,
	}

	tests := []struct {
		raw  string
		want bool
	}{
		{"http_req_duration:p99 < 100", true},
		{"http_req_duration:p99 < 90", false},
		{"http_req_duration:p99 <= 90", true},
		{"http_req_duration:mean == 30", true},
		{"http_req_duration:stddev > 20", false},
		{"http_req_failed:rate < 0.2", true},
		{"http_req_failed:rate < 0.1", false},
		{"http_req_failed:count == 1", true},
		{"http_requests:count >= 10", true},
		{"http_requests:rate > 10", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			th, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			results := Evaluate([]Threshold{th}, summary)
			if len(results) != 1 {
				t.Fatalf("got %d results, want 1", len(results))
			}
			if results[0].Pass != tt.want {
				t.Errorf("Pass = %v, want %v (%s)", results[0].Pass, tt.want, results[0].Message)
			}
		})
	}
}

func TestEvaluateUndefinedStatisticsFail(t *testing.T) {
	nan := math.NaN()
	empty := metrics.Summary{MeanTimeMs: nan, P99TimeMs: nan, RequestsPerSec: 0}

	thresholds, err := ParseMultiple([]string{"http_req_duration:p99 < 500", "http_req_failed:rate < 0.5", "http_requests:count == 0"})
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}
	results := Evaluate(thresholds, empty)
	if results[0].Pass || !strings.Contains(results[0].Message, "no data") {
		t.Errorf("p99 on empty run = %+v, want failure with no data", results[0])
	}
	if results[1].Pass {
		t.Errorf("failure rate on empty run should not pass")
	}
	if !results[2].Pass {
		t.Errorf("count == 0 on empty run should pass: %s", results[2].Message)
	}
	if AllPassed(results) {
		t.Error("AllPassed() = true, want false")
	}
}

func TestAllPassed(t *testing.T) {
	if !AllPassed(nil) {
		t.Error("AllPassed(nil) = false, want true")
	}
	if !AllPassed([]Result{{Pass: true}, {Pass: true}}) {
		t.Error("AllPassed() = false, want true")
	}
	if Evaluate(nil, metrics.Summary{}) != nil {
		t.Error("Evaluate(nil) should return nil")
	}
}
