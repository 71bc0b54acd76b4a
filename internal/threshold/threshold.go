// Package threshold evaluates pass/fail assertions such as
// "http_req_duration:p99 < 500" against a finalized run summary.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/torosent/pacer/internal/metrics"
)

// Threshold is one parsed assertion.
type Threshold struct {
	Metric    string  // http_req_duration, http_req_failed or http_requests
	Aggregate string  // e.g. p99, mean, rate, count
	Operator  string  // <, <=, >, >= or ==
	Value     float64 // right-hand side, in the metric's unit
	Raw       string  // original text for display
}

// Result is the outcome of evaluating one Threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

type extractor func(s metrics.Summary) float64

// extractors maps metric -> aggregate -> value. Latencies are milliseconds;
// failure rate is a fraction of completed requests.
var extractors = map[string]map[string]extractor{
	"http_req_duration": {
		"p50":    func(s metrics.Summary) float64 { return s.P50TimeMs },
		"p90":    func(s metrics.Summary) float64 { return s.P90TimeMs },
		"p99":    func(s metrics.Summary) float64 { return s.P99TimeMs },
		"mean":   func(s metrics.Summary) float64 { return s.MeanTimeMs },
		"avg":    func(s metrics.Summary) float64 { return s.MeanTimeMs },
		"stddev": func(s metrics.Summary) float64 { return s.ElapsedStdDevMs },
		"min":    func(s metrics.Summary) float64 { return s.MinTimeMs },
		"max":    func(s metrics.Summary) float64 { return s.MaxTimeMs },
	},
	"http_req_failed": {
		"count": func(s metrics.Summary) float64 { return float64(s.Failures) },
		"rate": func(s metrics.Summary) float64 {
			if s.Completed() == 0 {
				return math.NaN()
			}
			return float64(s.Failures) / float64(s.Completed())
		},
	},
	"http_requests": {
		"count": func(s metrics.Summary) float64 { return float64(s.Completed()) },
		"rate":  func(s metrics.Summary) float64 { return s.RequestsPerSec },
	},
}

var pattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

var operators = []string{"<", "<=", ">", ">=", "=="}

// Parse parses "metric:aggregate operator value".
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'http_req_duration:p99 < 500')", s)
	}
	metric, aggregate, operator := m[1], m[2], m[3]

	value, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %w", m[4], err)
	}

	aggregates, ok := extractors[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", metric, strings.Join(sortedKeys(extractors), ", "))
	}
	if _, ok := aggregates[aggregate]; !ok {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(sortedKeys(aggregates), ", "))
	}
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: %s)", operator, strings.Join(operators, ", "))
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses every string and reports all failures at once.
func ParseMultiple(raw []string) ([]Threshold, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(raw))
	var issues []string
	for i, s := range raw {
		t, err := Parse(s)
		if err != nil {
			issues = append(issues, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}
	if len(issues) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(issues, "; "))
	}
	return result, nil
}

// Evaluate checks every threshold against s. A statistic that is undefined
// because the run recorded nothing fails its threshold.
func Evaluate(thresholds []Threshold, s metrics.Summary) []Result {
	if len(thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(thresholds))
	for _, t := range thresholds {
		results = append(results, evaluateOne(t, s))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, s metrics.Summary) Result {
	extract, ok := extractors[t.Metric][t.Aggregate]
	if !ok {
		return Result{Threshold: t, Message: fmt.Sprintf("FAIL %s: unknown metric", t.Raw)}
	}

	actual := extract(s)
	if math.IsNaN(actual) {
		return Result{Threshold: t, Actual: actual, Message: fmt.Sprintf("FAIL %s: no data", t.Raw)}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "PASS"
	if !pass {
		status = "FAIL"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s (actual %.2f)", status, t.Raw, actual),
	}
}

func isValidOperator(operator string) bool {
	for _, v := range operators {
		if operator == v {
			return true
		}
	}
	return false
}

func compareValues(actual float64, operator string, expected float64) bool {
	const epsilon = 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
