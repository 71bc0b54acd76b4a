// Package output renders the run banner and the final report.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/pacer/internal/metrics"
)

// Format selects the report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Reporter writes the banner and the report for one run. In JSON and YAML
// mode the banner goes to diag so out stays machine-readable.
type Reporter struct {
	out    io.Writer
	diag   io.Writer
	format Format
}

// NewReporter returns a Reporter writing to out. A nil diag discards the
// banner in JSON and YAML mode.
func NewReporter(out, diag io.Writer, format Format) *Reporter {
	if diag == nil {
		diag = io.Discard
	}
	if format == "" {
		format = FormatText
	}
	return &Reporter{out: out, diag: diag, format: format}
}

func (r *Reporter) Banner(info metrics.RunInfo) {
	w := r.out
	if r.format != FormatText {
		w = r.diag
	}
	PrintBanner(w, info)
}

func (r *Reporter) Report(record metrics.RunRecord) error {
	switch r.format {
	case FormatJSON:
		return PrintJSONReport(r.out, record)
	case FormatYAML:
		return PrintYAMLReport(r.out, record)
	case FormatText:
		return PrintReport(r.out, record)
	default:
		return fmt.Errorf("unsupported output format %q", r.format)
	}
}

// PrintBanner writes the one-line run announcement.
func PrintBanner(w io.Writer, info metrics.RunInfo) {
	fmt.Fprintf(w, "Sending %d %s requests to %s at %g req/s\n", info.RequestsCount, info.Method, info.URL, info.RPS)
}

// PrintReport outputs a human-readable summary report. The status histogram
// is listed in the order codes were first seen.
func PrintReport(w io.Writer, record metrics.RunRecord) error {
	if record.Summary == nil {
		return fmt.Errorf("run %s has not been finalized", record.ID)
	}
	s := record.Summary

	var b strings.Builder
	fmt.Fprintln(&b, "\n--- Load Test Results ---")
	fmt.Fprintf(&b, "Run:               %s\n", record.ID)
	fmt.Fprintf(&b, "Target:            %s %s\n", record.Info.Method, record.Info.URL)
	fmt.Fprintf(&b, "Requests:          %d completed of %d requested\n", s.Completed(), record.Info.RequestsCount)
	fmt.Fprintf(&b, "Successful:        %d (%s)\n", s.Successes, percent(s.SuccessPercent))
	fmt.Fprintf(&b, "Failed:            %d (%s)\n", s.Failures, percent(s.ErrorPercent))
	fmt.Fprintf(&b, "Duration:          %s\n", msDuration(s.TotalElapsedMs))
	fmt.Fprintf(&b, "Requests/sec:      %.2f\n", s.RequestsPerSec)

	fmt.Fprintln(&b, "\nLatency:")
	fmt.Fprintf(&b, "  Average time:    %s\n", ms(s.ElapsedStdDevMs))
	fmt.Fprintf(&b, "  Min:             %s\n", ms(s.MinTimeMs))
	fmt.Fprintf(&b, "  Max:             %s\n", ms(s.MaxTimeMs))
	fmt.Fprintf(&b, "  Mean:            %s\n", ms(s.MeanTimeMs))
	fmt.Fprintf(&b, "  P50:             %s\n", ms(s.P50TimeMs))
	fmt.Fprintf(&b, "  P90:             %s\n", ms(s.P90TimeMs))
	fmt.Fprintf(&b, "  P99:             %s\n", ms(s.P99TimeMs))

	fmt.Fprintln(&b, "\nStatus Codes:")
	if len(s.StatusCodes) == 0 {
		fmt.Fprintln(&b, "  None")
	}
	for _, row := range s.StatusCodes {
		fmt.Fprintf(&b, "  %-22s %d\n", row.Label()+":", row.Count)
	}

	if len(s.Errors) > 0 {
		fmt.Fprintln(&b, "\nErrors:")
		kinds := make([]string, 0, len(s.Errors))
		for kind := range s.Errors {
			kinds = append(kinds, kind)
		}
		sort.Slice(kinds, func(i, j int) bool {
			if s.Errors[kinds[i]] == s.Errors[kinds[j]] {
				return kinds[i] < kinds[j]
			}
			return s.Errors[kinds[i]] > s.Errors[kinds[j]]
		})
		for _, kind := range kinds {
			fmt.Fprintf(&b, "  %-22s %d\n", kind+":", s.Errors[kind])
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// PrintJSONReport outputs the run as indented JSON. NaN statistics are
// written as null.
func PrintJSONReport(w io.Writer, record metrics.RunRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newReportView(record))
}

// PrintYAMLReport outputs the run as YAML. NaN statistics are written as
// null.
func PrintYAMLReport(w io.Writer, record metrics.RunRecord) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newReportView(record)); err != nil {
		return err
	}
	return enc.Close()
}

func percent(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v)
}

func ms(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2fms", v)
}

func msDuration(v float64) time.Duration {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return time.Duration(v * float64(time.Millisecond)).Round(time.Millisecond)
}
