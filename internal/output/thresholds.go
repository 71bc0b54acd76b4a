package output

import (
	"fmt"
	"io"

	"github.com/torosent/pacer/internal/threshold"
)

// Thresholds writes threshold results after the report. In JSON and YAML
// mode they go to diag.
func (r *Reporter) Thresholds(results []threshold.Result) {
	w := r.out
	if r.format != FormatText {
		w = r.diag
	}
	PrintThresholdResults(w, results)
}

// PrintThresholdResults writes one line per result and a pass count.
func PrintThresholdResults(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	passed := 0
	fmt.Fprintln(w, "\nThresholds:")
	for _, r := range results {
		if r.Pass {
			passed++
		}
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
	fmt.Fprintf(w, "  %d/%d passed\n", passed, len(results))
}
