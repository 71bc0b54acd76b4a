package metrics

import (
	"net/http"
	"sort"
	"strconv"
)

// NoStatusLabel is the display label for outcomes that carry no status code.
const NoStatusLabel = "NO_RESPONSE"

// StatusCount is one row of the status-code histogram.
type StatusCount struct {
	Code  int `json:"code" yaml:"code"`
	Count int `json:"count" yaml:"count"`
}

// Label returns a display label such as "200 OK" or NO_RESPONSE.
func (s StatusCount) Label() string {
	if s.Code <= 0 {
		return NoStatusLabel
	}
	label := strconv.Itoa(s.Code)
	if text := http.StatusText(s.Code); text != "" {
		label += " " + text
	}
	return label
}

// statusHistogram counts status codes and remembers first-seen order.
type statusHistogram struct {
	index map[int]int
	rows  []StatusCount
}

func newStatusHistogram() *statusHistogram {
	return &statusHistogram{index: make(map[int]int)}
}

func (h *statusHistogram) add(code int) {
	if code < 0 {
		code = 0
	}
	if i, ok := h.index[code]; ok {
		h.rows[i].Count++
		return
	}
	h.index[code] = len(h.rows)
	h.rows = append(h.rows, StatusCount{Code: code, Count: 1})
}

func (h *statusHistogram) counts() []StatusCount {
	if len(h.rows) == 0 {
		return nil
	}
	return append([]StatusCount(nil), h.rows...)
}

// SumStatusCounts returns the total number of outcomes in the histogram.
func SumStatusCounts(rows []StatusCount) int {
	total := 0
	for _, row := range rows {
		total += row.Count
	}
	return total
}

// SortStatusCounts returns a copy of rows sorted by descending count, then by
// code for stability. The input keeps its first-seen order.
func SortStatusCounts(rows []StatusCount) []StatusCount {
	if len(rows) == 0 {
		return nil
	}
	sorted := append([]StatusCount(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Count == sorted[j].Count {
			return sorted[i].Code < sorted[j].Code
		}
		return sorted[i].Count > sorted[j].Count
	})
	return sorted
}
