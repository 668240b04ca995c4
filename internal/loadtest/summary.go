package loadtest

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/notesprobe/internal/config"
)

// ErrThresholds is returned when a run misses at least one threshold.
var ErrThresholds = errors.New("performance thresholds not met")

// Summary is the aggregate result of a run.
type Summary struct {
	TotalRequests int64         `json:"total_requests"`
	Failures      int64         `json:"failures"`
	SuccessRate   float64       `json:"success_rate"` // percent
	AvgLatency    time.Duration `json:"avg_latency_ns"`
	P50           time.Duration `json:"p50_ns"`
	P95           time.Duration `json:"p95_ns"`
	P99           time.Duration `json:"p99_ns"`
	Max           time.Duration `json:"max_ns"`
	RPS           float64       `json:"rps"`
	CurrentRPS    float64       `json:"current_rps"`
	Elapsed       time.Duration `json:"elapsed_ns"`
}

// Violation describes one missed threshold.
type Violation struct {
	Metric string
	Actual string
	Limit  string
}

func (v Violation) String() string {
	if v.Limit == "" {
		return v.Metric
	}
	return fmt.Sprintf("%s %s (limit %s)", v.Metric, v.Actual, v.Limit)
}

// Evaluate checks s against t. A run without requests always fails.
// A zero MaxAvgResponseTime disables that check.
func (s Summary) Evaluate(t config.Thresholds) []Violation {
	if s.TotalRequests == 0 {
		return []Violation{{Metric: "no requests were made"}}
	}

	var out []Violation
	if t.MaxAvgResponseTime > 0 && s.AvgLatency > t.MaxAvgResponseTime {
		out = append(out, Violation{
			Metric: "average response time",
			Actual: formatMs(s.AvgLatency),
			Limit:  formatMs(t.MaxAvgResponseTime),
		})
	}
	if s.SuccessRate < t.MinSuccessRate {
		out = append(out, Violation{
			Metric: "success rate",
			Actual: fmt.Sprintf("%.2f%%", s.SuccessRate),
			Limit:  fmt.Sprintf("%.2f%%", t.MinSuccessRate),
		})
	}
	if s.RPS < t.MinRPS {
		out = append(out, Violation{
			Metric: "requests per second",
			Actual: fmt.Sprintf("%.2f", s.RPS),
			Limit:  fmt.Sprintf("%.2f", t.MinRPS),
		})
	}
	return out
}

// Check returns an error wrapping ErrThresholds listing every violation.
func (s Summary) Check(t config.Thresholds) error {
	violations := s.Evaluate(t)
	if len(violations) == 0 {
		return nil
	}
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = v.String()
	}
	return fmt.Errorf("%w: %s", ErrThresholds, strings.Join(parts, "; "))
}

// WriteTable renders the summary and threshold verdicts.
func (s Summary) WriteTable(w io.Writer, t config.Thresholds) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	table.Append([]string{"Total requests", fmt.Sprintf("%d", s.TotalRequests)})
	table.Append([]string{"Failures", fmt.Sprintf("%d", s.Failures)})
	table.Append([]string{"Success rate", fmt.Sprintf("%.2f%%", s.SuccessRate)})
	table.Append([]string{"Average response time", formatMs(s.AvgLatency)})
	table.Append([]string{"P50 / P95 / P99", fmt.Sprintf("%s / %s / %s", formatMs(s.P50), formatMs(s.P95), formatMs(s.P99))})
	table.Append([]string{"Max response time", formatMs(s.Max)})
	table.Append([]string{"Requests per second", fmt.Sprintf("%.2f", s.RPS)})
	table.Append([]string{"Elapsed", s.Elapsed.Round(time.Millisecond).String()})
	table.Render()

	violations := s.Evaluate(t)
	if len(violations) == 0 {
		fmt.Fprintln(w, "PASS: all performance criteria met")
		return
	}
	for _, v := range violations {
		fmt.Fprintf(w, "FAIL: %s\n", v)
	}
}

func formatMs(d time.Duration) string {
	return fmt.Sprintf("%.2f ms", float64(d)/float64(time.Millisecond))
}
