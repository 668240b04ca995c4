package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
)

// Step is the outcome of one check or workflow step.
type Step struct {
	Name       string        `json:"name"`
	Passed     bool          `json:"passed"`
	StatusCode int           `json:"status_code,omitempty"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Detail     string        `json:"detail,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Report collects the steps of one suite run.
type Report struct {
	Suite   string        `json:"suite"`
	RunID   string        `json:"run_id"`
	BaseURL string        `json:"base_url"`
	Started time.Time     `json:"started"`
	Elapsed time.Duration `json:"elapsed_ns"`
	Steps   []Step        `json:"steps"`
}

func newReport(suite, baseURL string) *Report {
	return &Report{
		Suite:   suite,
		RunID:   uuid.NewString(),
		BaseURL: baseURL,
		Started: time.Now(),
	}
}

func (r *Report) add(s Step) {
	r.Steps = append(r.Steps, s)
}

func (r *Report) finish() {
	r.Elapsed = time.Since(r.Started)
}

// Failures counts failed steps.
func (r *Report) Failures() int {
	n := 0
	for _, s := range r.Steps {
		if !s.Passed {
			n++
		}
	}
	return n
}

// Failed reports whether any step failed.
func (r *Report) Failed() bool {
	return r.Failures() > 0
}

// Step returns the step called name.
func (r *Report) Step(name string) (Step, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// WriteTable renders the report as a text table followed by a summary line.
func (r *Report) WriteTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Step", "Result", "Status", "Elapsed", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, s := range r.Steps {
		result := "PASS"
		if !s.Passed {
			result = "FAIL"
		}
		status := "-"
		if s.StatusCode != 0 {
			status = strconv.Itoa(s.StatusCode)
		}
		detail := s.Detail
		if s.Error != "" {
			detail = s.Error
		}
		table.Append([]string{s.Name, result, status, s.Elapsed.Round(time.Millisecond).String(), detail})
	}
	table.Render()

	fmt.Fprintf(w, "%s: %d/%d passed in %s (run %s)\n",
		r.Suite, len(r.Steps)-r.Failures(), len(r.Steps), r.Elapsed.Round(time.Millisecond), r.RunID)
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
