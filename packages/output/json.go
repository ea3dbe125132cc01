package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/webmatch/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary `json:"summary"`
	Suites   []JSONSuite `json:"suites"`
	Checks   []JSONCheck `json:"checks"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// JSONSuite carries per-file timing
type JSONSuite struct {
	File     string      `json:"file"`
	Name     string      `json:"name"`
	Duration float64     `json:"duration"`
	Latency  JSONLatency `json:"latency"`
}

// JSONLatency holds check latency percentiles in milliseconds
type JSONLatency struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type JSONCheck struct {
	Name        string  `json:"name"`
	File        string  `json:"file"`
	Line        int     `json:"line,omitempty"`
	Target      string  `json:"target"`
	Matcher     string  `json:"matcher"`
	Description string  `json:"description,omitempty"`
	Passed      bool    `json:"passed"`
	Skipped     bool    `json:"skipped,omitempty"`
	SkipReason  string  `json:"skipReason,omitempty"`
	Message     string  `json:"message,omitempty"`
	Duration    float64 `json:"duration"`
	Error       string  `json:"error,omitempty"`
}

// JSONFormatter formats check results as JSON
type JSONFormatter struct {
	writer io.Writer
	suites []JSONSuite
	checks []JSONCheck
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		suites: make([]JSONSuite, 0),
		checks: make([]JSONCheck, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	f.suites = append(f.suites, JSONSuite{
		File:     result.File,
		Name:     result.Name,
		Duration: ms(result.Duration),
		Latency: JSONLatency{
			P50: ms(result.Latency.P50),
			P95: ms(result.Latency.P95),
			P99: ms(result.Latency.P99),
			Max: ms(result.Latency.Max),
		},
	})

	for _, r := range result.Results {
		check := JSONCheck{
			Name:        r.Name,
			File:        result.File,
			Line:        r.Line,
			Target:      r.Target,
			Matcher:     r.Matcher,
			Description: r.Description,
			Passed:      r.Passed,
			Skipped:     r.Skipped,
			Message:     r.Message,
			Duration:    ms(r.Duration),
		}
		if r.SkipReason != "" && r.SkipReason != "filtered out" {
			check.SkipReason = r.SkipReason
		}
		if r.Error != nil {
			check.Error = r.Error.Error()
		}
		f.checks = append(f.checks, check)
	}
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual check results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var passed, failed, skipped int
	for _, c := range f.checks {
		switch {
		case c.Skipped:
			skipped++
		case c.Passed:
			passed++
		default:
			failed++
		}
	}

	output := JSONOutput{
		Summary: JSONSummary{
			Total:   len(f.checks),
			Passed:  passed,
			Failed:  failed,
			Skipped: skipped,
		},
		Suites:   f.suites,
		Checks:   f.checks,
		Duration: ms(totalDuration),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
