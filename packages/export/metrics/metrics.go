// Package metrics exports check outcomes to monitoring systems, so a
// scheduled webmatch run can drive dashboards and alerts.
package metrics

import (
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/webmatch/packages/core/runner"
)

// CheckMetric is the outcome of one evaluated check
type CheckMetric struct {
	Suite    string  `json:"suite"`
	File     string  `json:"file"`
	Name     string  `json:"name"`
	Target   string  `json:"target"`
	Matcher  string  `json:"matcher"`
	Passed   bool    `json:"passed"`
	Duration float64 `json:"duration_seconds"`
}

// SuiteMetric carries latency percentiles for one suite, in seconds
type SuiteMetric struct {
	Suite string  `json:"suite"`
	File  string  `json:"file"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// Snapshot is everything one run exports
type Snapshot struct {
	Time     time.Time     `json:"time"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Duration float64       `json:"duration_seconds"`
	Checks   []CheckMetric `json:"checks"`
	Suites   []SuiteMetric `json:"suites"`
}

// Exporter is the interface for metrics exporters
type Exporter interface {
	// Export writes or sends one snapshot
	Export(s *Snapshot) error

	// Name returns the name of the exporter
	Name() string
}

// FromResults builds a snapshot. Skipped checks are counted but not listed,
// since they carry no outcome.
func FromResults(results []*runner.RunResult, duration time.Duration, now time.Time) *Snapshot {
	s := &Snapshot{
		Time:     now,
		Duration: duration.Seconds(),
	}
	for _, r := range results {
		s.Passed += r.Passed
		s.Failed += r.Failed
		s.Skipped += r.Skipped

		if r.Latency.Count > 0 {
			s.Suites = append(s.Suites, SuiteMetric{
				Suite: r.Name,
				File:  r.File,
				P50:   r.Latency.P50.Seconds(),
				P95:   r.Latency.P95.Seconds(),
				P99:   r.Latency.P99.Seconds(),
				Max:   r.Latency.Max.Seconds(),
			})
		}

		for _, c := range r.Results {
			if c.Skipped {
				continue
			}
			s.Checks = append(s.Checks, CheckMetric{
				Suite:    r.Name,
				File:     r.File,
				Name:     c.Name,
				Target:   c.Target,
				Matcher:  c.Matcher,
				Passed:   c.Passed,
				Duration: c.Duration.Seconds(),
			})
		}
	}
	return s
}

// ExportAll runs every exporter, returning the last error with the
// exporter's name.
func ExportAll(s *Snapshot, exporters ...Exporter) error {
	var lastErr error
	for _, exp := range exporters {
		if err := exp.Export(s); err != nil {
			lastErr = fmt.Errorf("%s: %w", exp.Name(), err)
		}
	}
	return lastErr
}
