package metrics

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// PrometheusExporter writes metrics in the Prometheus text format, for the
// node_exporter textfile collector or any scraper reading the file.
type PrometheusExporter struct {
	writer   io.Writer
	filePath string
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithPrometheusWriter sets the output writer for Prometheus metrics
func WithPrometheusWriter(w io.Writer) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.writer = w
	}
}

// WithPrometheusFile writes metrics to path, replacing it atomically so a
// collector never reads a half-written file.
func WithPrometheusFile(path string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.filePath = path
	}
}

func NewPrometheusExporter(opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{writer: os.Stdout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PrometheusExporter) Name() string {
	return "prometheus"
}

func (p *PrometheusExporter) Export(s *Snapshot) error {
	var buf bytes.Buffer
	writeMetrics(&buf, s)

	if p.filePath == "" {
		_, err := p.writer.Write(buf.Bytes())
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.filePath), ".webmatch-metrics-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p.filePath)
}

func writeMetrics(w io.Writer, s *Snapshot) {
	fmt.Fprintf(w, "# HELP webmatch_checks Checks in the last run by result\n")
	fmt.Fprintf(w, "# TYPE webmatch_checks gauge\n")
	fmt.Fprintf(w, "webmatch_checks{result=\"passed\"} %d\n", s.Passed)
	fmt.Fprintf(w, "webmatch_checks{result=\"failed\"} %d\n", s.Failed)
	fmt.Fprintf(w, "webmatch_checks{result=\"skipped\"} %d\n", s.Skipped)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP webmatch_run_duration_seconds Wall time of the last run\n")
	fmt.Fprintf(w, "# TYPE webmatch_run_duration_seconds gauge\n")
	fmt.Fprintf(w, "webmatch_run_duration_seconds %g\n", s.Duration)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP webmatch_last_run_timestamp_seconds Unix time the last run finished\n")
	fmt.Fprintf(w, "# TYPE webmatch_last_run_timestamp_seconds gauge\n")
	fmt.Fprintf(w, "webmatch_last_run_timestamp_seconds %d\n", s.Time.Unix())

	if len(s.Checks) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "# HELP webmatch_check_success Whether the check passed (1) or failed (0)\n")
		fmt.Fprintf(w, "# TYPE webmatch_check_success gauge\n")
		for _, c := range s.Checks {
			success := 0
			if c.Passed {
				success = 1
			}
			fmt.Fprintf(w, "webmatch_check_success{%s} %d\n", checkLabels(c), success)
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "# HELP webmatch_check_duration_seconds Time taken to evaluate the check\n")
		fmt.Fprintf(w, "# TYPE webmatch_check_duration_seconds gauge\n")
		for _, c := range s.Checks {
			fmt.Fprintf(w, "webmatch_check_duration_seconds{%s} %g\n", checkLabels(c), c.Duration)
		}
	}

	if len(s.Suites) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "# HELP webmatch_suite_latency_seconds Check latency percentiles per suite\n")
		fmt.Fprintf(w, "# TYPE webmatch_suite_latency_seconds gauge\n")
		for _, su := range s.Suites {
			suite := sanitizeLabel(su.Suite)
			fmt.Fprintf(w, "webmatch_suite_latency_seconds{suite=\"%s\",quantile=\"0.5\"} %g\n", suite, su.P50)
			fmt.Fprintf(w, "webmatch_suite_latency_seconds{suite=\"%s\",quantile=\"0.95\"} %g\n", suite, su.P95)
			fmt.Fprintf(w, "webmatch_suite_latency_seconds{suite=\"%s\",quantile=\"0.99\"} %g\n", suite, su.P99)
			fmt.Fprintf(w, "webmatch_suite_latency_seconds{suite=\"%s\",quantile=\"1\"} %g\n", suite, su.Max)
		}
	}
}

func checkLabels(c CheckMetric) string {
	return fmt.Sprintf("suite=\"%s\",check=\"%s\",target=\"%s\",matcher=\"%s\"",
		sanitizeLabel(c.Suite), sanitizeLabel(c.Name), sanitizeLabel(c.Target), sanitizeLabel(c.Matcher))
}

// sanitizeLabel makes a string safe for use as a Prometheus label value
func sanitizeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
