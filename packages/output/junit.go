package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/webmatch/packages/core/runner"
)

// JUnitReport is the <testsuites> root. Each suite file becomes one
// <testsuite>, each check one <testcase>.
type JUnitReport struct {
	XMLName   xml.Name     `xml:"testsuites"`
	Name      string       `xml:"name,attr,omitempty"`
	Tests     int          `xml:"tests,attr"`
	Failures  int          `xml:"failures,attr"`
	Errors    int          `xml:"errors,attr"`
	Skipped   int          `xml:"skipped,attr"`
	Time      float64      `xml:"time,attr"`
	Timestamp string       `xml:"timestamp,attr,omitempty"`
	Suites    []JUnitSuite `xml:"testsuite"`
}

type JUnitSuite struct {
	Name       string          `xml:"name,attr"`
	File       string          `xml:"file,attr,omitempty"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr,omitempty"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	Cases      []JUnitCase     `xml:"testcase"`
}

type JUnitCase struct {
	Name       string          `xml:"name,attr"`
	ClassName  string          `xml:"classname,attr"`
	Time       float64         `xml:"time,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	Failure    *JUnitProblem   `xml:"failure,omitempty"`
	Error      *JUnitProblem   `xml:"error,omitempty"`
	Skipped    *JUnitSkipped   `xml:"skipped,omitempty"`
}

type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// JUnitProblem is the body of a <failure> or <error> element.
type JUnitProblem struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter collects suites and writes the XML document on Flush.
type JUnitFormatter struct {
	writer io.Writer
	suites []JUnitSuite
	now    func() time.Time
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer: os.Stdout,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func (f *JUnitFormatter) FormatResult(result *runner.RunResult) {
	suite := JUnitSuite{
		Name:      suiteName(result),
		File:      result.File,
		Tests:     len(result.Results),
		Skipped:   result.Skipped,
		Time:      result.Duration.Seconds(),
		Timestamp: f.now().UTC().Format(time.RFC3339),
		Cases:     make([]JUnitCase, 0, len(result.Results)),
	}
	if result.Latency.Count > 0 {
		suite.Properties = []JUnitProperty{
			{Name: "latency.p50", Value: result.Latency.P50.String()},
			{Name: "latency.p95", Value: result.Latency.P95.String()},
			{Name: "latency.max", Value: result.Latency.Max.String()},
		}
	}

	for _, r := range result.Results {
		suite.Cases = append(suite.Cases, f.testCase(result, r, &suite))
	}
	f.suites = append(f.suites, suite)
}

// testCase converts one check and updates the failure and error counts of
// suite. Unevaluated checks count as errors, not failures.
func (f *JUnitFormatter) testCase(result *runner.RunResult, r *runner.CheckResult, suite *JUnitSuite) JUnitCase {
	tc := JUnitCase{
		Name:      r.Name,
		ClassName: r.Target,
		Time:      r.Duration.Seconds(),
		Properties: []JUnitProperty{
			{Name: "target", Value: r.Target},
			{Name: "matcher", Value: r.Matcher},
		},
	}

	switch {
	case r.Skipped:
		tc.Skipped = &JUnitSkipped{Message: r.SkipReason}
	case r.Error != nil:
		suite.Errors++
		tc.Error = &JUnitProblem{
			Message: r.Error.Error(),
			Type:    r.Matcher,
		}
	case !r.Passed:
		suite.Failures++
		tc.Failure = &JUnitProblem{
			Message: r.Message,
			Type:    r.Matcher,
			Content: fmt.Sprintf("%s:%d: %s\n", result.File, r.Line, failureText(r)),
		}
	}
	return tc
}

func (f *JUnitFormatter) FormatError(err error) {}

func (f *JUnitFormatter) FormatHeader(version string) {}

func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	report := JUnitReport{
		Name:      "webmatch",
		Time:      totalDuration.Seconds(),
		Timestamp: f.now().UTC().Format(time.RFC3339),
		Suites:    f.suites,
	}
	for _, s := range f.suites {
		report.Tests += s.Tests
		report.Failures += s.Failures
		report.Errors += s.Errors
		report.Skipped += s.Skipped
	}

	if _, err := io.WriteString(f.writer, xml.Header); err != nil {
		return err
	}
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return err
	}
	_, err := io.WriteString(f.writer, "\n")
	return err
}

func suiteName(result *runner.RunResult) string {
	if result.Name != "" {
		return result.Name
	}
	return result.File
}
