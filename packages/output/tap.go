package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/webmatch/packages/core/runner"
)

// TAPFormatter writes TAP version 13. The plan needs the total check count,
// so lines are buffered until Flush.
type TAPFormatter struct {
	writer io.Writer
	lines  []string
	count  int
	err    error
}

// tapDiagnostic is the YAML block attached to a "not ok" line.
type tapDiagnostic struct {
	Suite    string `yaml:"suite,omitempty"`
	Target   string `yaml:"target,omitempty"`
	Matcher  string `yaml:"matcher,omitempty"`
	Expected string `yaml:"expected,omitempty"`
	Message  string `yaml:"message"`
	Severity string `yaml:"severity,omitempty"`
	At       string `yaml:"at,omitempty"`
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		f.count++

		if r.Skipped {
			reason := r.SkipReason
			if reason == "" {
				reason = "skipped"
			}
			f.lines = append(f.lines, fmt.Sprintf("ok %d - %s # SKIP %s", f.count, r.Name, reason))
			continue
		}
		if r.Passed && r.Error == nil {
			f.lines = append(f.lines, fmt.Sprintf("ok %d - %s", f.count, r.Name))
			continue
		}

		f.lines = append(f.lines, fmt.Sprintf("not ok %d - %s", f.count, r.Name))
		diag := tapDiagnostic{
			Suite:   suiteName(result),
			Target:  r.Target,
			Matcher: r.Matcher,
			Message: r.Message,
			At:      fmt.Sprintf("%s:%d", result.File, r.Line),
		}
		if r.Error != nil {
			diag.Message = r.Error.Error()
			diag.Severity = "error"
		} else {
			diag.Expected = r.Description
		}
		f.appendDiagnostic(diag)
	}
}

func (f *TAPFormatter) appendDiagnostic(diag tapDiagnostic) {
	data, err := yaml.Marshal(diag)
	if err != nil {
		if f.err == nil {
			f.err = err
		}
		return
	}
	f.lines = append(f.lines, "  ---")
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		f.lines = append(f.lines, "  "+line)
	}
	f.lines = append(f.lines, "  ...")
}

func (f *TAPFormatter) FormatError(err error) {
	f.lines = append(f.lines, "# "+err.Error())
}

func (f *TAPFormatter) FormatHeader(version string) {}

func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	if f.err != nil {
		return f.err
	}
	var b strings.Builder
	b.WriteString("TAP version 13\n")
	fmt.Fprintf(&b, "1..%d\n", f.count)
	for _, line := range f.lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "# duration %s\n", totalDuration.Round(time.Millisecond))
	_, err := io.WriteString(f.writer, b.String())
	return err
}
