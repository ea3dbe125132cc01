package output

import (
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/webmatch/packages/core/runner"
)

// Formatter receives each suite result as it completes. Flush is called once
// after every suite has run.
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
	Flush(totalDuration time.Duration) error
}

// Names lists the formats accepted by New.
var Names = []string{"console", "json", "junit", "tap"}

// New returns the formatter called name writing to w. Console options are
// ignored by the other formats.
func New(name string, w io.Writer, opts ...ConsoleOption) (Formatter, error) {
	switch name {
	case "", "console":
		return NewConsoleFormatter(append([]ConsoleOption{WithWriter(w)}, opts...)...), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	}
	return nil, fmt.Errorf("unknown output format %q", name)
}

// failureText is the line shown for a check that did not pass.
func failureText(r *runner.CheckResult) string {
	if r.Error != nil {
		return r.Error.Error()
	}
	if r.Description != "" {
		return fmt.Sprintf("expected %s to %s: %s", r.Target, r.Description, r.Message)
	}
	return r.Message
}
