// Package notify posts run summaries to chat webhooks.
package notify

import (
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/webmatch/packages/core/runner"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when checks fail
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when every check passes
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and on the first
	// passing run after a failure
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn accepts the policy names, defaulting to failure when empty
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch NotifyOn(s) {
	case "":
		return NotifyFailure, nil
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return NotifyOn(s), nil
	}
	return "", fmt.Errorf("unknown notification policy %q", s)
}

// RunSummary represents the summary of a run for notifications
type RunSummary struct {
	TotalFiles    int           `json:"total_files"`
	TotalChecks   int           `json:"total_checks"`
	PassedChecks  int           `json:"passed_checks"`
	FailedChecks  int           `json:"failed_checks"`
	SkippedChecks int           `json:"skipped_checks"`
	Duration      time.Duration `json:"duration"`
	FailedResults []FailedCheck `json:"failed_results,omitempty"`
	IsRecovery    bool          `json:"is_recovery,omitempty"`
}

// FailedCheck represents a failed check for notifications
type FailedCheck struct {
	Name    string `json:"name"`
	File    string `json:"file"`
	Target  string `json:"target"`
	Message string `json:"message,omitempty"`
}

// Summarize folds suite results into one summary
func Summarize(results []*runner.RunResult, duration time.Duration) *RunSummary {
	s := &RunSummary{
		TotalFiles: len(results),
		Duration:   duration,
	}
	for _, r := range results {
		s.PassedChecks += r.Passed
		s.FailedChecks += r.Failed
		s.SkippedChecks += r.Skipped
		for _, c := range r.Results {
			if c.Passed || c.Skipped {
				continue
			}
			msg := c.Message
			if c.Error != nil {
				msg = c.Error.Error()
			}
			s.FailedResults = append(s.FailedResults, FailedCheck{
				Name:    c.Name,
				File:    r.File,
				Target:  c.Target,
				Message: msg,
			})
		}
	}
	s.TotalChecks = s.PassedChecks + s.FailedChecks + s.SkippedChecks
	return s
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about run results
	Notify(summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true,
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// SetLastFailed seeds the previous outcome, typically from run history, so
// the first run in a process can count as a recovery.
func (m *Manager) SetLastFailed(failed bool) {
	m.lastState = !failed
}

// Notify sends notifications based on the configured policy. It returns
// whether anything was sent.
func (m *Manager) Notify(summary *RunSummary) (bool, error) {
	shouldNotify := false
	currentSuccess := summary.FailedChecks == 0

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !currentSuccess
	case NotifySuccess:
		shouldNotify = currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if !currentSuccess {
			shouldNotify = true
		}
	}

	m.lastState = currentSuccess

	if !shouldNotify || len(m.notifiers) == 0 {
		return false, nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Notify(summary); err != nil {
			lastErr = fmt.Errorf("%s: %w", n.Name(), err)
		}
	}
	return true, lastErr
}
