package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/webmatch/packages/output"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	diffOutputFlag    string
	diffThresholdFlag string
)

var diffCmd = &cobra.Command{
	Use:   "diff <before.json> <after.json>",
	Short: "Compare two JSON reports",
	Long: `Compare two reports written with run -o json and show which checks
started or stopped passing. Exits non-zero when a check regressed.

Examples:
  webmatch diff before.json after.json
  webmatch diff before.json after.json --output json
  webmatch diff before.json after.json --threshold 50%`,
	Args: cobra.ExactArgs(2),
	RunE: diffCommand,
}

func init() {
	diffCmd.Flags().StringVarP(&diffOutputFlag, "output", "o", "console", "Output format: console, json")
	diffCmd.Flags().StringVar(&diffThresholdFlag, "threshold", "", "Also fail if any check is slower by this percentage (e.g., 50%)")
}

// Status changes between two reports
const (
	changeFixed     = "fixed"
	changeBroken    = "broken"
	changeUnchanged = "unchanged"
	changeNew       = "new"
	changeRemoved   = "removed"
)

// CheckComparison represents one check across two reports
type CheckComparison struct {
	Name           string  `json:"name"`
	File           string  `json:"file"`
	Target         string  `json:"target"`
	Change         string  `json:"change"`
	Passed1        bool    `json:"passed1"`
	Passed2        bool    `json:"passed2"`
	Duration1      float64 `json:"duration1"`
	Duration2      float64 `json:"duration2"`
	DurationChange float64 `json:"durationChange"` // percent
	Message        string  `json:"message,omitempty"`
}

// DiffSummary provides overall statistics
type DiffSummary struct {
	Fixed           int  `json:"fixed"`
	Broken          int  `json:"broken"`
	Unchanged       int  `json:"unchanged"`
	New             int  `json:"new"`
	Removed         int  `json:"removed"`
	Slower          int  `json:"slower"`
	ThresholdPassed bool `json:"thresholdPassed"`
}

// DiffResult holds the comparison result
type DiffResult struct {
	Before      string            `json:"before"`
	After       string            `json:"after"`
	Comparisons []CheckComparison `json:"comparisons"`
	Summary     DiffSummary       `json:"summary"`
}

func diffCommand(cmd *cobra.Command, args []string) error {
	before, err := loadReport(args[0])
	if err != nil {
		return withExitCode(ExitUsageError, fmt.Errorf("failed to load %s: %w", args[0], err))
	}
	after, err := loadReport(args[1])
	if err != nil {
		return withExitCode(ExitUsageError, fmt.Errorf("failed to load %s: %w", args[1], err))
	}

	var threshold float64
	if diffThresholdFlag != "" {
		threshold, err = parseThreshold(diffThresholdFlag)
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
	}

	diff := compareReports(args[0], args[1], before, after, threshold)

	switch strings.ToLower(diffOutputFlag) {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(diff); err != nil {
			return err
		}
	default:
		if noColorFlag {
			color.NoColor = true
		}
		printDiff(cmd.OutOrStdout(), diff)
	}

	if diff.Summary.Broken > 0 || !diff.Summary.ThresholdPassed {
		return withExitCode(ExitCheckFailure, nil)
	}
	return nil
}

func loadReport(path string) (*output.JSONOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var report output.JSONOutput
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	if report.Checks == nil && report.Summary.Total == 0 {
		return nil, errors.New("not a webmatch JSON report")
	}
	return &report, nil
}

func parseThreshold(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid threshold %q", s)
	}
	return v, nil
}

// compareReports matches checks by file and name. Skipped checks are ignored
// on both sides.
func compareReports(beforeName, afterName string, before, after *output.JSONOutput, threshold float64) *DiffResult {
	diff := &DiffResult{
		Before:  beforeName,
		After:   afterName,
		Summary: DiffSummary{ThresholdPassed: true},
	}

	index := func(r *output.JSONOutput) map[string]output.JSONCheck {
		m := make(map[string]output.JSONCheck, len(r.Checks))
		for _, c := range r.Checks {
			if !c.Skipped {
				m[c.File+"::"+c.Name] = c
			}
		}
		return m
	}
	checks1, checks2 := index(before), index(after)

	keys := make([]string, 0, len(checks1)+len(checks2))
	for k := range checks1 {
		keys = append(keys, k)
	}
	for k := range checks2 {
		if _, ok := checks1[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		c1, in1 := checks1[key]
		c2, in2 := checks2[key]

		comp := CheckComparison{}
		switch {
		case in1 && in2:
			comp = CheckComparison{
				Name: c2.Name, File: c2.File, Target: c2.Target,
				Passed1: c1.Passed, Passed2: c2.Passed,
				Duration1: c1.Duration, Duration2: c2.Duration,
				Message: c2.Message,
			}
			if c1.Duration > 0 {
				comp.DurationChange = (c2.Duration - c1.Duration) / c1.Duration * 100
			}
			switch {
			case c1.Passed && !c2.Passed:
				comp.Change = changeBroken
				diff.Summary.Broken++
			case !c1.Passed && c2.Passed:
				comp.Change = changeFixed
				diff.Summary.Fixed++
			default:
				comp.Change = changeUnchanged
				diff.Summary.Unchanged++
			}
			if threshold > 0 && comp.DurationChange > threshold {
				diff.Summary.Slower++
				diff.Summary.ThresholdPassed = false
			}
		case in1:
			comp = CheckComparison{Name: c1.Name, File: c1.File, Target: c1.Target, Change: changeRemoved, Passed1: c1.Passed, Duration1: c1.Duration}
			diff.Summary.Removed++
		default:
			comp = CheckComparison{Name: c2.Name, File: c2.File, Target: c2.Target, Change: changeNew, Passed2: c2.Passed, Duration2: c2.Duration, Message: c2.Message}
			diff.Summary.New++
		}
		diff.Comparisons = append(diff.Comparisons, comp)
	}

	return diff
}

func printDiff(w io.Writer, diff *DiffResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", bold("Report Comparison"))
	fmt.Fprintf(w, "  %s: %s\n", cyan("Before"), diff.Before)
	fmt.Fprintf(w, "  %s:  %s\n\n", cyan("After"), diff.After)

	for _, c := range diff.Comparisons {
		switch c.Change {
		case changeBroken:
			fmt.Fprintf(w, "  %s %s  %s\n", red("✗"), c.Name, red("now failing"))
			if c.Message != "" {
				fmt.Fprintf(w, "    %s %s\n", red("→"), c.Message)
			}
		case changeFixed:
			fmt.Fprintf(w, "  %s %s  %s\n", green("✓"), c.Name, green("now passing"))
		case changeNew:
			fmt.Fprintf(w, "  %s %s  (new)\n", cyan("+"), c.Name)
		case changeRemoved:
			fmt.Fprintf(w, "  %s %s  (removed)\n", yellow("-"), c.Name)
		default:
			fmt.Fprintf(w, "  = %s  %.0fms → %.0fms\n", c.Name, c.Duration1, c.Duration2)
		}
	}

	s := diff.Summary
	fmt.Fprintf(w, "\n%s %d broken, %d fixed, %d unchanged, %d new, %d removed\n",
		bold("Summary:"), s.Broken, s.Fixed, s.Unchanged, s.New, s.Removed)
	if !s.ThresholdPassed {
		fmt.Fprintf(w, "%s %d checks slower than the threshold\n", red("Threshold exceeded:"), s.Slower)
	}
}
