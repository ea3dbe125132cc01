package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/abdul-hamid-achik/webmatch/packages/history"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs",
	Long: `Show runs recorded with run --history.

Examples:
  webmatch history --db .webmatch.db
  webmatch history --db .webmatch.db --limit 5
  webmatch history --db .webmatch.db --run 6f1c2a0e-...`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

var (
	historyDBFlag    string
	historyLimitFlag int
	historyRunFlag   string
)

func init() {
	historyCmd.Flags().StringVar(&historyDBFlag, "db", getEnvString("WEBMATCH_HISTORY", ""), "History database (env: WEBMATCH_HISTORY)")
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 20, "Number of runs to show")
	historyCmd.Flags().StringVar(&historyRunFlag, "run", "", "Show the checks of one run")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	path := historyDBFlag
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.HistoryDB
	}
	if path == "" {
		return withExitCode(ExitUsageError, errors.New("no history database: pass --db or set historyDB in the config"))
	}
	if noColorFlag {
		color.NoColor = true
	}

	store, err := history.Open(path)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	defer store.Close()

	if historyRunFlag != "" {
		return printRunChecks(cmd, store, historyRunFlag)
	}

	runs, err := store.Recent(cmd.Context(), historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tPASSED\tFAILED\tSKIPPED\tDURATION\tFILE\tID")
	for _, r := range runs {
		status := green("pass")
		if r.Failing() {
			status = red("fail")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%dms\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), status,
			r.Passed, r.Failed, r.Skipped, r.Duration.Milliseconds(), r.File, r.ID)
	}
	return tw.Flush()
}

func printRunChecks(cmd *cobra.Command, store *history.Store, runID string) error {
	entries, err := store.Checks(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no checks recorded for run %s", runID))
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	for _, e := range entries {
		switch {
		case e.Skipped:
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", yellow("-"), e.Name)
		case e.Passed:
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s (%dms)\n", green("✓"), e.Name, e.Duration.Milliseconds())
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s (%dms)\n", red("✗"), e.Name, e.Duration.Milliseconds())
			fmt.Fprintf(cmd.OutOrStdout(), "    %s %s\n", red("→"), e.Message)
		}
	}
	return nil
}
