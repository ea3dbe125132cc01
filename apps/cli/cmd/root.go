package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag  string
	logFileFlag string
	debugFlag   bool
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "webmatch",
	Short: "Assertions about how websites answer.",
	Long: `webmatch checks that websites are up, carry valid certificates,
redirect where they should and enforce HTTPS. Run one check from the
command line or whole suites from YAML files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	os.Exit(execute())
}

func execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(os.Stderr, "Error:", ee.err)
		}
		return ee.code
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	return ExitUsageError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("WEBMATCH_CONFIG", ""), "Path to config file (env: WEBMATCH_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", getEnvString("WEBMATCH_LOG_FILE", ""), "Write JSON diagnostic logs to a rotated file (env: WEBMATCH_LOG_FILE)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", getEnvBool("WEBMATCH_DEBUG", false), "Log probe details to stderr (env: WEBMATCH_DEBUG)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("WEBMATCH_NO_COLOR", false), "Disable colored output (env: WEBMATCH_NO_COLOR)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(versionCmd)
}
