package cmd

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/webmatch/packages/suite"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Validate suite files without probing anything",
	Long: `Validate suite files for syntax and setting errors without making any requests.

Examples:
  webmatch validate webmatch.yaml
  webmatch validate ./checks/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := suite.Collect(args...)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExitCode(ExitParseError, errors.New("no webmatch.yaml or *.webmatch.yaml files found"))
	}

	hasErrors := false
	for _, file := range files {
		f, err := suite.ParseFile(file)
		if err == nil {
			err = f.Validate()
		}
		if err != nil {
			hasErrors = true
			for _, e := range multierr.Errors(err) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", e)
			}
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d checks)\n", file, len(f.Checks))
	}

	if hasErrors {
		return withExitCode(ExitParseError, errors.New("validation failed"))
	}

	return nil
}
