package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/webmatch/packages/suite"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>...",
	Short: "List the checks in suite files",
	Long: `List all checks defined in suite files.

Examples:
  webmatch list webmatch.yaml
  webmatch list ./checks/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := suite.Collect(args...)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExitCode(ExitParseError, errors.New("no webmatch.yaml or *.webmatch.yaml files found"))
	}

	for _, file := range files {
		f, err := suite.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s (%s):\n", f.Name, file)
		for _, c := range f.Checks {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", c.DisplayName())
			fmt.Fprintf(cmd.OutOrStdout(), "    %s %s\n", c.Target, describeExpect(c))
			if len(c.Tags) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "    tags: %s\n", strings.Join(c.Tags, ", "))
			}
			if c.Skip != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "    skipped: %s\n", c.Skip)
			}
		}
	}

	return nil
}

// describeExpect renders a check's expectation without resolving variables.
func describeExpect(c suite.Check) string {
	switch {
	case c.To != "":
		return c.Expect + " " + c.To
	case c.Status != nil:
		return fmt.Sprintf("%s %v", c.Expect, c.Status)
	case c.Schema != "":
		if c.Path != "" {
			return fmt.Sprintf("%s %s at %s", c.Expect, c.Schema, c.Path)
		}
		return c.Expect + " " + c.Schema
	}
	return c.Expect
}
