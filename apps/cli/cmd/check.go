package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/abdul-hamid-achik/webmatch/packages/suite"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var checkCmd = &cobra.Command{
	Use:   "check <target>",
	Short: "Evaluate one matcher against a target",
	Long: `Evaluate a single matcher against a target and exit non-zero if it fails.

Examples:
  webmatch check example.com --expect be_up
  webmatch check example.com --expect have_a_valid_cert
  webmatch check example.com --expect redirect_permanently_to --to https://www.example.com
  webmatch check example.com/old --expect be_status --status 404
  webmatch check api.example.com/users --expect match_json_schema --schema users.json --path data`,
	Args: cobra.ExactArgs(1),
	RunE: checkCommand,
}

var (
	checkExpectFlag string
	checkToFlag     string
	checkStatusFlag string
	checkSchemaFlag string
	checkPathFlag   string
	checkJSONFlag   bool
)

func init() {
	checkCmd.Flags().StringVarP(&checkExpectFlag, "expect", "x", "be_up", "Matcher to evaluate")
	checkCmd.Flags().StringVar(&checkToFlag, "to", "", "Expected redirect location for redirect matchers")
	checkCmd.Flags().StringVar(&checkStatusFlag, "status", "", "Expected status code for be_status")
	checkCmd.Flags().StringVar(&checkSchemaFlag, "schema", "", "JSON schema file for match_json_schema")
	checkCmd.Flags().StringVar(&checkPathFlag, "path", "", "gjson path of the document to validate")
	checkCmd.Flags().BoolVar(&checkJSONFlag, "json", false, "Print the outcome as JSON")
}

type checkOutput struct {
	Target      string  `json:"target"`
	Matcher     string  `json:"matcher"`
	Description string  `json:"description"`
	Passed      bool    `json:"passed"`
	Message     string  `json:"message,omitempty"`
	DurationMS  float64 `json:"duration_ms"`
}

func checkCommand(cmd *cobra.Command, args []string) error {
	c := suite.Check{
		Target: args[0],
		Expect: checkExpectFlag,
		To:     checkToFlag,
		Schema: checkSchemaFlag,
		Path:   checkPathFlag,
	}
	if checkStatusFlag != "" {
		c.Status = checkStatusFlag
	}

	if err := c.Validate(); err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintf(cmd.ErrOrStderr(), "invalid check: %v\n", e)
		}
		return withExitCode(ExitUsageError, nil)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	m, err := c.Matcher(cwd)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	prober, err := newProber(cfg, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	result := prober.Evaluate(c.Target, m)
	elapsed := time.Since(start)

	if result.Err != nil {
		return withExitCode(ExitConfigError, result.Err)
	}

	if checkJSONFlag {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(checkOutput{
			Target:      c.Target,
			Matcher:     m.Name(),
			Description: m.Description(),
			Passed:      result.Passed,
			Message:     result.Message,
			DurationMS:  float64(elapsed.Microseconds()) / 1000,
		}); err != nil {
			return err
		}
	} else {
		if noColorFlag || cfg.GetNoColor() {
			color.NoColor = true
		}
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		if result.Passed {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s to %s %s\n", green("✓"), c.Target, m.Description(), cyan(fmt.Sprintf("(%dms)", elapsed.Milliseconds())))
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s to %s %s\n", red("✗"), c.Target, m.Description(), cyan(fmt.Sprintf("(%dms)", elapsed.Milliseconds())))
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", red("→"), result.Message)
		}
	}

	if !result.Passed {
		return withExitCode(ExitCheckFailure, nil)
	}
	return nil
}
