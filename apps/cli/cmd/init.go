package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/webmatch/packages/assertions"
	"github.com/abdul-hamid-achik/webmatch/packages/core/config"
	"github.com/abdul-hamid-achik/webmatch/packages/suite"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new webmatch project",
	Long: `Initialize a new webmatch project in the current directory.

This creates:
  - webmatch.yaml          - Example suite
  - .webmatch.config.json  - Configuration file

Examples:
  webmatch init
  webmatch init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

// sampleSuite is the suite written by init.
func sampleSuite() *suite.File {
	return &suite.File{
		Name: "example.com",
		Variables: map[string]string{
			"host": "example.com",
		},
		Checks: []suite.Check{
			{
				Name:   "site is up",
				Target: "{{host}}",
				Expect: assertions.NameBeUp,
				Tags:   []string{"smoke"},
			},
			{
				Name:   "certificate is valid",
				Target: "{{host}}",
				Expect: assertions.NameHaveAValidCert,
				Tags:   []string{"smoke", "tls"},
			},
			{
				Name:   "plain http goes to https",
				Target: "{{host}}",
				Expect: assertions.NameEnforceHTTPSEverywhere,
				Tags:   []string{"tls"},
			},
			{
				Name:   "www redirects to the apex",
				Target: "www.{{host}}",
				Expect: assertions.NameRedirectPermanentlyTo,
				To:     "https://{{host}}",
				Skip:   "enable once www is configured",
			},
			{
				Name:   "unknown pages are missing",
				Target: "{{host}}/does-not-exist",
				Expect: assertions.NameBeStatus,
				Status: 404,
			},
		},
	}
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	suiteFile := filepath.Join(cwd, "webmatch.yaml")
	configFile := filepath.Join(cwd, config.ConfigFilenames[0])

	if !forceInit {
		for _, f := range []string{suiteFile, configFile} {
			if _, err := os.Stat(f); err == nil {
				return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	suiteYAML, err := yaml.Marshal(sampleSuite())
	if err != nil {
		return err
	}
	if err := os.WriteFile(suiteFile, suiteYAML, 0644); err != nil {
		return fmt.Errorf("failed to create suite file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", suiteFile)

	cfg := config.DefaultConfig()
	cfg.Rate = 2
	cfg.Headers = map[string]string{"User-Agent": "webmatch/1.0"}
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nRun your checks with:\n  webmatch run webmatch.yaml\n")
	return nil
}
