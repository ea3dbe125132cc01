package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/webmatch/packages/output"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags puts every flag back to its default, since cobra commands are
// package globals shared between tests.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Value.Type() == "stringArray" {
			return
		}
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)
	varFlags = nil

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, "--no-color"))
	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	require.True(t, errors.As(err, &ee), "expected exit error, got %v", err)
	return ee.code
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// statusServer answers /ok with 200 and everything else with 404.
func statusServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func suiteYAML(host string, okStatus int) string {
	return fmt.Sprintf(`name: local
variables:
  host: %s
checks:
  - name: ok page
    target: "{{host}}/ok"
    expect: be_status
    status: %d
    tags: [smoke]
  - name: missing page
    target: "{{host}}/missing"
    expect: be_status
    status: 404
`, host, okStatus)
}

func TestVersionCommand(t *testing.T) {
	version, buildTime = "1.2.3", "today"
	stdout, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "webmatch version 1.2.3")
	assert.Contains(t, stdout, "Built: today")
}

func TestInitValidateList(t *testing.T) {
	testChdir(t, t.TempDir())

	stdout, _, err := executeCommand(t, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "webmatch.yaml")
	assert.FileExists(t, "webmatch.yaml")
	assert.FileExists(t, ".webmatch.config.json")

	_, _, err = executeCommand(t, "init")
	assert.Equal(t, ExitUsageError, exitCode(t, err))

	_, _, err = executeCommand(t, "init", "--force")
	require.NoError(t, err)

	stdout, _, err = executeCommand(t, "validate", ".")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Valid: webmatch.yaml (5 checks)")

	stdout, _, err = executeCommand(t, "list", "webmatch.yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "example.com (webmatch.yaml):")
	assert.Contains(t, stdout, "- site is up")
	assert.Contains(t, stdout, "{{host}}/does-not-exist be_status 404")
	assert.Contains(t, stdout, "skipped: enable once www is configured")
}

func TestValidateCommand_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "webmatch.yaml"), `checks:
  - target: example.com
  - target: example.com
    expect: redirect_permanently_to
`)

	_, stderr, err := executeCommand(t, "validate", dir)
	assert.Equal(t, ExitParseError, exitCode(t, err))
	assert.Contains(t, stderr, "check 1: missing expect")
	assert.Contains(t, stderr, "check 2: redirect_permanently_to needs a to location")
}

func TestValidateCommand_NoFiles(t *testing.T) {
	_, _, err := executeCommand(t, "validate", t.TempDir())
	assert.Equal(t, ExitParseError, exitCode(t, err))
}

func TestCheckCommand(t *testing.T) {
	testChdir(t, t.TempDir())
	host := statusServer(t)

	stdout, _, err := executeCommand(t, "check", host+"/ok", "--expect", "be_status", "--status", "200", "--json")
	require.NoError(t, err)

	var got checkOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.True(t, got.Passed)
	assert.Equal(t, "be_status", got.Matcher)
	assert.Equal(t, "be status 200", got.Description)

	stdout, _, err = executeCommand(t, "check", host+"/missing", "--expect", "be_status", "--status", "200")
	assert.Equal(t, ExitCheckFailure, exitCode(t, err))
	assert.Contains(t, stdout, "✗")

	_, stderr, err := executeCommand(t, "check", "example.com", "--expect", "be_status")
	assert.Equal(t, ExitUsageError, exitCode(t, err))
	assert.Contains(t, stderr, "be_status needs a status")
}

func TestRunCommand_JSONReport(t *testing.T) {
	testChdir(t, t.TempDir())
	host := statusServer(t)
	writeFile(t, "checks/local.webmatch.yaml", suiteYAML(host, 200))

	_, _, err := executeCommand(t, "run", "checks", "-o", "json", "--output-file", "report.json")
	require.NoError(t, err)

	report, err := loadReport("report.json")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 2, report.Summary.Passed)
	require.Len(t, report.Suites, 1)
	assert.Equal(t, "local", report.Suites[0].Name)
}

func TestRunCommand_FailureAndFilters(t *testing.T) {
	testChdir(t, t.TempDir())
	host := statusServer(t)
	writeFile(t, "webmatch.yaml", suiteYAML(host, 201))

	stdout, _, err := executeCommand(t, "run", "webmatch.yaml")
	assert.Equal(t, ExitCheckFailure, exitCode(t, err))
	assert.Contains(t, stdout, "1 passed")
	assert.Contains(t, stdout, "1 failed")

	_, _, err = executeCommand(t, "run", "webmatch.yaml", "--name", "missing*")
	assert.NoError(t, err)

	_, _, err = executeCommand(t, "run", "webmatch.yaml", "--var", "host="+host+"/nothing", "--tags", "smoke")
	assert.Equal(t, ExitCheckFailure, exitCode(t, err))
}

func TestRunCommand_VariableOverride(t *testing.T) {
	testChdir(t, t.TempDir())
	host := statusServer(t)
	writeFile(t, "webmatch.yaml", suiteYAML("unused.invalid", 200))

	_, _, err := executeCommand(t, "run", "webmatch.yaml", "--var", "host="+host)
	assert.NoError(t, err)
}

func TestRunCommand_InvalidSuite(t *testing.T) {
	testChdir(t, t.TempDir())
	writeFile(t, "webmatch.yaml", "checks:\n  - target: example.com\n    expect: be_shiny\n")

	stdout, _, err := executeCommand(t, "run", "webmatch.yaml")
	assert.Equal(t, ExitParseError, exitCode(t, err))
	assert.Contains(t, stdout, "unknown expectation")
}

func TestRunCommand_HistoryAndHistoryCommand(t *testing.T) {
	testChdir(t, t.TempDir())
	host := statusServer(t)
	writeFile(t, "webmatch.yaml", suiteYAML(host, 200))

	_, _, err := executeCommand(t, "run", "webmatch.yaml", "--history", "runs.db")
	require.NoError(t, err)

	stdout, _, err := executeCommand(t, "history", "--db", "runs.db")
	require.NoError(t, err)
	assert.Contains(t, stdout, "STATUS")
	assert.Contains(t, stdout, "pass")
	assert.Contains(t, stdout, "webmatch.yaml")

	_, _, err = executeCommand(t, "history")
	assert.Equal(t, ExitUsageError, exitCode(t, err))
}

func TestRunCommand_BadConfig(t *testing.T) {
	testChdir(t, t.TempDir())
	writeFile(t, ".webmatch.config.json", `{"rate": -1}`)
	writeFile(t, "webmatch.yaml", suiteYAML("example.com", 200))

	_, _, err := executeCommand(t, "run", "webmatch.yaml")
	assert.Equal(t, ExitConfigError, exitCode(t, err))
}

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"host=example.com", "empty=", "pair=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"host": "example.com", "empty": "", "pair": "a=b"}, vars)

	_, err = parseVars([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseVars([]string{"=x"})
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b,"))
	assert.Nil(t, splitList(""))
}

func TestCompareReports(t *testing.T) {
	before := &output.JSONOutput{Checks: []output.JSONCheck{
		{Name: "up", File: "a.yaml", Passed: true, Duration: 100},
		{Name: "cert", File: "a.yaml", Passed: false, Duration: 50},
		{Name: "gone", File: "a.yaml", Passed: true, Duration: 10},
		{Name: "skipped", File: "a.yaml", Skipped: true},
	}}
	after := &output.JSONOutput{Checks: []output.JSONCheck{
		{Name: "up", File: "a.yaml", Passed: false, Duration: 300, Message: "Received HTTP 503 instead"},
		{Name: "cert", File: "a.yaml", Passed: true, Duration: 50},
		{Name: "fresh", File: "a.yaml", Passed: true, Duration: 20},
	}}

	diff := compareReports("before.json", "after.json", before, after, 100)

	assert.Equal(t, 1, diff.Summary.Broken)
	assert.Equal(t, 1, diff.Summary.Fixed)
	assert.Equal(t, 1, diff.Summary.New)
	assert.Equal(t, 1, diff.Summary.Removed)
	assert.Equal(t, 0, diff.Summary.Unchanged)
	assert.Equal(t, 1, diff.Summary.Slower)
	assert.False(t, diff.Summary.ThresholdPassed)

	byName := map[string]CheckComparison{}
	for _, c := range diff.Comparisons {
		byName[c.Name] = c
	}
	assert.Equal(t, changeBroken, byName["up"].Change)
	assert.InDelta(t, 200.0, byName["up"].DurationChange, 0.001)
	assert.Equal(t, changeFixed, byName["cert"].Change)
	assert.Equal(t, changeNew, byName["fresh"].Change)
	assert.Equal(t, changeRemoved, byName["gone"].Change)
	assert.NotContains(t, byName, "skipped")
}

func TestDiffCommand(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, r output.JSONOutput) string {
		data, err := json.Marshal(r)
		require.NoError(t, err)
		return writeFile(t, filepath.Join(dir, name), string(data))
	}
	before := write("before.json", output.JSONOutput{
		Summary: output.JSONSummary{Total: 1, Passed: 1},
		Checks:  []output.JSONCheck{{Name: "up", File: "a.yaml", Passed: true}},
	})
	same := write("same.json", output.JSONOutput{
		Summary: output.JSONSummary{Total: 1, Passed: 1},
		Checks:  []output.JSONCheck{{Name: "up", File: "a.yaml", Passed: true}},
	})
	broken := write("broken.json", output.JSONOutput{
		Summary: output.JSONSummary{Total: 1, Failed: 1},
		Checks:  []output.JSONCheck{{Name: "up", File: "a.yaml", Message: "Not a 200"}},
	})

	stdout, _, err := executeCommand(t, "diff", before, same)
	require.NoError(t, err)
	assert.Contains(t, stdout, "0 broken")

	stdout, _, err = executeCommand(t, "diff", before, broken)
	assert.Equal(t, ExitCheckFailure, exitCode(t, err))
	assert.Contains(t, stdout, "now failing")
	assert.Contains(t, stdout, "Not a 200")

	_, _, err = executeCommand(t, "diff", before, filepath.Join(dir, "missing.json"))
	assert.Equal(t, ExitUsageError, exitCode(t, err))
}

func TestWatchHelpers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "nested", "api.webmatch.yaml"), "checks: []\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0755))

	dirs := watchDirs([]string{dir})
	assert.Contains(t, dirs, dir)
	assert.Contains(t, dirs, filepath.Join(dir, "nested"))
	assert.NotContains(t, dirs, filepath.Join(dir, ".git"))

	assert.True(t, watchRelevant("a/webmatch.yaml"))
	assert.True(t, watchRelevant("schemas/user.JSON"))
	assert.False(t, watchRelevant("notes.txt"))
}

func TestRunCommand_PrometheusMetrics(t *testing.T) {
	testChdir(t, t.TempDir())
	host := statusServer(t)
	writeFile(t, "webmatch.yaml", suiteYAML(host, 200))

	_, _, err := executeCommand(t, "run", "webmatch.yaml", "--metrics", "prometheus", "--metrics-file", "webmatch.prom")
	require.NoError(t, err)

	data, err := os.ReadFile("webmatch.prom")
	require.NoError(t, err)
	assert.Contains(t, string(data), `webmatch_checks{result="passed"} 2`)

	_, _, err = executeCommand(t, "run", "webmatch.yaml", "--metrics", "prometheus")
	assert.Equal(t, ExitConfigError, exitCode(t, err))
}

// testChdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains:
// it changes the working directory and restores it when the test ends.
func testChdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
