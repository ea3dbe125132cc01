package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/webmatch/packages/core/config"
	"github.com/abdul-hamid-achik/webmatch/packages/core/env"
	"github.com/abdul-hamid-achik/webmatch/packages/core/runner"
	"github.com/abdul-hamid-achik/webmatch/packages/export/metrics"
	"github.com/abdul-hamid-achik/webmatch/packages/history"
	"github.com/abdul-hamid-achik/webmatch/packages/notify"
	"github.com/abdul-hamid-achik/webmatch/packages/output"
	"github.com/abdul-hamid-achik/webmatch/packages/suite"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>...",
	Short: "Run checks from suite files",
	Long: `Run the checks defined in webmatch.yaml or *.webmatch.yaml files.

Examples:
  webmatch run webmatch.yaml
  webmatch run ./checks/ --tags smoke
  webmatch run ./checks/ --parallel --rate 5
  webmatch run ./checks/ -o junit --output-file report.xml
  webmatch run ./checks/ --history .webmatch.db --notify slack --notify-on recovery
  webmatch run ./checks/ --var host=staging.example.com --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

var (
	outputFlag       string
	outputFileFlag   string
	bailFlag         bool
	rateFlag         float64
	parallelFlag     bool
	concurrencyFlag  int
	historyFlag      string
	envFileFlag      string
	nameFlag         string
	tagsFlag         string
	varFlags         []string
	verboseFlag      bool
	watchFlag        bool
	proxyFlag        string
	caCertFlag       string
	notifyFlag       string
	notifyOnFlag     string
	slackWebhookFlag string
	slackChannelFlag string

	// Metrics flags
	metricsFlag       string
	metricsFileFlag   string
	datadogAPIKeyFlag string
	datadogSiteFlag   string
	datadogTagsFlag   string
)

func init() {
	// Selection flags
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only checks matching name pattern (* wildcards)")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("WEBMATCH_TAGS", ""), "Run only checks with specified tags (comma-separated) (env: WEBMATCH_TAGS)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("WEBMATCH_ENV_FILE", ""), "Path to .env file for variable interpolation (env: WEBMATCH_ENV_FILE)")
	runCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Set a variable (key=value), may be repeated")

	// Output flags
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("WEBMATCH_OUTPUT", ""), "Output format: "+strings.Join(output.Names, ", ")+" (env: WEBMATCH_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("WEBMATCH_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: WEBMATCH_OUTPUT_FILE)")
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("WEBMATCH_VERBOSE", false), "Show targets and latency percentiles (env: WEBMATCH_VERBOSE)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("WEBMATCH_BAIL", false), "Stop on first failure (env: WEBMATCH_BAIL)")
	runCmd.Flags().Float64Var(&rateFlag, "rate", getEnvFloat("WEBMATCH_RATE", 0), "Maximum checks per second, 0 for no limit (env: WEBMATCH_RATE)")
	runCmd.Flags().BoolVarP(&parallelFlag, "parallel", "p", getEnvBool("WEBMATCH_PARALLEL", false), "Run checks in parallel (env: WEBMATCH_PARALLEL)")
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", getEnvInt("WEBMATCH_CONCURRENCY", runner.DefaultConcurrency), "Number of concurrent checks when running in parallel (env: WEBMATCH_CONCURRENCY)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch suite files for changes and re-run")
	runCmd.Flags().StringVar(&historyFlag, "history", getEnvString("WEBMATCH_HISTORY", ""), "Record runs in this SQLite database (env: WEBMATCH_HISTORY)")

	// Network flags
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("WEBMATCH_PROXY", ""), "Proxy URL for probes (env: WEBMATCH_PROXY)")
	runCmd.Flags().StringVar(&caCertFlag, "ca-cert", getEnvString("WEBMATCH_CA_CERT", ""), "PEM bundle trusted instead of the system roots (env: WEBMATCH_CA_CERT)")

	// Notification flags
	runCmd.Flags().StringVar(&notifyFlag, "notify", getEnvString("WEBMATCH_NOTIFY", ""), "Notification service: slack (env: WEBMATCH_NOTIFY)")
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("WEBMATCH_NOTIFY_ON", ""), "When to notify: always, failure, success, recovery (env: WEBMATCH_NOTIFY_ON)")
	runCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("SLACK_WEBHOOK", ""), "Slack webhook URL (env: SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&slackChannelFlag, "slack-channel", getEnvString("SLACK_CHANNEL", ""), "Slack channel override (env: SLACK_CHANNEL)")

	// Metrics flags
	runCmd.Flags().StringVar(&metricsFlag, "metrics", getEnvString("WEBMATCH_METRICS", ""), "Metrics export: prometheus, datadog (comma-separated) (env: WEBMATCH_METRICS)")
	runCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", getEnvString("WEBMATCH_METRICS_FILE", ""), "Prometheus textfile to write (env: WEBMATCH_METRICS_FILE)")
	runCmd.Flags().StringVar(&datadogAPIKeyFlag, "datadog-api-key", getEnvString("DD_API_KEY", ""), "DataDog API key (env: DD_API_KEY)")
	runCmd.Flags().StringVar(&datadogSiteFlag, "datadog-site", getEnvString("DD_SITE", "datadoghq.com"), "DataDog site (env: DD_SITE)")
	runCmd.Flags().StringVar(&datadogTagsFlag, "datadog-tags", getEnvString("DD_TAGS", ""), "Comma-separated DataDog tags (env: DD_TAGS)")
}

// runFlagsConfig turns the run flags into a config layered over the file.
func runFlagsConfig() *config.Config {
	c := &config.Config{
		Rate:       rateFlag,
		OutputFile: outputFileFlag,
		EnvFile:    envFileFlag,
		HistoryDB:  historyFlag,
		Proxy:      proxyFlag,
		CACertFile: caCertFlag,
	}
	if outputFlag != "" {
		c.Reporters = []string{strings.ToLower(outputFlag)}
	}
	if bailFlag {
		c.Bail = config.BoolPtr(true)
	}
	if verboseFlag {
		c.Verbose = config.BoolPtr(true)
	}
	if noColorFlag {
		c.NoColor = config.BoolPtr(true)
	}
	if notifyOnFlag != "" || slackWebhookFlag != "" || slackChannelFlag != "" {
		c.Notify = &config.NotifyConfig{
			SlackWebhook: slackWebhookFlag,
			SlackChannel: slackChannelFlag,
			On:           notifyOnFlag,
		}
	}
	return c
}

// parseVars turns repeated key=value flags into a map.
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --var %q, want key=value", p)
		}
		vars[strings.TrimSpace(k)] = v
	}
	return vars, nil
}

// resolveVariables layers config variables, the .env file, WEBMATCH_VAR_*
// environment variables and --var flags, later sources winning.
func resolveVariables(cfg *config.Config) (map[string]string, error) {
	var dotenv map[string]string
	if cfg.EnvFile != "" {
		loaded, err := env.LoadDotEnv(cfg.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
		dotenv = loaded
	}

	flags, err := parseVars(varFlags)
	if err != nil {
		return nil, err
	}

	return env.Merge(cfg.Variables, dotenv, env.FromOS(env.VarPrefix), flags), nil
}

// newNotifyManager returns nil when notifications are not configured.
func newNotifyManager(cfg *config.Config) (*notify.Manager, error) {
	services := splitList(notifyFlag)
	if len(services) == 0 && cfg.Notify != nil && cfg.Notify.SlackWebhook != "" {
		services = []string{"slack"}
	}
	if len(services) == 0 {
		return nil, nil
	}

	nc := config.NotifyConfig{}
	if cfg.Notify != nil {
		nc = *cfg.Notify
	}
	on, err := notify.ParseNotifyOn(nc.On)
	if err != nil {
		return nil, err
	}

	var notifiers []notify.Notifier
	for _, service := range services {
		switch strings.ToLower(service) {
		case "slack":
			if nc.SlackWebhook == "" {
				return nil, fmt.Errorf("--slack-webhook is required when using --notify slack")
			}
			var opts []notify.SlackOption
			if nc.SlackChannel != "" {
				opts = append(opts, notify.WithSlackChannel(nc.SlackChannel))
			}
			notifiers = append(notifiers, notify.NewSlackNotifier(nc.SlackWebhook, opts...))
		default:
			return nil, fmt.Errorf("unknown notification service %q", service)
		}
	}
	return notify.NewManager(on, notifiers...), nil
}

func newExporters() ([]metrics.Exporter, error) {
	var exporters []metrics.Exporter
	for _, name := range splitList(metricsFlag) {
		switch strings.ToLower(name) {
		case "prometheus":
			if metricsFileFlag == "" {
				return nil, fmt.Errorf("--metrics-file is required when using --metrics prometheus")
			}
			exporters = append(exporters, metrics.NewPrometheusExporter(metrics.WithPrometheusFile(metricsFileFlag)))
		case "datadog":
			if datadogAPIKeyFlag == "" {
				return nil, fmt.Errorf("--datadog-api-key is required when using --metrics datadog")
			}
			exporters = append(exporters, metrics.NewDataDogExporter(datadogAPIKeyFlag,
				metrics.WithDataDogSite(datadogSiteFlag),
				metrics.WithDataDogTags(splitList(datadogTagsFlag)),
			))
		default:
			return nil, fmt.Errorf("unknown metrics exporter %q", name)
		}
	}
	return exporters, nil
}

// session holds everything a run needs between repetitions in watch mode.
type session struct {
	cmd      *cobra.Command
	cfg      *config.Config
	args     []string
	runner   *runner.Runner
	logger   *zap.Logger
	history  *history.Store
	notifier  *notify.Manager
	exporters []metrics.Exporter
	seeded    bool
}

// outcome is what one pass over the suites produced.
type outcome struct {
	failed  bool
	invalid bool
}

func (o outcome) exitCode() int {
	switch {
	case o.invalid:
		return ExitParseError
	case o.failed:
		return ExitCheckFailure
	}
	return ExitSuccess
}

func runCommand(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := fileCfg.Merge(runFlagsConfig())
	if err := cfg.Validate(); err != nil {
		return withExitCode(ExitConfigError, err)
	}

	vars, err := resolveVariables(cfg)
	if err != nil {
		return withExitCode(ExitConfigError, err)
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

	notifier, err := newNotifyManager(cfg)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	exporters, err := newExporters()
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	s := &session{
		cmd:       cmd,
		cfg:       cfg,
		args:      args,
		logger:    logger,
		notifier:  notifier,
		exporters: exporters,
	}

	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		defer store.Close()
		s.history = store
	}

	s.runner = runner.NewRunner(&runner.Config{
		Bail:        cfg.GetBail(),
		NameFilter:  nameFlag,
		TagsFilter:  splitList(tagsFlag),
		Rate:        cfg.Rate,
		Parallel:    parallelFlag,
		Concurrency: concurrencyFlag,
		Variables:   vars,
	}, runner.WithProber(prober), runner.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := suite.Collect(args...)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if len(files) == 0 && !watchFlag {
		return withExitCode(ExitParseError, errors.New("no webmatch.yaml or *.webmatch.yaml files found"))
	}

	out, err := s.runOnce(ctx, files)
	if err != nil {
		return err
	}

	if watchFlag {
		return s.watch(ctx)
	}

	if code := out.exitCode(); code != ExitSuccess {
		return withExitCode(code, nil)
	}
	return nil
}

func (s *session) openOutput() (io.Writer, func() error, error) {
	if s.cfg.OutputFile == "" {
		return s.cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(s.cfg.OutputFile)
	if err != nil {
		return nil, nil, withExitCode(ExitConfigError, fmt.Errorf("cannot create output file: %w", err))
	}
	return f, f.Close, nil
}

// runOnce runs every file and reports, records and notifies the results.
func (s *session) runOnce(ctx context.Context, files []string) (outcome, error) {
	var out outcome

	w, closeOutput, err := s.openOutput()
	if err != nil {
		return out, err
	}
	defer func() { _ = closeOutput() }()

	reporter := "console"
	if len(s.cfg.Reporters) > 0 {
		reporter = s.cfg.Reporters[0]
	}
	formatter, err := output.New(reporter, w,
		output.WithVerbose(s.cfg.GetVerbose()),
		output.WithNoColor(s.cfg.GetNoColor()),
	)
	if err != nil {
		return out, withExitCode(ExitUsageError, err)
	}
	formatter.FormatHeader(version)

	if s.notifier != nil && s.history != nil && !s.seeded {
		s.seedNotifier(ctx, files)
	}

	start := time.Now()
	var results []*runner.RunResult
	for _, file := range files {
		result, err := s.runner.RunFile(ctx, file)
		if result != nil {
			formatter.FormatResult(result)
			results = append(results, result)
			if !result.Success() {
				out.failed = true
			}
			s.record(ctx, result)
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			formatter.FormatError(fmt.Errorf("%s: %w", file, err))
			out.invalid = true
		}
		if s.cfg.GetBail() && (out.failed || out.invalid) {
			break
		}
	}
	duration := time.Since(start)

	if err := formatter.Flush(duration); err != nil {
		return out, fmt.Errorf("error writing output: %w", err)
	}

	if s.notifier != nil && len(results) > 0 {
		sent, err := s.notifier.Notify(notify.Summarize(results, duration))
		if err != nil {
			fmt.Fprintf(s.cmd.ErrOrStderr(), "warning: failed to send notification: %v\n", err)
		} else if sent {
			s.logger.Info("notification sent", zap.Int("files", len(results)))
		}
	}

	if len(s.exporters) > 0 && len(results) > 0 {
		snapshot := metrics.FromResults(results, duration, time.Now())
		if err := metrics.ExportAll(snapshot, s.exporters...); err != nil {
			fmt.Fprintf(s.cmd.ErrOrStderr(), "warning: failed to export metrics: %v\n", err)
		}
	}

	return out, nil
}

// seedNotifier primes recovery detection from the last recorded runs, so a
// first passing run after a failing one counts as a recovery.
func (s *session) seedNotifier(ctx context.Context, files []string) {
	s.seeded = true
	for _, file := range files {
		failed, err := s.history.LastFailed(ctx, file)
		if err != nil {
			s.logger.Warn("reading history", zap.String("file", file), zap.Error(err))
			continue
		}
		if failed {
			s.notifier.SetLastFailed(true)
			return
		}
	}
}

func (s *session) record(ctx context.Context, result *runner.RunResult) {
	if s.history == nil {
		return
	}
	id, err := s.history.Record(ctx, result)
	if err != nil {
		s.logger.Warn("recording history", zap.String("file", result.File), zap.Error(err))
		return
	}
	s.logger.Debug("recorded run", zap.String("file", result.File), zap.String("run_id", id))
}
