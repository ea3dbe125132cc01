package cmd

import (
	"crypto/x509"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/webmatch/packages/assertions"
	"github.com/abdul-hamid-achik/webmatch/packages/core/config"
	"github.com/abdul-hamid-achik/webmatch/packages/http"
	"github.com/abdul-hamid-achik/webmatch/packages/logging"
	"go.uber.org/zap"
)

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// loadConfig reads the config file named by --config, or the first one found
// in the working directory.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, withExitCode(ExitConfigError, fmt.Errorf("loading config: %w", err))
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, stderr io.Writer) (*zap.Logger, error) {
	opts := logging.Options{
		File:  logFileFlag,
		Debug: debugFlag,
	}
	if opts.File == "" {
		opts.File = cfg.LogFile
	}
	if debugFlag {
		opts.Console = stderr
	}
	logger, err := logging.NewLogger(opts)
	if err != nil {
		return nil, withExitCode(ExitConfigError, fmt.Errorf("creating logger: %w", err))
	}
	return logger, nil
}

// newProber builds a prober honoring the proxy, extra headers and private CA
// bundle from the config. Timeouts and redirect limits stay fixed.
func newProber(cfg *config.Config, logger *zap.Logger) (*assertions.Prober, error) {
	var clientOpts []http.ClientOption
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, http.WithDefaultHeaders(cfg.Headers))
	}
	if cfg.CACertFile != "" {
		pem, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, withExitCode(ExitConfigError, fmt.Errorf("reading CA bundle: %w", err))
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, withExitCode(ExitConfigError, fmt.Errorf("no certificates found in %s", cfg.CACertFile))
		}
		clientOpts = append(clientOpts, http.WithRootCAs(pool))
	}

	return assertions.NewProber(
		assertions.WithLogger(logger),
		assertions.WithClientOptions(clientOpts...),
	), nil
}
