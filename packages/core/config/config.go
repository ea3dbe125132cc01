package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the webmatch configuration
type Config struct {
	Rate       float64           `json:"rate,omitempty"` // checks per second, 0 means unthrottled
	Bail       *bool             `json:"bail,omitempty"`
	Verbose    *bool             `json:"verbose,omitempty"`
	NoColor    *bool             `json:"noColor,omitempty"`
	Reporters  []string          `json:"reporters,omitempty"`
	OutputFile string            `json:"outputFile,omitempty"`
	EnvFile    string            `json:"envFile,omitempty"`
	LogFile    string            `json:"logFile,omitempty"`
	HistoryDB  string            `json:"historyDB,omitempty"`
	Proxy      string            `json:"proxy,omitempty"`
	CACertFile string            `json:"caCertFile,omitempty"` // PEM bundle replacing the system roots
	Headers    map[string]string `json:"headers,omitempty"`    // sent with every probe
	Variables  map[string]string `json:"variables,omitempty"`
	Notify     *NotifyConfig     `json:"notify,omitempty"`
}

// NotifyConfig configures run summaries posted to Slack
type NotifyConfig struct {
	SlackWebhook string `json:"slackWebhook,omitempty"`
	SlackChannel string `json:"slackChannel,omitempty"`
	On           string `json:"on,omitempty"` // always, failure, success, recovery
}

// BoolPtr returns a pointer to b, for setting optional flags
func BoolPtr(b bool) *bool {
	return &b
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetBail returns the bail setting, defaulting to false
func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names, in search order
var ConfigFilenames = []string{
	".webmatch.config.json",
	"webmatch.config.json",
	".webmatchrc",
}

// LoadConfig loads configuration from path, or searches the current
// directory when path is empty
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig returns the first config file found in dir, or the
// defaults when there is none
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}
	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Validate rejects settings no run could honor
func (c *Config) Validate() error {
	if c.Rate < 0 {
		return fmt.Errorf("rate must not be negative, got %v", c.Rate)
	}
	if c.Notify != nil {
		switch c.Notify.On {
		case "", "always", "failure", "success", "recovery":
		default:
			return fmt.Errorf("unknown notify.on value %q", c.Notify.On)
		}
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.Rate > 0 {
		result.Rate = other.Rate
	}
	if other.OutputFile != "" {
		result.OutputFile = other.OutputFile
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}
	if other.LogFile != "" {
		result.LogFile = other.LogFile
	}
	if other.HistoryDB != "" {
		result.HistoryDB = other.HistoryDB
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.CACertFile != "" {
		result.CACertFile = other.CACertFile
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	result.Headers = mergeMaps(c.Headers, other.Headers)
	result.Variables = mergeMaps(c.Variables, other.Variables)

	if other.Notify != nil {
		n := NotifyConfig{}
		if c.Notify != nil {
			n = *c.Notify
		}
		if other.Notify.SlackWebhook != "" {
			n.SlackWebhook = other.Notify.SlackWebhook
		}
		if other.Notify.SlackChannel != "" {
			n.SlackChannel = other.Notify.SlackChannel
		}
		if other.Notify.On != "" {
			n.On = other.Notify.On
		}
		result.Notify = &n
	}

	return &result
}

func mergeMaps(base, over map[string]string) map[string]string {
	if len(base) == 0 && len(over) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range over {
		merged[k] = v
	}
	return merged
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
