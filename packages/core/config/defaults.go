package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Rate:      0,
		Bail:      BoolPtr(false),
		Verbose:   BoolPtr(false),
		NoColor:   BoolPtr(false),
		Reporters: []string{"console"},
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Rate == defaults.Rate &&
		c.GetBail() == defaults.GetBail() &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor() &&
		len(c.Reporters) == 1 && c.Reporters[0] == defaults.Reporters[0] &&
		c.OutputFile == "" &&
		c.EnvFile == "" &&
		c.LogFile == "" &&
		c.HistoryDB == "" &&
		c.Proxy == "" &&
		c.CACertFile == "" &&
		len(c.Headers) == 0 &&
		len(c.Variables) == 0 &&
		c.Notify == nil
}
