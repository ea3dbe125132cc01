package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindAndLoadConfig_Defaults(t *testing.T) {
	cfg, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.IsDefault())
	assert.Equal(t, []string{"console"}, cfg.Reporters)
}

func TestFindAndLoadConfig_SearchOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".webmatchrc"), []byte(`{"rate": 1}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "webmatch.config.json"), []byte(`{"rate": 2}`), 0644))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.Rate)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.json")
	content := `{
		"rate": 5,
		"bail": true,
		"reporters": ["json"],
		"headers": {"X-Probe": "webmatch"},
		"variables": {"domain": "example.com"},
		"notify": {"slackWebhook": "https://hooks.slack.com/services/x", "on": "failure"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.Rate)
	assert.True(t, cfg.GetBail())
	assert.False(t, cfg.GetVerbose())
	assert.Equal(t, []string{"json"}, cfg.Reporters)
	assert.Equal(t, "webmatch", cfg.Headers["X-Probe"])
	assert.Equal(t, "example.com", cfg.Variables["domain"])
	require.NotNil(t, cfg.Notify)
	assert.Equal(t, "failure", cfg.Notify.On)
	assert.False(t, cfg.IsDefault())
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"rate":`), 0644))
	_, err := LoadConfig(broken)
	assert.Error(t, err)

	negative := filepath.Join(dir, "negative.json")
	require.NoError(t, os.WriteFile(negative, []byte(`{"rate": -1}`), 0644))
	_, err = LoadConfig(negative)
	assert.ErrorContains(t, err, "rate must not be negative")

	badNotify := filepath.Join(dir, "notify.json")
	require.NoError(t, os.WriteFile(badNotify, []byte(`{"notify": {"on": "sometimes"}}`), 0644))
	_, err = LoadConfig(badNotify)
	assert.ErrorContains(t, err, `unknown notify.on value "sometimes"`)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Variables = map[string]string{"domain": "example.com", "env": "prod"}
	base.Notify = &NotifyConfig{SlackWebhook: "https://hooks.slack.com/a", On: "always"}

	merged := base.Merge(&Config{
		Rate:      2,
		Bail:      BoolPtr(true),
		Variables: map[string]string{"env": "staging"},
		Notify:    &NotifyConfig{On: "recovery"},
	})

	assert.Equal(t, 2.0, merged.Rate)
	assert.True(t, merged.GetBail())
	assert.False(t, merged.GetNoColor())
	assert.Equal(t, map[string]string{"domain": "example.com", "env": "staging"}, merged.Variables)
	assert.Equal(t, "https://hooks.slack.com/a", merged.Notify.SlackWebhook)
	assert.Equal(t, "recovery", merged.Notify.On)

	// base is untouched
	assert.Equal(t, "prod", base.Variables["env"])
	assert.Equal(t, "always", base.Notify.On)
	assert.False(t, base.GetBail())
}

func TestMerge_Nil(t *testing.T) {
	base := DefaultConfig()
	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".webmatch.config.json")
	cfg := DefaultConfig()
	cfg.HistoryDB = "history.db"
	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "history.db", loaded.HistoryDB)
}
