package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cartsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 3000*time.Millisecond, cfg.Notifications.TTL)
	assert.Equal(t, 5, cfg.Notifications.MaxVisible)
	assert.Equal(t, 3, cfg.Compare.Max)
	assert.Equal(t, time.Duration(0), cfg.Resync.Interval)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := writeConfig(t, `
remote:
  kind: http
  baseURL: http://shop.local/api
  timeout: 5s
notifications:
  ttl: 2s
resync:
  interval: 30s
`)

	cfg, err := Load(path, env(map[string]string{
		"CARTSYNC_NOTIFY_MAX_VISIBLE": "8",
		"CARTSYNC_JOURNAL_PATH":       "/tmp/j.db",
	}))
	require.NoError(t, err)

	assert.Equal(t, RemoteHTTP, cfg.Remote.Kind)
	assert.Equal(t, "http://shop.local/api", cfg.Remote.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Notifications.TTL)
	assert.Equal(t, 8, cfg.Notifications.MaxVisible)
	assert.Equal(t, 30*time.Second, cfg.Resync.Interval)
	assert.Equal(t, "/tmp/j.db", cfg.Journal.Path)
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "notifications:\n  tll: 2s\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_BadEnvOverride(t *testing.T) {
	_, err := Load("", env(map[string]string{"CARTSYNC_NOTIFY_TTL": "soon"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CARTSYNC_NOTIFY_TTL")
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown remote kind", func(c *Config) { c.Remote.Kind = "grpc" }, "remote.kind"},
		{"http without base URL", func(c *Config) { c.Remote.Kind = RemoteHTTP }, "remote.baseURL"},
		{"zero ttl", func(c *Config) { c.Notifications.TTL = 0 }, "notifications.ttlMs"},
		{"max visible too large", func(c *Config) { c.Notifications.MaxVisible = 51 }, "notifications.maxVisible"},
		{"max visible zero", func(c *Config) { c.Notifications.MaxVisible = 0 }, "notifications.maxVisible"},
		{"negative resync", func(c *Config) { c.Resync.Interval = -time.Second }, "resync.intervalMs"},
		{"empty journal path", func(c *Config) { c.Journal.Path = "" }, "journal.path"},
		{"compare max too large", func(c *Config) { c.Compare.Max = 11 }, "compare.max"},
		{"zero timeout", func(c *Config) { c.Remote.Timeout = 0 }, "remote.timeoutMs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := Validate(cfg)
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "want ValidationError, got %T: %v", err, err)
			assert.Contains(t, ve.Field, tt.field)
		})
	}
}

func TestValidate_HTTPWithBaseURL(t *testing.T) {
	cfg := Default()
	cfg.Remote.Kind = RemoteHTTP
	cfg.Remote.BaseURL = "https://shop.example/api"
	assert.NoError(t, Validate(cfg))
}
