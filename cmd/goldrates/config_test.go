package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/goldrates/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, model.DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, model.DefaultFetchTimeout, cfg.FetchTimeout)
	assert.Equal(t, []string{"main"}, cfg.Widgets)
	assert.True(t, cfg.ExactAlarms)
	assert.False(t, cfg.APIEnabled)
	assert.Equal(t, "127.0.0.1:3000", cfg.APIAddr)
	assert.Empty(t, cfg.ConfigPath)
	require.NotNil(t, cfg.Location)
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, `
endpoint: http://localhost:8080/api/live
fetch-timeout: 3s
widgets: [home, office]
exact-alarms: false
api-enabled: true
api-port: 4100
socket-path: ~/run/gr.sock
timezone: UTC
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api/live", cfg.Endpoint)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, []model.InstanceID{"home", "office"}, cfg.widgetIDs())
	assert.False(t, cfg.ExactAlarms)
	assert.Equal(t, "127.0.0.1:4100", cfg.APIAddr)
	assert.Equal(t, path, cfg.ConfigPath)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), "run", "gr.sock"), cfg.SocketPath)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GOLDRATES_FETCH_TIMEOUT", "7s")
	t.Setenv("GOLDRATES_CURRENCY_SYMBOL", "Rs ")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "Rs ", cfg.CurrencySymbol)
}

func TestLoadConfigMissingFileIsTolerated(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	assert.NoError(t, err)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"endpoint scheme": "endpoint: ftp://example.com/rates\n",
		"zero timeout":    "fetch-timeout: 0s\n",
		"port":            "api-port: 70000\n",
		"duplicate ids":   "widgets: [a, b, a]\n",
		"log format":      "log-format: xml\n",
		"timezone":        "timezone: Mars/Olympus\n",
		"headless empty":  "headless: true\nwidgets: [\" \"]\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			_, err := loadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestShortenPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, "~/x/y.sock", shortenPath(filepath.Join(home, "x", "y.sock")))
	assert.Equal(t, "/tmp/z", shortenPath("/tmp/z"))
}
