package main

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/goldrates/internal/display"
	"github.com/tinytelemetry/goldrates/internal/logging"
	"github.com/tinytelemetry/goldrates/internal/model"
	"github.com/tinytelemetry/goldrates/internal/socketrpc"
)

const (
	defaultBindHost  = "127.0.0.1"
	defaultAPIPort   = 3000
	defaultTimezone  = "Asia/Kolkata"
	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

// appConfig is internal runtime configuration.
// The refresh interval is fixed and has no key.
type appConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	FetchTimeout   time.Duration `mapstructure:"fetch-timeout"`
	Widgets        []string      `mapstructure:"widgets"`
	ExactAlarms    bool          `mapstructure:"exact-alarms"`
	Headless       bool          `mapstructure:"headless"`
	CurrencySymbol string        `mapstructure:"currency-symbol"`
	Timezone       string        `mapstructure:"timezone"`
	APIEnabled     bool          `mapstructure:"api-enabled"`
	APIPort        int           `mapstructure:"api-port"`
	APIAddr        string        `mapstructure:"api-addr"`
	SocketEnabled  bool          `mapstructure:"socket-enabled"`
	SocketPath     string        `mapstructure:"socket-path"`
	LogLevel       string        `mapstructure:"log-level"`
	LogFormat      string        `mapstructure:"log-format"`
	LogFile        string        `mapstructure:"log-file"`

	ConfigPath string         `mapstructure:"-"` // not from config file
	Location   *time.Location `mapstructure:"-"`
}

func (c appConfig) widgetIDs() []model.InstanceID {
	ids := make([]model.InstanceID, len(c.Widgets))
	for i, w := range c.Widgets {
		ids[i] = model.InstanceID(w)
	}
	return ids
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("GOLDRATES")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("endpoint", model.DefaultEndpoint)
	v.SetDefault("fetch-timeout", model.DefaultFetchTimeout)
	v.SetDefault("widgets", []string{string(model.DefaultWidgetID)})
	v.SetDefault("exact-alarms", true)
	v.SetDefault("headless", false)
	v.SetDefault("currency-symbol", model.DefaultCurrencySymbol)
	v.SetDefault("timezone", defaultTimezone)
	v.SetDefault("api-enabled", false)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("socket-enabled", true)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("log-format", defaultLogFormat)
	v.SetDefault("log-file", logging.DefaultFile())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "goldrates", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	// Expand ~ in paths
	cfg.SocketPath = expandHome(home, cfg.SocketPath)
	cfg.LogFile = expandHome(home, cfg.LogFile)

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}

	cfg.Location, err = display.LoadLocation(cfg.Timezone)
	if err != nil {
		return cfg, fmt.Errorf("invalid timezone: %w", err)
	}
	return cfg, nil
}

func (c *appConfig) validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid endpoint: %q", c.Endpoint)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("invalid fetch-timeout: %s", c.FetchTimeout)
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("invalid api-port: %d", c.APIPort)
	}

	seen := make(map[string]bool, len(c.Widgets))
	widgets := c.Widgets[:0]
	for _, w := range c.Widgets {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if seen[w] {
			return fmt.Errorf("duplicate widget id: %q", w)
		}
		seen[w] = true
		widgets = append(widgets, w)
	}
	c.Widgets = widgets
	if len(c.Widgets) == 0 && c.Headless {
		return errors.New("headless mode needs at least one widget")
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log-format: %q", c.LogFormat)
	}
	return nil
}

func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
