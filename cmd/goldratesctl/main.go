package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/goldrates/internal/model"
	"github.com/tinytelemetry/goldrates/internal/scheduler"
	"github.com/tinytelemetry/goldrates/internal/socketrpc"
)

// Build variables - set by ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
)

const usage = `usage: goldratesctl [flags] <command> [args]

commands:
  list            show every placed widget
  get <id>        show one widget
  refresh <id>... refresh widgets now
  health          show runtime health
`

type cliConfig struct {
	SocketPath string `mapstructure:"socket-path"`
	Output     string `mapstructure:"output"`
}

func main() {
	var (
		configPath  string
		socketPath  string
		output      string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/goldrates/config.yml)")
	flag.StringVar(&socketPath, "socket", "", "unix socket path (overrides config)")
	flag.StringVar(&output, "o", "", "output format: text, json or yaml")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage+"\nflags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("goldratesctl %s (%s)\n", version, commit)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if socketPath != "" {
		cfg.SocketPath = socketPath
	}
	if output != "" {
		cfg.Output = output
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client, err := socketrpc.Dial(cfg.SocketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach goldrates at %s: %v\n", cfg.SocketPath, err)
		os.Exit(1)
	}
	defer client.Close()

	if err := execute(os.Stdout, client, cfg.Output, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// controlClient is the subset of the socket client the commands use.
type controlClient interface {
	Refresh(id model.InstanceID) error
	ListWidgets() ([]model.WidgetStatus, error)
	GetWidget(id model.InstanceID) (model.WidgetStatus, error)
	Health() (socketrpc.Health, error)
}

func execute(w io.Writer, c controlClient, format string, args []string) error {
	switch args[0] {
	case "list":
		widgets, err := c.ListWidgets()
		if err != nil {
			return err
		}
		return printWidgets(w, format, widgets)

	case "get":
		if len(args) != 2 {
			return errors.New("get needs exactly one widget id")
		}
		st, err := c.GetWidget(model.InstanceID(args[1]))
		if err != nil {
			return err
		}
		return printWidgets(w, format, []model.WidgetStatus{st})

	case "refresh":
		if len(args) < 2 {
			return errors.New("refresh needs at least one widget id")
		}
		for _, id := range args[1:] {
			if err := c.Refresh(model.InstanceID(id)); err != nil {
				if errors.Is(err, scheduler.ErrUnknownInstance) {
					return fmt.Errorf("widget %q is not placed", id)
				}
				return err
			}
			fmt.Fprintf(w, "refreshing %s\n", id)
		}
		return nil

	case "health":
		h, err := c.Health()
		if err != nil {
			return err
		}
		switch format {
		case "json", "yaml":
			return encode(w, format, h)
		}
		fmt.Fprintf(w, "status:  %s\nuptime:  %s\nwidgets: %d\n", h.Status, h.Uptime, h.Widgets)
		return nil
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func printWidgets(w io.Writer, format string, widgets []model.WidgetStatus) error {
	switch format {
	case "json", "yaml":
		return encode(w, format, widgets)
	case "", "text":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	if len(widgets) == 0 {
		fmt.Fprintln(w, "no widgets placed")
		return nil
	}

	rows := make([][]string, 0, len(widgets))
	for _, st := range widgets {
		rows = append(rows, []string{
			string(st.ID),
			st.Phase.String(),
			orPlaceholder(st.GoldSell),
			orPlaceholder(st.SilverSell),
			formatTime(st.LastSuccessAt),
			formatTime(st.NextTickAt),
			fmt.Sprintf("%d", st.ConsecutiveFailures),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "PHASE", "GOLD", "SILVER", "UPDATED", "NEXT", "FAILURES").
		Rows(rows...)
	fmt.Fprintln(w, t.String())
	return nil
}

func encode(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orPlaceholder(s string) string {
	if s == "" {
		return model.Placeholder
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return model.Placeholder
	}
	return t.Local().Format("15:04:05")
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	v := viper.New()
	v.SetEnvPrefix("GOLDRATES")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("output", "text")

	home, _ := os.UserHomeDir()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if home != "" {
		v.SetConfigFile(filepath.Join(home, ".config", "goldrates", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if home != "" && strings.HasPrefix(cfg.SocketPath, "~/") {
		cfg.SocketPath = filepath.Join(home, cfg.SocketPath[2:])
	}
	return cfg, nil
}
