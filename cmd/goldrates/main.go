package main

import (
	"flag"
	"fmt"
	"os"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var (
		configPath  string
		socketPath  string
		headless    bool
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/goldrates/config.yml)")
	flag.StringVar(&socketPath, "socket", "", "control socket path (overrides config)")
	flag.BoolVar(&headless, "headless", false, "print rate lines to stdout instead of drawing the board")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Goldrates - Live Bullion Rates\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if socketPath != "" {
		cfg.SocketPath = socketPath
	}
	if headless {
		cfg.Headless = true
		if len(cfg.Widgets) == 0 {
			fmt.Fprintln(os.Stderr, "Error: headless mode needs at least one widget")
			os.Exit(1)
		}
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
