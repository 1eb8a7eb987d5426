package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/goldrates/internal/alarm"
	"github.com/tinytelemetry/goldrates/internal/clock"
	"github.com/tinytelemetry/goldrates/internal/display"
	"github.com/tinytelemetry/goldrates/internal/httpserver"
	"github.com/tinytelemetry/goldrates/internal/logging"
	"github.com/tinytelemetry/goldrates/internal/model"
	"github.com/tinytelemetry/goldrates/internal/ratesource"
	"github.com/tinytelemetry/goldrates/internal/scheduler"
	"github.com/tinytelemetry/goldrates/internal/socketrpc"
	"github.com/tinytelemetry/goldrates/internal/surface"
	"github.com/tinytelemetry/goldrates/internal/tui"
)

const shutdownDeadline = 10 * time.Second

// run wires the fetcher, alarms, scheduler and surface, then blocks until
// the board exits or a signal arrives.
func run(cfg appConfig) error {
	logger, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
		Console: cfg.Headless,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	formatter := display.NewFormatter(cfg.CurrencySymbol, cfg.Location)
	fetcher := ratesource.NewClient(cfg.Endpoint, cfg.FetchTimeout, clock.System, logger.Named("ratesource"))

	alarms := alarm.NewManager(clock.System, alarm.Exact(cfg.ExactAlarms), logger.Named("alarm"))
	defer alarms.Stop()

	// The board renders through the program, so the program must exist
	// before the scheduler. The board learns its controller afterwards.
	var (
		sink    model.SurfaceRenderer
		board   *tui.BoardModel
		program *tea.Program
	)
	if cfg.Headless {
		sink = surface.NewConsole(os.Stdout, formatter)
	} else {
		board = tui.NewBoardModel(nil, formatter, cfg.widgetIDs())
		program = tea.NewProgram(tui.NewApp(board),
			tea.WithAltScreen(),
			tea.WithMouseCellMotion(),
			tea.WithContext(ctx),
		)
		sink = tui.NewProgramSurface(program)
	}

	pump := surface.NewPump(ctx, sink, logger.Named("surface"))
	pump.Start()
	defer pump.Stop()

	sched := scheduler.New(fetcher, surface.NewDedupe(pump), alarms, clock.System, logger.Named("scheduler"))
	defer sched.Close()
	alarms.Bind(sched.OnAutomaticTick)
	if board != nil {
		board.Bind(sched)
	}

	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(cfg.APIAddr, sched, logger.Named("http"))
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	if cfg.SocketEnabled {
		sockServer := socketrpc.NewServer(cfg.SocketPath, sched, logger.Named("socket"))
		if err := sockServer.Start(); err != nil {
			logger.Warn("failed to start socket server", zap.String("path", cfg.SocketPath), zap.Error(err))
		} else {
			defer sockServer.Stop()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		if cfg.Headless {
			fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		}
		logger.Info("shutdown requested")
		cancel()

		// Shutdown deadline starts now, not at boot.
		deadline := time.NewTimer(shutdownDeadline)
		defer deadline.Stop()

		select {
		case <-sigCh:
			logger.Warn("forced shutdown")
		case <-deadline.C:
			logger.Warn("shutdown timed out, forcing exit")
		}
		_ = logger.Sync()
		os.Exit(1)
	}()

	logger.Info("goldrates starting",
		zap.String("version", version),
		zap.Bool("headless", cfg.Headless),
		zap.Strings("widgets", cfg.Widgets),
		zap.Duration("refresh_interval", model.RefreshInterval),
	)

	g, gctx := errgroup.WithContext(ctx)

	if program != nil {
		g.Go(func() error {
			defer cancel()
			if _, err := program.Run(); err != nil {
				if errors.Is(err, tea.ErrProgramKilled) {
					return nil
				}
				if strings.Contains(err.Error(), "TTY") {
					return fmt.Errorf("the board needs a terminal (try -headless): %w", err)
				}
				return fmt.Errorf("board exited: %w", err)
			}
			return nil
		})
	} else {
		printStartupBanner(cfg)
		for _, id := range cfg.widgetIDs() {
			sched.Activate(id)
		}
	}

	// Wait for context cancellation (from signal handler or board exit).
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	cancel()
	logger.Info("goldrates stopped")
	return err
}

func printStartupBanner(cfg appConfig) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	gold := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := gold.Bold(true).Render(`
    ╔═╗╔═╗╦  ╔╦╗╦═╗╔═╗╔╦╗╔═╗╔═╗
    ║ ╦║ ║║   ║║╠╦╝╠═╣ ║ ║╣ ╚═╗
    ╚═╝╚═╝╩═╝═╩╝╩╚═╩ ╩ ╩ ╚═╝╚═╝`)

	var lines []string
	lines = append(lines, "", logo, "    "+dim.Render("v"+version), "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	lines = append(lines, bold.Render("    Rates"), "")
	lines = append(lines, fmt.Sprintf("    %s  Endpoint       %s", check, cyan.Render(cfg.Endpoint)))
	lines = append(lines, fmt.Sprintf("    %s  Refresh        %s", check, dim.Render("every "+model.RefreshInterval.String())))
	lines = append(lines, fmt.Sprintf("    %s  Widgets        %s", check, dim.Render(strings.Join(cfg.Widgets, ", "))))
	if cfg.ExactAlarms {
		lines = append(lines, fmt.Sprintf("    %s  Wake-ups       %s", check, dim.Render("exact")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Wake-ups       %s", dot, dim.Render("inexact ("+alarm.InexactWindow.String()+" window)")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Control"), "")
	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}
	if cfg.SocketEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Unix Socket    %s", check, cyan.Render(shortenPath(cfg.SocketPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Unix Socket    %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}
	if cfg.LogFile != "" {
		lines = append(lines, fmt.Sprintf("    %s  Log File       %s", check, dim.Render(shortenPath(cfg.LogFile))))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+gold.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
