// Command chatwarden runs the AI chat overlay with a console host standing in
// for a real game server. Console lines are fed through the same chat and
// command surfaces a game-server adapter would use.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wardleworks/chatwarden/internal/app"
	"github.com/wardleworks/chatwarden/internal/config"
	"github.com/wardleworks/chatwarden/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	playerName := flag.String("player", "console", "player identity the console host speaks as")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "chatwarden: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "chatwarden: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("chatwarden starting",
		"config", *configPath,
		"log_level", cfg.Server.LogLevel,
		"credential_mode", cfg.AI.CredentialMode,
		"dialect", cfg.Database.Dialect,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "chatwarden",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	// ── Console host ──────────────────────────────────────────────────────────
	host := newConsoleHost(os.Stdin, os.Stdout, *playerName)

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, host.Deliver)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	host.Attach(application)

	printStartupSummary(cfg)
	slog.Info("server ready — press Ctrl+C to shut down")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return application.Run(gctx)
	})
	g.Go(func() error {
		return host.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║       chatwarden — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Platforms       : %-19d ║\n", len(cfg.AI.Platforms))
	fmt.Printf("║  Credential mode : %-19s ║\n", cfg.AI.CredentialMode)
	fmt.Printf("║  Rule directory  : %-19s ║\n", trim(cfg.Rules.Dir))
	fmt.Printf("║  Database        : %-19s ║\n", cfg.Database.Dialect)
	if cfg.Mail.Enable {
		fmt.Printf("║  Mail export     : %-19s ║\n", cfg.Mail.Type)
	} else {
		fmt.Printf("║  Mail export     : %-19s ║\n", "(disabled)")
	}
	if cfg.Server.MetricsAddr != "" {
		fmt.Printf("║  Metrics addr    : %-19s ║\n", trim(cfg.Server.MetricsAddr))
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func trim(value string) string {
	if len(value) > 19 {
		return value[:16] + "…"
	}
	return value
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
