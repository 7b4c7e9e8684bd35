// Command audiograph runs an audio processing pipeline declared in a YAML
// config file: sources, processors, and sinks wired into a directed acyclic
// graph, driven by a fixed-interval tick loop, with an optional HTTP
// monitoring surface.
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

	"github.com/jamesmcarthur-3999/taskerino-sub015/internal/app"
	"github.com/jamesmcarthur-3999/taskerino-sub015/internal/config"
	"github.com/jamesmcarthur-3999/taskerino-sub015/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "pipeline.yaml", "path to the YAML pipeline file")
	listenAddr := flag.String("listen", "", "override server.listen_addr from the config")
	watch := flag.Bool("watch", false, "watch the config file and apply safe changes live")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "audiograph: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "audiograph: %v\n", err)
		}
		return 1
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("audiograph starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "audiograph",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Build the engine ──────────────────────────────────────────────────────
	appOpts := []app.Option{app.WithLogLevelVar(level)}
	if *watch {
		appOpts = append(appOpts, app.WithConfigWatch(*configPath))
	}
	engine, err := app.New(cfg, appOpts...)
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		return 1
	}

	printStartupSummary(cfg)
	slog.Info("pipeline ready — press Ctrl+C to shut down")

	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := engine.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// printStartupSummary prints a human-readable sketch of the pipeline.
func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║       audiograph — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	for _, n := range cfg.Pipeline.Nodes {
		fmt.Printf("║  %-9s %-12s (%s)\n", n.Kind, n.Name, n.Type)
	}
	fmt.Println("╠═══════════════════════════════════════╣")
	for _, e := range cfg.Pipeline.Edges {
		fmt.Printf("║  %s -> %s\n", e.From, e.To)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

// slogLevel maps a config log level to its slog equivalent.
func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
