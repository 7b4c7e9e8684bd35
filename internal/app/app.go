// Package app wires the audiograph subsystems into a running engine.
//
// The App struct owns the full lifecycle: New builds the graph from config,
// Run drives the tick loop and the monitoring server, and Shutdown tears
// everything down in order.
//
// For testing, inject doubles via functional options (WithRegistry,
// WithObserver). When an option is not provided, New uses the defaults.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesmcarthur-3999/taskerino-sub015/internal/config"
	"github.com/jamesmcarthur-3999/taskerino-sub015/internal/monitor"
	"github.com/jamesmcarthur-3999/taskerino-sub015/internal/observe"
	"github.com/jamesmcarthur-3999/taskerino-sub015/pkg/graph"
)

// DefaultTickInterval is used when the config does not set one.
const DefaultTickInterval = 10 * time.Millisecond

// App owns the graph, the tick loop, and the monitoring server.
type App struct {
	cfg *config.Config

	graph *graph.Graph
	ids   map[string]graph.NodeID

	monitor *monitor.Server

	registry *config.Registry
	observer graph.Observer
	level    *slog.LevelVar

	// tickInterval holds the current tick period in nanoseconds so the
	// config watcher can adjust it while the loop runs.
	tickInterval atomic.Int64

	watchPath string

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithRegistry injects a node registry instead of [config.DefaultRegistry].
func WithRegistry(r *config.Registry) Option {
	return func(a *App) { a.registry = r }
}

// WithObserver injects a graph observer instead of the OTel-backed one.
func WithObserver(o graph.Observer) Option {
	return func(a *App) { a.observer = o }
}

// WithLogLevelVar hands the app the level var backing the process logger so
// config reloads can change verbosity without a restart.
func WithLogLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithConfigWatch makes Run watch the given config file and apply safe
// changes (log level, tick interval) while running. Pipeline changes are
// logged as requiring a restart.
func WithConfigWatch(path string) Option {
	return func(a *App) { a.watchPath = path }
}

// New builds the graph declared by cfg and prepares the monitoring server.
// The graph is not started until [App.Run].
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.registry == nil {
		a.registry = config.DefaultRegistry()
	}
	if a.observer == nil {
		a.observer = observe.NewGraphObserver(observe.DefaultMetrics())
	}

	interval := cfg.Server.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	a.tickInterval.Store(int64(interval))

	g, ids, err := config.Build(cfg, a.registry,
		graph.WithObserver(a.observer),
	)
	if err != nil {
		return nil, fmt.Errorf("app: build graph: %w", err)
	}
	a.graph = g
	a.ids = ids

	if cfg.Server.ListenAddr != "" {
		a.monitor = monitor.New(cfg.Server.ListenAddr, g)
	}

	return a, nil
}

// Graph returns the app's graph. Useful for push sources and test assertions.
func (a *App) Graph() *graph.Graph { return a.graph }

// NodeID resolves a config node name to its graph ID.
func (a *App) NodeID(name string) (graph.NodeID, bool) {
	id, ok := a.ids[name]
	return id, ok
}

// Run starts the graph and blocks driving the tick loop until ctx is
// cancelled or the monitoring server fails. Tick errors are logged, not
// fatal: a failing node must not take the engine down.
func (a *App) Run(ctx context.Context) error {
	if err := a.graph.Start(); err != nil {
		return fmt.Errorf("app: start graph: %w", err)
	}

	var watcher *config.Watcher
	if a.watchPath != "" {
		w, err := config.NewWatcher(a.watchPath, a.applyConfigChange)
		if err != nil {
			slog.Warn("config watch disabled", "path", a.watchPath, "err", err)
		} else {
			watcher = w
			defer watcher.Stop()
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return a.tickLoop(ctx) })
	if a.monitor != nil {
		eg.Go(func() error { return a.monitor.Run(ctx) })
	}

	slog.Info("engine running",
		"nodes", len(a.ids),
		"tick_interval", time.Duration(a.tickInterval.Load()),
	)
	return eg.Wait()
}

// tickLoop calls ProcessOnce at the configured interval until ctx is done.
func (a *App) tickLoop(ctx context.Context) error {
	interval := time.Duration(a.tickInterval.Load())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.graph.ProcessOnce(); err != nil {
				slog.Warn("tick completed with node errors", "err", err)
			}
			if cur := time.Duration(a.tickInterval.Load()); cur != interval {
				interval = cur
				ticker.Reset(interval)
				slog.Info("tick interval updated", "tick_interval", interval)
			}
		}
	}
}

// applyConfigChange is the watcher callback. Only log level and tick
// interval are safe to apply live; anything touching the pipeline needs a
// restart.
func (a *App) applyConfigChange(old, new *config.Config) {
	d := config.Diff(old, new)

	if d.LogLevelChanged && a.level != nil {
		a.level.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level updated", "log_level", d.NewLogLevel)
	}
	if d.TickIntervalChanged {
		interval := new.Server.TickInterval
		if interval <= 0 {
			interval = DefaultTickInterval
		}
		a.tickInterval.Store(int64(interval))
	}
	if d.PipelineChanged {
		slog.Warn("pipeline configuration changed; restart to apply",
			"nodes_changed", len(d.NodeChanges),
		)
	}
}

// Shutdown stops the graph. Safe to call multiple times.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		done := make(chan error, 1)
		go func() { done <- a.graph.Stop() }()
		select {
		case err = <-done:
		case <-ctx.Done():
			err = errors.Join(ctx.Err(), errors.New("app: graph stop timed out"))
		}
	})
	return err
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
