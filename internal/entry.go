// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/magebay99/multiexporter-hack/internal/api"
	"github.com/magebay99/multiexporter-hack/internal/exportservice"
	"github.com/magebay99/multiexporter-hack/internal/history"
	"github.com/magebay99/multiexporter-hack/internal/mcpserver"
	"github.com/magebay99/multiexporter-hack/internal/progress"
	"github.com/magebay99/multiexporter-hack/internal/watch"
)

// NewLogger builds the structured JSON logger. Records go to the rotating
// log file when one is configured and to out otherwise. The returned closer
// must be closed on exit.
func NewLogger(cfg ApplicationConfig, out io.Writer) (*slog.Logger, io.Closer) {
	var closer io.Closer = io.NopCloser(nil)
	if cfg.LogFile.Path != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile.Path,
			MaxSize:    cfg.LogFile.MaxSizeMB,
			MaxBackups: cfg.LogFile.MaxBackups,
			MaxAge:     cfg.LogFile.MaxAgeDays,
			Compress:   cfg.LogFile.Compress,
		}
		out, closer = lj, lj
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: cfg.LogLevel})), closer
}

// Components are the long-lived pieces every command works with.
type Components struct {
	Service *exportservice.Service
	History *history.DB
	Broker  *progress.Broker
}

// Close releases the history database and stops the broker.
func (c *Components) Close() {
	if c.Broker != nil {
		c.Broker.Close()
	}
	if c.History != nil {
		if err := c.History.Close(); err != nil {
			slog.Warn("app: close history", slog.String("error", err.Error()))
		}
	}
}

// Open wires the export service for cfg. A broker is created when
// withBroker is set.
func Open(cfg *Config, logger *slog.Logger, withBroker bool) (*Components, error) {
	c := &Components{}
	opts := []exportservice.Option{
		exportservice.WithLogger(logger),
		exportservice.WithPlanTTL(cfg.Cache.PlanTTL),
	}

	var ledger history.Ledger
	if cfg.History.Path != "" {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("init history: %w", err)
		}
		c.History = db
		ledger = db
	}
	if withBroker {
		c.Broker = progress.NewBroker(cfg.Export.ProgressThrottle)
		opts = append(opts, exportservice.WithBroker(c.Broker))
	}

	c.Service = exportservice.NewService(cfg.Document.ScenePath, ledger, opts...)
	return c, nil
}

func (a *application) init() (*slog.Logger, func(), error) {
	if a.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	if a.logger != nil {
		return a.logger, func() {}, nil
	}
	logger, closer := NewLogger(a.config.App, os.Stdout)
	slog.SetDefault(logger)
	return logger, func() { _ = closer.Close() }, nil
}

// Run starts the HTTP API, SSE progress stream and scene watcher until ctx
// is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	logger, done, err := app.init()
	if err != nil {
		return err
	}
	defer done()
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("scene_path", cfg.Document.ScenePath),
		slog.String("history_path", cfg.History.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	comps, err := Open(cfg, logger, true)
	if err != nil {
		return err
	}
	defer comps.Close()

	// Initial plan; a broken scene is reported but does not stop the server.
	if view, err := comps.Service.Plan(ctx); err != nil {
		logger.Warn("initial plan failed", slog.String("error", err.Error()))
	} else {
		logger.Info("initial plan", slog.String("summary", view.Summary), slog.Int("total", view.Total))
	}

	apiRouter := api.NewRouter(comps.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, comps.Broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := os.Stat(cfg.Document.ScenePath); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"scene missing"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Re-plan on scene edits and push plan.updated.
	g.Go(func() error {
		return watch.Watch(gCtx, cfg.Document.ScenePath, cfg.Document.Debounce, logger, comps.Service.SceneChanged)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr or the log
// file so they never mix with the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	logger := app.logger
	if logger == nil {
		var closer io.Closer
		logger, closer = NewLogger(app.config.App, os.Stderr)
		defer closer.Close()
	}

	comps, err := Open(app.config, logger, false)
	if err != nil {
		return err
	}
	defer comps.Close()

	logger.Info("mcp: serving on stdio", slog.String("scene_path", app.config.Document.ScenePath))
	return mcpserver.New(comps.Service).ServeStdio()
}
