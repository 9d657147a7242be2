// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/studyshelf/internal/api"
	"github.com/starford/studyshelf/internal/catalog"
	"github.com/starford/studyshelf/internal/index"
	"github.com/starford/studyshelf/internal/manifest"
	"github.com/starford/studyshelf/internal/sse"
	"github.com/starford/studyshelf/internal/vault"
)

// NewLogger builds the structured JSON logger used by every command.
func NewLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// Catalog bundles an opened catalog service with the resources it holds.
type Catalog struct {
	Service *catalog.Service
	Store   *manifest.Store
	Vault   *vault.Vault
	db      *index.DB
}

// Close releases the index database, if one was opened.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// OpenCatalog opens the manifest store, the file vault and, when configured,
// the SQLite index, and brings the index up to date with the manifest.
func OpenCatalog(ctx context.Context, cfg *Config, logger *slog.Logger, opts ...catalog.Option) (*Catalog, error) {
	store, err := manifest.Open(cfg.Catalog.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	v, err := vault.Open(cfg.Catalog.StaticDir)
	if err != nil {
		return nil, fmt.Errorf("open static dir: %w", err)
	}

	c := &Catalog{Store: store, Vault: v}
	opts = append([]catalog.Option{catalog.WithLogger(logger)}, opts...)
	if cfg.SQLite.Enabled() {
		c.db, err = index.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		opts = append(opts, catalog.WithIndex(c.db))
	}

	c.Service = catalog.NewService(store, v, opts...)
	if _, err := c.Service.Reindex(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initial sync: %w", err)
	}
	return c, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(cfg)
		slog.SetDefault(logger)
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("manifest_path", cfg.Catalog.ManifestPath),
		slog.String("static_dir", cfg.Catalog.StaticDir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	cat, err := OpenCatalog(ctx, cfg, logger, catalog.WithEvents(broker.PublishCatalogEvent))
	if err != nil {
		return err
	}
	defer cat.Close()

	apiRouter := api.NewRouter(cat.Service, api.RouterConfig{
		AuthMode:       cfg.Auth.Mode,
		Token:          cfg.Auth.Token,
		MaxUploadBytes: cfg.Catalog.MaxUploadBytes(),
		Events:         broker,
	})

	// Build chi router.
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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, _, err := cat.Service.Manifest(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Pick up edits made to the manifest by other processes.
	g.Go(func() error {
		err := index.Watch(gCtx, cfg.Catalog.ManifestPath, logger, func() {
			if _, err := cat.Service.Reindex(gCtx); err != nil {
				logger.Warn("reindex failed", slog.String("error", err.Error()))
			}
		})
		if err != nil {
			logger.Warn("manifest watcher disabled", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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

		logger.Info("Shutting down server...")

		// Ends open event streams, which Shutdown would otherwise wait on.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
