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

	"github.com/fleetingnotes/fleeting-sync/internal/api"
	"github.com/fleetingnotes/fleeting-sync/internal/mcpserver"
	"github.com/fleetingnotes/fleeting-sync/internal/remote"
	"github.com/fleetingnotes/fleeting-sync/internal/sse"
	"github.com/fleetingnotes/fleeting-sync/internal/state"
	"github.com/fleetingnotes/fleeting-sync/internal/storage"
	syncengine "github.com/fleetingnotes/fleeting-sync/internal/sync"
)

// app holds the wired collaborators for one process lifetime.
type app struct {
	cfg    *Config
	logger *slog.Logger
	store  storage.Provider
	states *state.Store
	client remote.Client
}

func (a *app) close() {
	if a.states != nil {
		_ = a.states.Close()
	}
}

// setup validates the config, initializes logging, and wires the vault,
// state store, and remote client.
func setup(application *application) (*app, error) {
	if application.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := application.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sync_folder", cfg.Sync.Folder),
		slog.String("sync_mode", string(cfg.Sync.Mode)),
		slog.String("state_path", cfg.State.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	states, err := state.Open(cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("init state store: %w", err)
	}

	client := application.client
	if client == nil {
		client = remote.NewHTTPClient(cfg.Remote.URL, remote.StaticCredentials{
			Email:    cfg.Remote.Email,
			Password: cfg.Remote.Password,
		})
	}

	return &app{cfg: cfg, logger: logger, store: store, states: states, client: client}, nil
}

// SyncOnce runs a single sync cycle and returns its outcome. Used by the
// one-shot `sync` command.
func SyncOnce(ctx context.Context, opts ...Option) error {
	application := newApplication(opts...)
	a, err := setup(application)
	if err != nil {
		return err
	}
	defer a.close()

	syncer := syncengine.NewSyncer(a.store, a.client, a.states, a.cfg.SyncSettings(), a.logger, nil)
	res, err := syncer.Sync(ctx)
	if err != nil {
		return errors.New(syncengine.UserMessage(err))
	}
	a.logger.Info("sync complete",
		slog.Int("pushed", res.Pushed),
		slog.Int("created", res.Stats.Created),
		slog.Int("updated", res.Stats.Updated),
		slog.Int("renamed", res.Stats.Renamed),
		slog.Int("deleted", res.Stats.Deleted),
		slog.Int("unchanged", res.Stats.Unchanged))
	return nil
}

// Run starts the daemon: watcher-triggered and periodic syncs plus the
// local status API, until ctx is cancelled or a signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	application := newApplication(opts...)
	a, err := setup(application)
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	logger := a.logger

	// SSE broker streams sync lifecycle events to API subscribers.
	broker := sse.NewBroker()
	defer broker.Close()

	notify := func(event string, data any) {
		broker.Publish(sse.Event{Type: event, Data: data})
	}
	syncer := syncengine.NewSyncer(a.store, a.client, a.states, cfg.SyncSettings(), logger, notify)

	if cfg.Sync.OnStartup {
		if _, err := syncer.Sync(ctx); err != nil {
			logger.Warn("startup sync failed", slog.String("error", err.Error()))
		}
	}

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount status API under /api.
	r.Mount("/api", api.NewRouter(syncer, a.states, a.store, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// The watcher needs the synced folder on disk before it can register.
	if err := a.store.EnsureDir(cfg.Sync.Folder); err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the sync trigger loop (file watcher + interval).
	g.Go(func() error {
		return syncengine.Watch(gCtx, syncer, cfg.Vault.Path, cfg.Sync.Debounce(), cfg.Sync.Interval(), logger)
	})

	// Start HTTP server.
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

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

// RunMCP serves the MCP stdio transport until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	application := newApplication(opts...)
	a, err := setup(application)
	if err != nil {
		return err
	}
	defer a.close()

	syncer := syncengine.NewSyncer(a.store, a.client, a.states, a.cfg.SyncSettings(), a.logger, nil)

	return mcpserver.New(syncer, a.states, a.store).ServeStdio()
}
