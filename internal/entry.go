// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/brandvault/internal/api"
	"github.com/starford/brandvault/internal/kv"
	"github.com/starford/brandvault/internal/mcpserver"
	"github.com/starford/brandvault/internal/storage"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	rt, err := newRuntime(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHandler(rt),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the object root for files removed out of band.
	if fsObjects, ok := rt.objects.(*storage.FS); ok {
		g.Go(func() error {
			if err := storage.Watch(gCtx, fsObjects, logger, rt.svc.HandleObjectEvent(gCtx)); err != nil {
				logger.Warn("object watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

// newHandler builds the root router: health checks, the API under /api and,
// for the fs driver, the stored files.
func newHandler(rt *runtime) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.RequestLogger(rt.logger))
	r.Use(middleware.Recoverer)
	r.Use(api.CORS(rt.cfg.App.HTTP.CORSOrigins))

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", readyHandler(rt.store))

	r.Mount("/api", api.NewRouter(rt.svc, rt.broker))

	if _, ok := rt.objects.(*storage.FS); ok {
		public := "/" + strings.Trim(rt.cfg.Objects.FS.PublicPath, "/")
		r.Get(public+"/*", api.FileHandler(rt.objects))
	}
	return r
}

// readyHandler reports ready once the metadata store answers a ping.
func readyHandler(store kv.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Repair runs one catalog repair pass and writes the report as JSON.
func Repair(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := newRuntime(ctx, app.config, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.svc.Repair(ctx)
	if err != nil {
		return fmt.Errorf("repair: %w", err)
	}
	rt.logger.Info("Repair finished",
		slog.Int("checked", report.Checked),
		slog.Int("reindexed", report.Reindexed),
		slog.Int("pruned", report.Pruned))

	enc := json.NewEncoder(app.output)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// ServeMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := newRuntime(ctx, app.config, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("Serving MCP over stdio", slog.String("version", app.version))
	return mcpserver.New(rt.svc, app.version).ServeStdio()
}
