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

	"github.com/starford/bilimsoz/internal/api"
	"github.com/starford/bilimsoz/internal/models"
	"github.com/starford/bilimsoz/internal/sse"
)

// searchSessionTTL evicts idle per-client search sessions.
const searchSessionTTL = 5 * time.Minute

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := NewApp(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger.Error("close failed", slog.String("error", err.Error()))
		}
	}()

	cfg := app.Config
	logger := app.Logger
	svc := app.Glossary

	// SSE broker.
	broker := sse.NewBroker(cfg.App.HTTP.EventThrottle)

	searches := svc.NewSessionPool(cfg.Sync.SearchDebounce, searchSessionTTL)
	apiRouter := api.NewRouter(svc, searches, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(api.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := svc.Ready(r.Context()); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
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
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Forward term snapshots to SSE clients.
	g.Go(func() error {
		for snap := range svc.Subscribe(gCtx) {
			if snap.Cleared {
				broker.PublishCleared()
				continue
			}
			broker.PublishTerms(snap.Seq, snap.Terms)
		}
		return nil
	})

	// Warm the stream from the cache, refreshing stale subjects.
	g.Go(func() error {
		terms := svc.AllTerms(gCtx, false)
		logger.Info("initial load complete", slog.Int("terms", len(terms)))
		return nil
	})

	// Watch the source directory for edits.
	if dir, ok := app.WatchDir(); ok {
		g.Go(func() error {
			err := svc.Watch(gCtx, dir, func(subject models.Subject, terms int) {
				logger.Info("subject reloaded",
					slog.String("subject", string(subject)),
					slog.Int("terms", terms))
			})
			if err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			return nil
		})
	}

	// Periodic resync.
	if every := cfg.Sync.RefreshInterval; every > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				select {
				case <-gCtx.Done():
					return nil
				case <-ticker.C:
					report := svc.Sync(gCtx)
					logger.Info("periodic sync",
						slog.String("run_id", report.RunID),
						slog.Bool("online", report.Online),
						slog.Int("terms", report.Terms),
						slog.Int("failed", len(report.Failed)))
				}
			}
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

		var cause error
		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			// Stops the other goroutines, which only watch gCtx.
			cause = errShutdown
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		broker.Close()

		return cause
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown requested")
