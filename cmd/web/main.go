package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizmaster/internal/app"
)

// finishedQuizRetention is how long a finished quiz stays viewable.
const finishedQuizRetention = time.Hour

func main() {
	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		logger.Error("storage error", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	if cfg.SeedDemo {
		if _, err := app.SeedDemo(ctx, storage.Repo, logger); err != nil {
			logger.Error("seed demo data failed", "error", err)
			os.Exit(1)
		}
	}

	deps := app.Wire(cfg, storage, logger)
	defer deps.Sessions.Close()

	if cfg.BootstrapAdminPassword != "" {
		admin, err := deps.Auth.EnsureAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword, "Admin User")
		if err != nil {
			logger.Error("bootstrap admin failed", "email", cfg.BootstrapAdminEmail, "error", err)
			os.Exit(1)
		}
		logger.Info("bootstrap admin ready", "user_id", admin.ID, "email", admin.Email)
	}

	deps.RateLimiter = app.NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)
	go func() {
		t := time.NewTicker(5 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				deps.RateLimiter.Sweep()
				if n := deps.Sessions.Sweep(finishedQuizRetention); n > 0 {
					logger.Debug("finished quizzes swept", "count", n)
				}
			}
		}
	}()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.NewRouter(cfg, deps),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}()

	logger.Info("quizmaster web listening", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "env", cfg.AppEnv)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
