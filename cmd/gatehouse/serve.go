// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/session"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/web"
)

// shutdownTimeout bounds graceful shutdown of the HTTP and
// observability servers.
const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication gateway HTTP server",
		Long: `Start the authentication gateway, serving registration, login,
and the authenticated user listing over HTTP.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}

	cmd.Flags().String("addr", config.DefaultAddr, "HTTP listen address")
	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", config.DefaultLogFormat, "log format (json or text)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := setupLogging(cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.UsingDevSecret() {
		slog.Warn("using built-in session secret; set SESSION_SECRET in production")
	}

	slog.Info("starting gatehouse",
		"addr", cfg.Addr,
		"log_format", cfg.LogFormat,
		"bcrypt_cost", cfg.BcryptCost,
	)

	userStore, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer userStore.Close()

	slog.Info("connected to database")

	hasher := auth.NewBcryptHasher(cfg.BcryptCost, cfg.HashWorkers)
	users := authpg.NewUserRepository(userStore.Pool())
	svc, err := auth.NewService(users, hasher, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}

	sessions := session.NewStore(cfg.SessionMaxAge)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return userStore.Ping(pingCtx) == nil
		})
		obsServer.RegisterSessionsGauge(sessions.Active)
		metrics = obsServer.Metrics()

		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	gin.SetMode(gin.ReleaseMode)
	router := web.NewRouter(svc, sessions, web.CookieSettings{
		Secret:    cfg.SessionSecret,
		MaxAge:    cfg.SessionMaxAge,
		Secure:    cfg.SecureCookies,
		SendEmpty: cfg.SendCookies,
	}, slog.Default(),
		web.WithMetrics(metrics),
		web.WithHealthCheck(userStore.Ping),
	)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	cmd.Println("Gatehouse started")
	slog.Info("gatehouse ready", "addr", cfg.Addr)

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error stopping HTTP server", "error", err)
	}

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// setupLogging configures the default slog logger.
func setupLogging(format string) error {
	if format != "json" && format != "text" {
		return fmt.Errorf("invalid log format %q: must be 'json' or 'text'", format)
	}
	logging.SetDefault("gatehouse", version, format)
	return nil
}

// monitorServerErrors monitors a server's error channel and cancels the
// context on error so a failed listener takes the whole process down
// cleanly.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
