package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ent0n29/prenova/internal/app"
	"github.com/ent0n29/prenova/internal/config"
	"github.com/ent0n29/prenova/internal/observability"
)

var bindOverride string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&bindOverride, "addr", "", "listen address (overrides APP_BIND_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if bindOverride != "" {
		cfg.BindAddr = bindOverride
	}

	logger := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.Production())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	built, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           built.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", cfg.BindAddr,
			"chat_provider", built.ChatProvider,
			"auth_mode", cfg.AuthMode,
			"persistent", cfg.DatabaseURL != "",
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case <-sigCh:
		logger.Info("shutdown signal received")
	case err, ok := <-listenErr:
		if ok {
			runErr = fmt.Errorf("listen error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
		_ = httpServer.Close()
	}
	if err := built.Cleanup(shutdownCtx); err != nil {
		logger.Warn("cleanup failed", "error", err)
	}

	logger.Info("shutdown complete")
	return runErr
}
