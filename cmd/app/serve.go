package main

import (
	"context"
	"os/signal"
	"syscall"

	"planpass/internal/logger"
	"planpass/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the expiry sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting planpass")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sweeper.Start(ctx); err != nil {
		return err
	}
	defer a.sweeper.Stop()
	logger.Info("expiry sweeper started", "interval", cfg.SweepInterval)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	if a.emails != nil {
		go a.emails.Start(workerCtx)
	}

	srv := server.New(cfg, server.Deps{
		DB:            a.db,
		Users:         a.users,
		Plans:         a.plans,
		Subscriptions: a.subscriptions,
		Sweeper:       a.sweeper,
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		serverErr <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	}

	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}
