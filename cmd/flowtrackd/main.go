package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheFastest599/flowtrack/internal/config"
	"github.com/TheFastest599/flowtrack/internal/events"
	"github.com/TheFastest599/flowtrack/internal/server"
	"github.com/TheFastest599/flowtrack/internal/store/postgres"
	flowsync "github.com/TheFastest599/flowtrack/internal/sync"
)

// tokenSweepInterval is how often expired refresh tokens are purged.
const tokenSweepInterval = time.Hour

var rootCmd = &cobra.Command{
	Use:   "flowtrackd",
	Short: "flowtrack task service daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		// Load configuration.
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Connect to Postgres.
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				store.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (FLOWTRACK_NATS_URL not set)")
		}

		auth := server.NewAuthenticator(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
		srv := server.NewServer(store, publisher, auth, logger)

		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: srv.NewHTTPHandler(),
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Start export scheduler if a destination is configured.
		var scheduler *flowsync.Scheduler
		if cfg.ExportInterval > 0 && cfg.ExportS3Bucket != "" {
			s3Dest, err := flowsync.NewS3Destination(
				context.Background(),
				cfg.ExportS3Bucket,
				cfg.ExportS3Key,
				cfg.ExportS3Region,
				cfg.ExportS3Endpoint,
			)
			if err != nil {
				logger.Error("failed to create S3 export destination", "err", err)
			} else {
				scheduler = flowsync.NewScheduler(store, []flowsync.Destination{s3Dest}, cfg.ExportInterval, logger)
				scheduler.Start()
				logger.Info("export scheduler started",
					"interval", cfg.ExportInterval,
					"bucket", cfg.ExportS3Bucket,
					"key", cfg.ExportS3Key,
				)
			}
		}

		// Periodically purge expired refresh tokens.
		sweepCtx, sweepCancel := context.WithCancel(context.Background())
		go func() {
			ticker := time.NewTicker(tokenSweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-sweepCtx.Done():
					return
				case <-ticker.C:
					n, err := store.DeleteExpiredRefreshTokens(sweepCtx)
					if err != nil {
						logger.Warn("refresh token sweep failed", "err", err)
					} else if n > 0 {
						logger.Info("purged expired refresh tokens", "count", n)
					}
				}
			}
		}()

		logger.Info("flowtrackd started", "http_addr", cfg.HTTPAddr)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		sweepCancel()

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("export scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
