package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ifuryst/feedsync/internal/config"
	"github.com/ifuryst/feedsync/internal/datasync"
	"github.com/ifuryst/feedsync/internal/server"
	"github.com/ifuryst/feedsync/pkg/logger"
)

var (
	configPath   string
	backfillFile string
	version      = "0.1.0"
	gitCommit    = "unknown"
	buildTime    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "feedsync",
	Short: "Feedsync - Curated feed data synchronization service",
	Long:  `Feedsync applies corpus scheduling events to the legacy curated-feed store and keeps the identifier mapping consistent during the migration window.`,
	RunE:  runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Feedsync %s\n", version)
		fmt.Printf("Git commit: %s\n", gitCommit)
		fmt.Printf("Build time: %s\n", buildTime)
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Replay a JSON file of event envelopes through the sync engine",
	RunE:  runBackfill,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/server.yaml", "config file path")
	backfillCmd.Flags().StringVarP(&backfillFile, "file", "f", "", "path to a JSON array of messages (required)")
	_ = backfillCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(backfillCmd)
}

func setup() (*config.Config, *zap.Logger, *server.Server, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	srv, err := server.NewServer(cfg, appLogger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create server: %w", err)
	}

	return cfg, appLogger, srv, nil
}

func runServer(*cobra.Command, []string) error {
	_, appLogger, srv, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Feedsync server", zap.String("version", version))

	// Start server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := srv.Start(ctx); err != nil {
			appLogger.Error("Server failed to start", zap.Error(err))
			cancel()
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		appLogger.Info("Shutting down server...")
	case <-ctx.Done():
		appLogger.Info("Server context cancelled")
	}

	// Graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	appLogger.Info("Server exited")
	return nil
}

// runBackfill streams a file of envelopes through the same engine the HTTP
// surface uses, in fixed-size sequential batches.
func runBackfill(*cobra.Command, []string) error {
	cfg, appLogger, srv, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	data, err := os.ReadFile(backfillFile)
	if err != nil {
		return fmt.Errorf("failed to read backfill file: %w", err)
	}

	var msgs []datasync.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return fmt.Errorf("failed to parse backfill file: %w", err)
	}

	appLogger.Info("Starting backfill",
		zap.String("file", backfillFile),
		zap.Int("messages", len(msgs)))

	ctx := context.Background()
	batchSize := cfg.Sync.BackfillBatchSize
	failed := 0

	for start := 0; start < len(msgs); start += batchSize {
		end := start + batchSize
		if end > len(msgs) {
			end = len(msgs)
		}
		result := srv.Engine.ProcessBatch(ctx, msgs[start:end])
		failed += len(result.BatchItemFailures)
	}

	appLogger.Info("Backfill finished",
		zap.Int("total", len(msgs)),
		zap.Int("failed", failed))

	if failed > 0 {
		return fmt.Errorf("backfill completed with %d failed messages", failed)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
