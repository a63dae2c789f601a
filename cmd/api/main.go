package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"projectmanager/configs"
	"projectmanager/internal/config"
	"projectmanager/pkg/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "projectmanager",
		Short:         "Project and task tracker API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(dropCmd())
	rootCmd.AddCommand(createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration, opens the log files and wires every
// dependency. The caller must run the returned cleanup.
func setup(ctx context.Context) (*config.Dependencies, func(), error) {
	cfg := configs.LoadConfig()
	if err := logger.InitLoggers(cfg.LogDir); err != nil {
		return nil, nil, fmt.Errorf("init loggers: %w", err)
	}
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	deps, err := config.Build(ctx, cfg)
	if err != nil {
		logger.ErrorLogger.Error("Failed to initialize dependencies", zap.Error(err))
		logger.SyncLoggers()
		return nil, nil, err
	}
	cleanup := func() {
		deps.Close(context.Background())
		logger.SyncLoggers()
	}
	return deps, cleanup, nil
}
