package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	v1 "projectmanager/internal/api/v1"
	"projectmanager/internal/api/v1/handlers"
	"projectmanager/pkg/logger"
)

func serveCmd() *cobra.Command {
	var (
		port    int
		migrate bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if migrate {
				if err := deps.Store.Migrate(ctx); err != nil {
					return err
				}
			}

			hubCtx, stopHub := context.WithCancel(context.Background())
			defer stopHub()
			go deps.Hub.Run(hubCtx)

			app := v1.NewApp(handlers.New(deps.Service, deps.Hub), deps.Service, v1.ServerOptions{
				CORSOrigins:     deps.Config.CORSOrigins,
				RateLimitMax:    deps.Config.RateLimitMax,
				RateLimitWindow: deps.Config.RateLimitWindow,
			})

			if port == 0 {
				port = deps.Config.AppPort
			}
			errc := make(chan error, 1)
			go func() {
				logger.SystemLogger.Info("Application ready", zap.Int("port", port))
				errc <- app.Listen(fmt.Sprintf(":%d", port))
			}()

			select {
			case err := <-errc:
				logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
				return err
			case <-ctx.Done():
			}

			logger.SystemLogger.Info("Shutting down")
			if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
				logger.ErrorLogger.Error("Error during shutdown", zap.Error(err))
			}
			stopHub()
			<-deps.Hub.Done()
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (defaults to APP_PORT)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "create missing tables and indexes before serving")
	return cmd
}
