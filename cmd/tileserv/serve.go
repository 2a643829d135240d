package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tileserv/internal/config"
	"tileserv/internal/server"
	"tileserv/internal/source"
	sourcembtiles "tileserv/internal/source/mbtiles"
	sourceproxy "tileserv/internal/source/proxy"
	sources3 "tileserv/internal/source/s3"
	sourcestatic "tileserv/internal/source/static"
	sourcetiledir "tileserv/internal/source/tiledir"
)

const shutdownTimeout = 15 * time.Second

// factories maps source type names to their constructors. Adding a
// backend means adding a line here.
func factories() config.Factories {
	return config.Factories{
		"static":  sourcestatic.NewFactory(),
		"mbtiles": sourcembtiles.NewFactory(),
		"tiledir": sourcetiledir.NewFactory(),
		"proxy":   sourceproxy.NewFactory(),
		"s3":      sources3.NewFactory(),
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve tiles over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFromCmd(cmd)
			if err != nil {
				return err
			}
			addr, _ := cmd.Flags().GetString("addr")
			cfgPath, _ := cmd.Flags().GetString("config")
			watch, _ := cmd.Flags().GetBool("watch")
			return serve(cmd.Context(), logger, addr, cfgPath, watch)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("config", "tileserv.json", "config file path")
	cmd.Flags().Bool("watch", false, "reload sources when the config file changes")
	return cmd
}

func serve(ctx context.Context, logger *slog.Logger, addr, cfgPath string, watch bool) error {
	reg, err := buildRegistry(cfgPath, logger)
	if err != nil {
		return err
	}
	logger.Info("sources configured", "count", reg.Len())

	srv := server.New(reg, server.Config{Addr: addr, Logger: logger})
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watch {
		go func() {
			err := config.Watch(ctx, cfgPath, logger, func() error {
				reg, err := buildRegistry(cfgPath, logger)
				if err != nil {
					return err
				}
				srv.SetRegistry(reg)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("config watch stopped", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildRegistry loads the config and constructs a fresh registry from it.
func buildRegistry(cfgPath string, logger *slog.Logger) (*source.Registry, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	srcs, err := config.Build(cfg, factories(), logger)
	if err != nil {
		return nil, err
	}
	return source.NewRegistry(logger, srcs), nil
}
