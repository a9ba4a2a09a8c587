package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Proton-105/usermgmt/internal/app"
	"github.com/Proton-105/usermgmt/pkg/config"
	"github.com/Proton-105/usermgmt/pkg/logger"
)

type rootOptions struct {
	configDir string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "usermgmt",
		Short:        "User management service",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", config.DefaultDir, "directory holding <APP_ENV>.yaml")

	cmd.AddCommand(
		newServeCmd(opts),
		newWorkerCmd(opts),
		newMigrateCmd(opts),
		newEnqueueCmd(opts),
	)

	return cmd
}

// bootstrap loads configuration, builds the logger and connects the app.
func bootstrap(ctx context.Context, opts *rootOptions) (*app.App, error) {
	cfg, v, err := config.LoadDir(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(*cfg)
	log.Info("starting usermgmt",
		"env", cfg.AppEnv,
		"version", cfg.App.Version,
		"log_level", cfg.Logger.Level,
	)

	return app.New(ctx, cfg, v, log)
}
