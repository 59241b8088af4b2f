package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fluxorio/todoapi/pkg/app"
	"github.com/fluxorio/todoapi/pkg/config"
	"github.com/fluxorio/todoapi/pkg/core"
)

type rootOptions struct {
	configPath string
	envFiles   []string
}

func (o *rootOptions) load() (config.App, core.Logger, error) {
	cfg, err := config.LoadApp(o.configPath, o.envFiles...)
	if err != nil {
		return config.App{}, nil, err
	}
	logger, err := core.NewLogger(core.LoggerConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Prefix: "todoapi",
	})
	if err != nil {
		return config.App{}, nil, err
	}
	return cfg, logger, nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "todoapi",
		Short:         "Per-user to-do list HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, 10*time.Second)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var drain time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, drain)
		},
	}
	cmd.Flags().DurationVar(&drain, "drain", 10*time.Second, "how long to wait for in-flight requests on shutdown")
	return cmd
}

func runServe(parent context.Context, opts *rootOptions, drain time.Duration) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Errorf("close: %v", err)
		}
	}()

	return a.Run(ctx, nil, drain)
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			pool, err := app.OpenDatabase(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pool.Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.Infof("schema ready (%s)", cfg.Database.Driver)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.Version)
		},
	}
}
