package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/timesheet-invoicing/internal/config"
	"github.com/garyjia/timesheet-invoicing/internal/container"
	"github.com/garyjia/timesheet-invoicing/pkg/utils"
)

var version = "1.0.0"

type globalOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "invoicectl",
		Short: "Operate the invoicing service from the command line",
		Long: `invoicectl runs maintenance tasks against the invoicing database
and document storage configured for the service.

Configuration is read from the same file and INVOICE_* environment
variables the server uses.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "configs/config.yaml", "path to the configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newMigrateCmd(opts),
		newTemplatesCmd(opts),
		newInvoicesCmd(opts),
	)
	return root
}

// load reads the configuration and builds a stderr logger
func (o *globalOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      o.logLevel,
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// withContainer runs fn against a started container
func (o *globalOptions) withContainer(ctx context.Context, fn func(c *container.Container) error) error {
	cfg, logger, err := o.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	return fn(c)
}

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			cc := cfg.ToContainerConfig()
			bundle, err := container.ProvideDatabase(&cc.Database, logger)
			if err != nil {
				return err
			}
			defer func() { _ = bundle.DB.Close() }()

			fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", cfg.Database.Path)
			return nil
		},
	}
}
