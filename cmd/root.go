// Package cmd defines the CLI commands for the newsharvest executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aturner/newsharvest/internal/config"
	"github.com/aturner/newsharvest/internal/logging"
	"github.com/aturner/newsharvest/internal/metrics"
)

var cfgFile string

type servicesKeyType string

const servicesKey servicesKeyType = "services"

// Services holds the per-invocation dependencies built by the root command
// and consumed by subcommands via the command context.
type Services struct {
	Config config.Config
	Logger *zap.Logger
}

// newRootCmd creates and configures the root command. Config and logger
// are built in PersistentPreRunE, after flags are parsed but before any
// subcommand runs.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newsharvest",
		Short: "A polite single-site news crawler",
		Long: `newsharvest discovers article URLs through robots.txt and sitemap
traversal, fetches each page politely with retry and backoff, extracts
structured metadata and writes the results to JSONL and CSV files.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			metrics.Init()
			cmd.SetContext(context.WithValue(cmd.Context(), servicesKey, &Services{
				Config: cfg,
				Logger: logger,
			}))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	cmd.AddCommand(newCrawlCmd())
	return cmd
}

func resolveServices(ctx context.Context) (*Services, error) {
	svcs, ok := ctx.Value(servicesKey).(*Services)
	if !ok || svcs == nil {
		return nil, errors.New("application services not initialized")
	}
	return svcs, nil
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}
