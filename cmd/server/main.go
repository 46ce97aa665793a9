package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/logging"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront backend for the Catalog Service",
	Long: `Serves product listings, the cart and wishlist, login and the admin
order table on top of a remote Catalog Service.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, productsCmd, fakeAPICmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the process logger.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := logging.New(cfg.LogLevel, verbose)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}
