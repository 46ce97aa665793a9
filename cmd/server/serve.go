package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/client"
	"storefront/internal/metrics"
	"storefront/internal/server"
	"storefront/internal/services"
	"storefront/internal/session"
	"storefront/internal/state"
	"storefront/pkg/cache"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	reg := metrics.NewRegistry()

	api, err := client.New(cfg.APIURL,
		client.WithLogger(logger.Named("client")),
		client.WithMetrics(reg),
		client.WithTimeout(cfg.FetchTimeout))
	if err != nil {
		return err
	}

	redisCache := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.RedisDB, cfg.CacheTTLDuration(), logger.Named("cache"))
	defer redisCache.Close()

	backend, err := state.Open(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer backend.Close()

	srv := server.New(server.Deps{
		Search:    services.NewSearchService(api, redisCache, reg, logger.Named("search")),
		Orders:    api,
		Sessions:  session.NewManager(backend, logger.Named("session")),
		Auth:      api,
		Cache:     redisCache,
		Metrics:   reg,
		Logger:    logger,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})

	logger.Info("Starting storefront",
		zap.String("port", cfg.Port),
		zap.String("api_url", cfg.APIURL),
		zap.Bool("cache", redisCache.IsAvailable()),
		zap.Bool("persistent_state", cfg.StateDir != ""))

	return srv.Run(ctx, net.JoinHostPort("", cfg.Port))
}
