package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/fakeapi"
)

var (
	fakeAPIAddr string
	fakeAPIBare bool
)

var fakeAPICmd = &cobra.Command{
	Use:   "fake-api",
	Short: "Run an in-memory Catalog Service for local development",
	Long: `Serves sample products, orders and two accounts:
  admin@example.com / admin123 (admin)
  jane@example.com  / secret   (customer)`,
	Args: cobra.NoArgs,
	RunE: runFakeAPI,
}

func init() {
	fakeAPICmd.Flags().StringVar(&fakeAPIAddr, "addr", ":5000", "listen address")
	fakeAPICmd.Flags().BoolVar(&fakeAPIBare, "bare-arrays", false, "return product listings as bare arrays")
}

func runFakeAPI(cmd *cobra.Command, _ []string) error {
	_, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	opts := []fakeapi.Option{fakeapi.WithLogger(logger.Named("fakeapi"))}
	if fakeAPIBare {
		opts = append(opts, fakeapi.WithBareArrays())
	}

	srv := &http.Server{
		Addr:              fakeAPIAddr,
		Handler:           fakeapi.New(opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Fake Catalog Service listening", zap.String("addr", fakeAPIAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-cmd.Context().Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
