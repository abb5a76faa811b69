package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/chris/donation-broker/pkg/bootstrap"
	"github.com/chris/donation-broker/pkg/broker"
	"github.com/chris/donation-broker/pkg/config"
	"github.com/chris/donation-broker/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		logging.Fatal(slog.Default(), "server exited", slog.Any("error", err))
	}
}

// run owns every dependency it opens, so they are closed on each return path.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := logging.Setup(cfg.LogLevel)

	deps, err := bootstrap.Open(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open dependencies: %w", err)
	}
	defer deps.Close()

	service := broker.New(deps.Store, deps.Notifier, logger)
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           bootstrap.NewRouter(service, bootstrap.IdentityProvider(cfg), logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	return serve(ctx, server, logger)
}

// serve runs server until ctx is done or the listener fails.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
