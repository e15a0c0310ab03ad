package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kenchiwar/fe-invetory/internal/config"
)

const runLogPrefix = "console:run"

// Run builds the console from cfg, serves HTTP until SIGINT or SIGTERM, then
// shuts down.
func Run(cfg *config.Config) error {
	slog.Info(fmt.Sprintf("%s - Starting inventory console", runLogPrefix))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s - failed to build console: %w", runLogPrefix, err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn(fmt.Sprintf("%s - Close: %v", runLogPrefix, err))
		}
	}()

	e := NewHandler(app, 5*time.Second)
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	errCh := make(chan error, 1)
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", runLogPrefix, addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info(fmt.Sprintf("%s - Shutdown signal received", runLogPrefix))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s - HTTP server failed: %w", runLogPrefix, err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s - HTTP shutdown: %w", runLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Console stopped", runLogPrefix))
	return nil
}
