// Package main runs a local inventory API speaking the envelope contract, for
// developing the console without the real backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kenchiwar/fe-invetory/internal/config"
	"github.com/kenchiwar/fe-invetory/internal/logging"
	"github.com/kenchiwar/fe-invetory/internal/mockapi"
)

const logPrefix = "mock-api:main"

const usage = `Usage: mock-api [flags]

Serves /Brand and /CurrentStock on MOCK_API_ADDR (default 127.0.0.1:5000).
Bearer tokens are required when API_TOKEN_SECRET is set.

Flags:
`

func main() {
	seed := flag.Bool("seed", true, "load sample rows")
	version := flag.String("api-version", "1.0.0", "value of the X-API-Version response header")
	maxAge := flag.Duration("max-age", 0, "Cache-Control max-age on list responses (0 disables)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("mock-api: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("mock-api: load config: %v", err)
	}
	logging.Setup(os.Stderr, logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	api := mockapi.New(mockapi.Options{
		TokenSecret: cfg.APITokenSecret,
		APIVersion:  *version,
		CacheMaxAge: *maxAge,
		Seed:        *seed,
	})
	srv := &http.Server{Addr: cfg.MockAPIAddr, Handler: api.Handler(), ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info(fmt.Sprintf("%s - Mock API listening on %s", logPrefix, cfg.MockAPIAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("mock-api: shutdown: %v", err)
	}
	slog.Info(fmt.Sprintf("%s - Mock API stopped", logPrefix))
}
