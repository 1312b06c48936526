// Package main serves the songmatch web pages. It renders HTML on the
// server and reads everything from the JSON API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ewilliams-labs/songmatch/internal/apiclient"
	"github.com/ewilliams-labs/songmatch/internal/config"
	"github.com/ewilliams-labs/songmatch/internal/logging"
	"github.com/ewilliams-labs/songmatch/internal/supervisor"
	"github.com/ewilliams-labs/songmatch/internal/tracing"
	"github.com/ewilliams-labs/songmatch/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})

	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "songmatch-web",
		Enabled:      cfg.Tracing.Enabled,
		OTLPEndpoint: cfg.Tracing.Endpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		InsecureMode: cfg.Tracing.Insecure,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	api := apiclient.New(cfg.Web.APIURL, cfg.Web.APITimeout)
	logging.Info().Str("api_url", cfg.Web.APIURL).Str("addr", cfg.Web.Addr).Msg("songmatch web starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := waitForAPI(ctx, api, 30*time.Second); err != nil {
		logging.Warn().Err(err).Msg("API not ready, continuing anyway")
	} else {
		logging.Info().Msg("API ready")
	}

	site, err := web.NewServer(api, web.Options{ExampleSongs: cfg.Web.ExampleSongs})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build web server")
	}

	srv := &http.Server{
		Addr:         cfg.Web.Addr,
		Handler:      site,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sup := supervisor.New("songmatch-web", supervisor.Config{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	sup.Add(supervisor.NewHTTPService("web-http", srv, cfg.Server.ShutdownTimeout))
	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor stopped")
	}
	logging.Info().Msg("songmatch web stopped")
}

// waitForAPI polls the API readiness endpoint until it answers or timeout
// elapses.
func waitForAPI(ctx context.Context, api *apiclient.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		err := api.Ready(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return err
		case <-ticker.C:
		}
	}
}
