// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/fleetnode/internal/api"
	"github.com/ManuGH/fleetnode/internal/config"
	"github.com/ManuGH/fleetnode/internal/dds"
	"github.com/ManuGH/fleetnode/internal/dms"
	fnlog "github.com/ManuGH/fleetnode/internal/log"
	"github.com/ManuGH/fleetnode/internal/registration"
	"github.com/ManuGH/fleetnode/internal/runner/noop"
	"github.com/ManuGH/fleetnode/internal/telemetry"
	"github.com/ManuGH/fleetnode/internal/tokens"
	"github.com/ManuGH/fleetnode/internal/worker"
)

var (
	version   = "v0.3.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		return 0
	}

	// Safe defaults until the real format is known.
	fnlog.Configure(fnlog.Config{Service: "fleetnode"})
	logger := fnlog.WithComponent("main")

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error().Err(err).Msg("configuration load failed")
		return 1
	}
	fnlog.Configure(fnlog.Config{Format: cfg.LogFormat, Service: "fleetnode"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:      cfg.OTELEnabled,
		ServiceName:  "fleetnode",
		Environment:  config.ParseString("ENVIRONMENT", "production"),
		ExporterType: cfg.OTELExporter,
		Endpoint:     cfg.OTELEndpoint,
		SamplingRate: cfg.OTELSampling,
	})
	if err != nil {
		logger.Error().Err(err).Msg("telemetry init failed")
		return 1
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	registry := worker.NewRegistry()
	if cfg.EnableNoop {
		if err := registry.Register(noop.New(cfg.NoopSleep)); err != nil {
			logger.Error().Err(err).Msg("runner registration failed")
			return 1
		}
	}
	if len(registry.Capabilities()) == 0 {
		logger.Warn().Msg("no runners registered, node will idle")
	}

	ddsClient := dds.New(dds.Config{
		BaseURL:   cfg.DDSBaseURL,
		NodeURL:   cfg.NodeURL,
		RegSecret: cfg.RegSecret,
		Timeout:   cfg.RequestTimeout,
	})

	manager := tokens.NewManager(ddsClient, tokens.Config{
		SafetyRatio: cfg.TokenSafetyRatio,
		MaxRetries:  cfg.TokenReauthMaxRetries,
		RetryJitter: cfg.TokenReauthJitter,
	})

	dmsClient := dms.New(cfg.DMSBaseURL, cfg.RequestTimeout, manager.Bearer)

	secrets := registration.NewSecretStore()
	machine := registration.NewMachine()
	server := api.New(cfg.ListenAddr, secrets, machine)

	regLoop := registration.NewLoop(ddsClient, machine, registration.LoopConfig{
		Interval:   cfg.RegisterInterval,
		MaxRetries: cfg.RegisterMaxRetry,
	})

	poller := worker.NewPoller(dmsClient, registry, worker.PollerConfig{
		BackoffMin:     cfg.PollBackoffMin,
		BackoffMax:     cfg.PollBackoffMax,
		MaxConcurrency: cfg.MaxConcurrency,
		Session: worker.SessionConfig{
			HeartbeatJitter: cfg.HeartbeatJitter,
			RequestTimeout:  cfg.RequestTimeout,
		},
	}, manager.Healthy)

	logger.Info().
		Str("version", version).
		Str("dms", cfg.DMSBaseURL).
		Str("listen", cfg.ListenAddr).
		Strs("capabilities", registry.Capabilities()).
		Msg("fleetnode starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return manager.Run(gctx) })
	g.Go(func() error { return regLoop.Run(gctx) })
	g.Go(func() error { return poller.Run(gctx) })
	g.Go(server.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("fleetnode exiting with error")
		return 1
	}
	logger.Info().Msg("fleetnode stopped")
	return 0
}
