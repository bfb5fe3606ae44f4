// Command server runs the agentgate call server with the built-in demo
// handler.
//
// Configuration is layered: built-in defaults, then an optional YAML
// file (-config flag, AGENTGATE_CONFIG, ./config.yaml,
// /etc/agentgate/config.yaml), then AGENTGATE_* environment overrides.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/castellet/agentgate/pkg/config"
	"github.com/castellet/agentgate/pkg/dispatch"
	"github.com/castellet/agentgate/pkg/handler/demo"
	"github.com/castellet/agentgate/pkg/negotiate"
	"github.com/castellet/agentgate/pkg/session"
	transporthttp "github.com/castellet/agentgate/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session store with idle expiry.
	store := session.NewStore(session.Config{
		IdleTimeout:   cfg.Session.IdleTimeout,
		SweepInterval: cfg.Session.SweepInterval,
		Logger:        logger,
	})
	go store.Run(ctx)

	// Dispatcher over the demo handler.
	dispatcher := dispatch.New(demo.New(), store, dispatch.Config{
		Negotiation: negotiate.Config{
			ParamsSizeThreshold: cfg.Negotiation.ParamsSizeThreshold,
			StreamingMethods:    cfg.Negotiation.StreamingMethods,
		},
		CallTimeout: cfg.Dispatch.CallTimeout,
		ReplayLimit: cfg.Dispatch.ReplayLimit,
		ReplayGrace: cfg.Dispatch.ReplayGrace,
		Logger:      logger,
	})
	go dispatcher.Run(ctx)

	srv := transporthttp.NewServer(dispatcher,
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(logger),
	)

	if cfg.Observability.Metrics.Enabled {
		srv.Mount("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
		logger.Info("metrics enabled", "path", cfg.Observability.Metrics.Path)
	}

	logger.Info("agentgate starting",
		"port", cfg.Server.Port,
		"call_timeout", cfg.Dispatch.CallTimeout,
		"streaming_methods", cfg.Negotiation.StreamingMethods,
	)
	return srv.ListenAndServe()
}
