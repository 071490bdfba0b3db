package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"funding-arb-bot/internal/alerts"
	"funding-arb-bot/internal/config"
	"funding-arb-bot/internal/engine"
	"funding-arb-bot/internal/exec"
	"funding-arb-bot/internal/ledger"
	"funding-arb-bot/internal/logging"
	"funding-arb-bot/internal/market"
	"funding-arb-bot/internal/metrics"
	"funding-arb-bot/internal/state/sqlite"
	"funding-arb-bot/internal/timescale"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log)
	log.Info("config loaded", zap.String("path", *configPath), zap.Bool("test_mode", cfg.Strategy.TestMode))

	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		log.Error("failed to create state directory", zap.Error(err))
		os.Exit(1)
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		log.Error("failed to open state store", zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := config.NewManager(*configPath, cfg, log)
	manager.Watch(ctx, cfg.Strategy.ReloadInterval)

	tradeLog := ledger.NewCSV(cfg.Ledger.Path, log)

	var venue exec.Venue
	var provider market.Provider
	if cfg.Strategy.TestMode {
		venue = exec.NewSim(log)
		provider = market.NewSim(time.Now().UnixNano())
	} else {
		venue = exec.NewLive(log)
		provider = market.NewLive(log)
	}
	executor := exec.New(venue, store, log)

	m := metrics.NewNoop()
	if cfg.Metrics.Enabled {
		prom := metrics.NewPrometheus()
		m = prom.Metrics
		listen := cfg.Metrics.Listen
		if listen == "" {
			listen = ":9090"
		}
		server := &http.Server{Addr: listen, Handler: prom.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer server.Close()
	}

	archive, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		log.Warn("analytics archive disabled", zap.Error(err))
	}
	if archive != nil {
		archive.Start(ctx)
		defer archive.Close()
	}

	eng := engine.New(engine.Options{
		Config:   manager,
		Log:      log,
		Ledger:   tradeLog,
		Executor: executor,
		Provider: provider,
		Store:    store,
		Metrics:  m,
		Alerts:   alerts.NewTelegram(cfg.Telegram, log),
		Archive:  archive,
	})

	log.Info("starting funding arbitrage engine",
		zap.Strings("pairs", cfg.Strategy.Pairs),
		zap.String("venue_a", cfg.Venues.A),
		zap.String("venue_b", cfg.Venues.B),
	)
	if err := eng.Run(ctx); err != nil && err != context.Canceled {
		log.Error("engine terminated", zap.Error(err))
		os.Exit(1)
	}
	log.Info("engine stopped")
}
