package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-core/internal/api"
	"trading-core/internal/atrtracker"
	"trading-core/internal/events"
	"trading-core/internal/ingestion"
	"trading-core/internal/monitor"
	"trading-core/internal/outcome"
	"trading-core/internal/ports"
	"trading-core/internal/signalgen"
	"trading-core/internal/streak"
	"trading-core/pkg/config"
	binance "trading-core/pkg/exchange/binance"
	mockex "trading-core/pkg/exchange/mock"
	"trading-core/pkg/i18n"
	"trading-core/pkg/portfolio"
	"trading-core/pkg/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf(i18n.Get("ConfigLoadFailed"), err)
	}

	i18n.SetLanguage(i18n.Language(cfg.Language))
	log.Println(i18n.Get("Starting"))
	log.Printf(i18n.Get("ConfigLoaded"), cfg.Port)
	log.Printf(i18n.Get("UsingDBPath"), cfg.DBPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core services
	bus := events.NewBus()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf(i18n.Get("DBInitFailed"), err)
	}
	defer store.Close()
	if err := sqlite.ApplyMigrations(store); err != nil {
		log.Fatalf(i18n.Get("DBMigrationsFailed"), err)
	}

	filters, err := portfolio.Load(cfg.PortfolioPath)
	if err != nil {
		log.Fatalf(i18n.Get("ConfigLoadFailed"), err)
	}

	// In-memory state seeded from DB
	streaks := streak.New(sqlite.StreakStore{Store: store})
	if err := streaks.Load(ctx); err != nil {
		log.Fatalf(i18n.Get("StateLoadFailed"), err)
	}
	log.Printf(i18n.Get("StreaksLoaded"), len(streaks.All()))

	atrTracker := atrtracker.New(cfg.ATRMinSamples, cfg.ATRMaxHistory)

	gen := signalgen.New(signalgen.Config{
		EMAPeriod:      cfg.EMAPeriod,
		ATRPeriod:      cfg.ATRPeriod,
		FibWindow:      cfg.FibWindow,
		TPATRMult:      cfg.TPATRMult,
		SLATRMult:      cfg.SLATRMult,
		ScoreThreshold: cfg.ScoreThreshold,
	}, atrTracker, streaks, filters, sqlite.SignalStore{Store: store}, bus)

	outcomes := outcome.New(sqlite.SignalStore{Store: store}, bus)
	metrics := monitor.NewEngineMetrics()

	// Exchange source selection
	var source ports.ExchangeSource
	if cfg.UseMockFeed {
		source = &mockex.Source{}
	} else {
		source = binance.NewSource(cfg.BinanceTestnet)
		log.Println(i18n.Get("BinanceFeedStarted"))
	}

	pipeline := ingestion.New(ingestion.Config{
		Instruments:           cfg.Instruments,
		BufferCapacity:        cfg.BufferCapacity,
		ReplayCheckpointEvery: cfg.ReplayCheckpointEvery,
		InitialHistoryHours:   cfg.InitialHistoryHours,
		StartupDeadline:       cfg.StartupDeadline,
		PortTimeout:           cfg.PortTimeout,
		StaleAfter:            3 * time.Minute,
	}, source, store, sqlite.CheckpointStore{Store: store}, gen, outcomes, streaks, metrics, bus)

	server := api.NewServer(pipeline, outcomes, streaks, metrics, store, cfg.JWTSecret)
	go func() {
		log.Printf(i18n.Get("ServerListening"), cfg.Port)
		if err := server.Run(cfg.Port); err != nil {
			log.Printf(i18n.Get("APIServerError"), err)
		}
	}()

	pipelineErr := make(chan error, 1)
	go func() {
		pipelineErr <- pipeline.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("%v", sig)
	case err := <-pipelineErr:
		if err != nil {
			log.Printf(i18n.Get("CoreFatal"), err)
		}
	}

	// Shutdown drains in reverse: stop ingestion, flush MAE/MFE,
	// close the store (signal rows first via the batch flush).
	log.Println(i18n.Get("ShuttingDown"))
	cancel()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	outcomes.Flush(flushCtx)
	flushCancel()
}
