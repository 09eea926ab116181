package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-sync/src/candles"
	"market-sync/src/config"
	datasource "market-sync/src/data_source"
	"market-sync/src/engine"
	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"
	"market-sync/src/server"
	"market-sync/src/snapshot"
	"market-sync/src/storage"
	"market-sync/src/stream"
	"market-sync/src/utils"

	"github.com/go-co-op/gocron"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.Name)
	clock := utils.SystemClock{}

	// 1. Quote store
	var store interfaces.IQuoteStore

	switch cfg.Storage.DBType {
	case "postgres":
		store, err = storage.NewPostgresQuoteStore(cfg.MConfig, appLogger)
	default:
		// Default to SQLite
		store, err = storage.NewSQLiteQuoteStore(cfg.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init quote store: %v", err)
	}
	if err := store.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate quote store: %v", err)
	}
	defer store.Close()

	// 2. Request engine
	eng := engine.NewRequestEngine(cfg.Engine, clock, utils.ImmediateIdle, logger.NewLogger("RequestEngine"))

	// 3. Snapshot cache backed by the market feed API
	feed := datasource.NewMarketFeedSource(cfg.Snapshot, eng, logger.NewLogger("MarketFeed"))
	snaps := snapshot.NewSnapshotCache(
		time.Duration(cfg.Snapshot.TTLSeconds)*time.Second,
		clock,
		feed.FetchNews,
		feed.FetchTrending,
		feed.FetchEvents,
		logger.NewLogger("SnapshotCache"),
	)

	// 4. Stream stack: providers, aggregator, router
	markets := utils.NewMarketScheduler(cfg.Stream.Symbols, logger.NewLogger("MarketScheduler"))

	live := stream.NewLiveProvider(cfg.Stream, logger.NewLogger("LiveProvider"))
	sim := stream.NewSimulatedProvider(
		cfg.Stream.Simulator,
		clock,
		utils.TimerScheduler{},
		store,
		markets,
		logger.NewLogger("SimulatedProvider"),
	)
	aggregator := candles.NewCandleAggregator(cfg.Stream.Simulator.CandleHistoryLen, logger.NewLogger("CandleAggregator"))

	router := stream.NewStreamRouter(cfg.Stream, cfg.DeveloperMode, live, sim, aggregator, logger.NewLogger("StreamRouter"))

	if len(cfg.Stream.Symbols) > 0 {
		if err := router.Subscribe(cfg.Stream.Symbols); err != nil {
			appLogger.Critical("Failed to subscribe configured symbols: %v", err)
		}
	}

	// 5. Initial snapshot load
	params := models.MSnapshotParams{
		NewsCount:       cfg.Snapshot.NewsCount,
		IncludeTrending: true,
		IncludeEvents:   true,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLogger.Info("Fetching initial snapshot...")
	if _, err := snaps.GetSnapshot(ctx, params, false); err != nil {
		appLogger.Warning("Initial snapshot fetch failed: %v", err)
	}

	// 6. Periodic snapshot refresh while any tracked market is open
	cron := gocron.NewScheduler(time.UTC)
	cron.Every(cfg.Snapshot.UpdateIntervalSeconds).Seconds().Do(func() {
		if !markets.AnyMarketOpen() {
			appLogger.Debug("All markets closed, skipping snapshot refresh")
			return
		}
		if _, err := snaps.Refresh(ctx, params); err != nil {
			appLogger.Warning("Snapshot refresh failed: %v", err)
		}
	})
	cron.StartAsync()

	// 7. Bridge server for UI clients
	srv := server.NewBridgeServer(cfg.MConfig, router, snaps, logger.NewLogger("BridgeServer"))
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 8. Block until shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cron.Stop()
	srv.Stop()
	router.ClearAll()
	cancel()
}
