package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Anhbaza/Bot-Binance/internal/binance"
	"github.com/Anhbaza/Bot-Binance/internal/config"
	"github.com/Anhbaza/Bot-Binance/internal/database"
	"github.com/Anhbaza/Bot-Binance/internal/logger"
	"github.com/Anhbaza/Bot-Binance/internal/trader"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.File)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	policy, fromFile, err := config.LoadOrDefaultPolicy(cfg.Trading.PairsFile, cfg.Trading)
	if err != nil {
		log.Fatal("Failed to load pairs policy", zap.Error(err))
	}
	if !fromFile {
		log.Warn("Pairs policy not found, using trading defaults", zap.String("path", cfg.Trading.PairsFile))
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	store := database.NewStore(db, log)
	defer store.Close()
	log.Info("Database connection successful and schema migrated.")

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Initialize Binance REST client
	restClient := binance.NewRestClient(&cfg.Binance, log)
	if _, err := restClient.GetServerTime(ctx); err != nil {
		log.Fatal("Failed to connect to Binance API", zap.Error(err))
	}
	log.Info("Successfully connected to Binance API.")

	tradeEngine, err := trader.NewEngine(log, &cfg, policy, restClient, store)
	if err != nil {
		log.Fatal("Failed to create trading engine", zap.Error(err))
	}

	api := trader.NewAPIServer(tradeEngine, cfg.Server.Port, log)
	api.Start()

	tradeEngine.Run(ctx)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := api.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}
