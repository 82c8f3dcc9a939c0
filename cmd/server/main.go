package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KevinKickass/RackRelay/internal/config"
	"github.com/KevinKickass/RackRelay/internal/system"
	"go.uber.org/zap"
)

func main() {
	configPath := "configs/config.yaml"
	if p := os.Getenv("RELAY_CONFIG"); p != "" {
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Log.Development)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Config loaded successfully",
		zap.String("path", configPath),
		zap.String("version", cfg.Build.Version))

	lifecycle, err := system.NewLifecycleManager(cfg, logger)
	if err != nil {
		logger.Fatal("Invalid relay configuration", zap.Error(err))
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = lifecycle.Start(startCtx)
	cancel()
	if err != nil {
		logger.Fatal("Failed to start system", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
	case err := <-lifecycle.ServerErrors():
		logger.Error("HTTP listener failed", zap.Error(err))
		exitCode = 1
	case <-lifecycle.Done():
		logger.Info("Shutdown requested via API")
	}

	if err := lifecycle.Shutdown(context.Background()); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		exitCode = 1
	}

	logger.Info("Rack relay controller stopped")
	logger.Sync()
	os.Exit(exitCode)
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
