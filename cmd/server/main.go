package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"spam-detector/internal/config"
	"spam-detector/internal/handler"
	"spam-detector/internal/logger"
	"spam-detector/internal/repository"
	"spam-detector/internal/server"
	"spam-detector/internal/service"
)

func main() {
	configPath := flag.String("config", envOr("SPAMSCAN_CONFIG", "configs/config.yml"), "path to the YAML config file")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	// Initialize logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting Spam Detector...", zap.String("config", *configPath))

	// Load tokenizer, normalization profile and scoring model
	artifacts, err := service.LoadArtifacts(context.Background(), cfg.Model, log)
	if err != nil {
		log.Fatal("Failed to load model artifacts", zap.Error(err))
	}

	// Initialize repository
	if cfg.Database.Type == repository.TypeSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			log.Fatal("Failed to create data directory", zap.Error(err))
		}
	}
	store, err := repository.New(repository.Options{
		Type:          cfg.Database.Type,
		Path:          cfg.Database.Path,
		DSN:           cfg.Database.DSN,
		Timeout:       cfg.Database.Timeout,
		MaxTextLength: cfg.Database.MaxTextLength,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer store.Close()

	// Initialize service
	scanner := service.NewScanner(artifacts.Profile, artifacts.Vocab, artifacts.Scorer, store, service.Options{
		MaxLen:              cfg.Model.MaxLen,
		Threshold:           cfg.Model.Threshold,
		KeywordLimit:        cfg.Model.KeywordLimit,
		BatchConcurrency:    cfg.Server.BatchConcurrency,
		DefaultHistoryLimit: cfg.History.DefaultLimit,
		MaxHistoryLimit:     cfg.History.MaxLimit,
		ExportLimit:         cfg.History.ExportLimit,
	}, log)

	srv := server.NewServer(handler.NewHandler(scanner, log), cfg.Server, log)

	go func() {
		if err := srv.Run(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Spam Detector is running",
		zap.String("port", cfg.Server.Port),
		zap.String("backend", cfg.Model.Backend),
		zap.String("database", cfg.Database.Type))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
