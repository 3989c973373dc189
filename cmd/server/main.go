package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"patient-education/internal/config"
	"patient-education/internal/education"
	"patient-education/internal/llm"
	"patient-education/internal/scheduler"
	"patient-education/internal/server"
	"patient-education/internal/store"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	st, err := store.New(cfg.DataFilePath, logger)
	if err != nil {
		logger.Fatal("failed to init store", zap.Error(err))
	}

	factory := llm.NewFactory(cfg)
	client, err := factory.CreateClient(string(cfg.LLMProvider))
	if err != nil {
		logger.Fatal("failed to create llm client", zap.Error(err))
	}

	edu := education.New(st, client, cfg.RequestTimeout, logger)

	sched := scheduler.New(st, cfg.BackupDir, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := server.New(st, edu, logger)
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("provider", string(cfg.LLMProvider)))
		if err := srv.Start(cfg.ListenAddr, cfg.MaxUploadBytes); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
