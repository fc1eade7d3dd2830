package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-storefront/internal/app"
	"go-storefront/internal/config"
	"go-storefront/internal/logger"

	"go.uber.org/zap"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	cfg, err := config.Load("configs", env)
	if err != nil {
		log.Fatal(err)
	}
	if !cfg.KafkaEnabled() {
		log.Fatal("kafka.brokers is required for the consumer")
	}

	l := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		App:    cfg.App.Name + "-consumer",
	})
	defer func() { _ = l.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunConsumer(ctx, cfg, l); err != nil {
		l.Fatal("consumer", zap.Error(err))
	}
}
