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
	env := os.Getenv("APP_ENV") // dev | staging | prod
	if env == "" {
		env = "dev"
	}

	cfg, err := config.Load("configs", env)
	if err != nil {
		log.Fatal(err)
	}

	l := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		App:    cfg.App.Name,
	})
	defer func() { _ = l.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// build dependency + routes
	a, cleanup, err := app.BuildApp(ctx, cfg, l)
	if err != nil {
		l.Fatal("build app", zap.Error(err))
	}
	defer cleanup()

	if err := a.Serve(ctx); err != nil {
		l.Error("http server", zap.Error(err))
	}
}
