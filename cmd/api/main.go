package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chatarchive/infrastructure/config"
	"chatarchive/infrastructure/di"
	"chatarchive/interfaces/http/rest"

	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer cleanup()

	container.Logger.Info("Archive API configured",
		zap.String("environment", cfg.Environment),
		zap.String("backend", container.Backend.Name),
	)

	srv := rest.NewServer(cfg.ServerAddress, container.HTTPHandler())
	if err := rest.Serve(ctx, srv, container.Logger); err != nil {
		container.Logger.Error("Server failed", zap.Error(err))
		cleanup()
		os.Exit(1)
	}

	_ = container.Logger.Sync()
}
