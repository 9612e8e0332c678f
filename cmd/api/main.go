package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"ameliorate/infrastructure/config"
	"ameliorate/infrastructure/di"
	"ameliorate/interfaces/http/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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

	container.Logger.Info("Configuration loaded",
		zap.String("environment", cfg.Environment),
		zap.String("store", cfg.StoreDriver),
	)

	srv := server.New(cfg.ServerAddress, container.Router.Setup())
	if err := server.Run(ctx, srv, container.Logger); err != nil {
		container.Logger.Error("Server error", zap.Error(err))
	}

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
	log.Println("Server stopped")
}
