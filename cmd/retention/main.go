package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/your-org/faceid/internal/agentindex"
	"github.com/your-org/faceid/internal/config"
	"github.com/your-org/faceid/internal/domain"
	"github.com/your-org/faceid/internal/engine"
	"github.com/your-org/faceid/internal/observability"
	"github.com/your-org/faceid/internal/retention"
	"github.com/your-org/faceid/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting faceid retention worker", "interval", cfg.Lifecycle.RetentionInterval.String())

	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewPostgresStore(cfg.Database, minioStore)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := domain.NewService(
		db,
		engine.NewClient(cfg.Engine),
		agentindex.NewClient(cfg.Index),
		cfg.Lifecycle,
		cfg.Engine,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go retention.NewSweeper(svc, cfg.Lifecycle).Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down retention worker...")
	cancel()
	slog.Info("retention worker stopped")
}
