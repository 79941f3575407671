package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"Inventory/internal/app"
	"Inventory/internal/config"
	"Inventory/internal/console"
	"Inventory/pkg/kit"
)

func main() {
	service := "inventory-console"

	configFile := flag.String("config", config.DefaultConfigFile, "path to the yaml config file")
	envFile := flag.String("env", config.DefaultEnvFile, "path to the .env file")
	flag.Parse()

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		kit.NewLogger(service, "info", false).Fatal("load config failed", zap.Error(err))
	}

	// The menu owns stdout, so logs stay quiet unless something breaks.
	log := kit.NewLogger(service, "error", cfg.Log.Development)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg, log, nil)
	if err != nil {
		log.Fatal("open store failed", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	if err := console.New(store, os.Stdin, os.Stdout, log).Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("console stopped", zap.Error(err))
	}
}
