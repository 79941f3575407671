package main

import (
	"context"
	"flag"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"Inventory/internal/app"
	"Inventory/internal/config"
	"Inventory/internal/inventory"
	"Inventory/pkg/kit"
)

func main() {
	service := "inventory"

	configFile := flag.String("config", config.DefaultConfigFile, "path to the yaml config file")
	envFile := flag.String("env", config.DefaultEnvFile, "path to the .env file")
	flag.Parse()

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		kit.NewLogger(service, "info", false).Fatal("load config failed", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.Log.Level, cfg.Log.Development)
	defer func() { _ = log.Sync() }()
	log.Info("config loaded", zap.Stringer("config", cfg))

	ctx := context.Background()
	reg := prometheus.NewRegistry()

	store, err := app.OpenStore(ctx, cfg, log, reg)
	if err != nil {
		log.Fatal("open store failed", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	s := &inventory.Server{
		Store:   store,
		Log:     log,
		Limiter: kit.NewIPRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window),
	}

	h := inventory.NewHandler(s, inventory.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
	})

	srvCfg := kit.ServerConfig{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		ReadTimeout:       cfg.Server.Timeout.Read,
		WriteTimeout:      cfg.Server.Timeout.Write,
		IdleTimeout:       cfg.Server.Timeout.Idle,
		ReadHeaderTimeout: cfg.Server.Timeout.ReadHeader,
		ShutdownTimeout:   cfg.Server.Timeout.Shutdown,
	}
	if err := kit.RunHTTPServer(ctx, srvCfg, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
