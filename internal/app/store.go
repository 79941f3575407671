// Package app wires configuration into the pieces both binaries share.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"Inventory/internal/config"
	"Inventory/internal/inventory"
	"Inventory/pkg/kit"
)

// OpenStore opens the configured backend and builds the product store on
// top of it. reg may be nil when no metrics are exported.
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger, reg prometheus.Registerer) (*inventory.Store, error) {
	var backend inventory.Backend
	if cfg.Database.Driver == "memory" {
		backend = inventory.NewMemBackend()
	} else {
		d, err := inventory.DialectFor(cfg.Database.Driver)
		if err != nil {
			return nil, err
		}
		b, err := inventory.OpenSQL(ctx, d, cfg.Database.DSN, cfg.Database.QueryTimeout)
		if err != nil {
			return nil, fmt.Errorf("open %s backend: %w", d.Name, err)
		}
		backend = b
	}

	opts := []inventory.Option{inventory.WithLogger(log)}
	if cfg.Cache.Enabled {
		opts = append(opts, inventory.WithCache())
	}
	if reg != nil {
		opts = append(opts, inventory.WithMetrics(kit.NewStoreMetrics(reg)))
	}

	store, err := inventory.NewStore(ctx, backend, opts...)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("load products: %w", err)
	}
	return store, nil
}
