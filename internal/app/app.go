// Package app wires configuration, storage, the gateway and the service
// together for the binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"ecopulse/internal/config"
	"ecopulse/internal/gateway"
	"ecopulse/internal/metrics"
	"ecopulse/internal/service"
	"ecopulse/internal/storage"
)

type App struct {
	Config  config.Config
	DB      *storage.DB
	Metrics *metrics.Collector
	Gateway gateway.Client
	Service *service.Service
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(dialCtx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	backend, err := gateway.New(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build gateway: %w", err)
	}
	mc := metrics.New(nil)
	var audit gateway.Auditor
	if cfg.GatewayLogCalls {
		audit = storage.NewGatewayAuditRepo(db)
	}
	gw := gateway.Instrument(backend, cfg.GatewayBackend, mc, audit)
	svc := service.New(service.Options{
		Gateway:  gw,
		Stores:   service.StoresFromDB(db),
		Observer: mc,
	})
	return &App{Config: cfg, DB: db, Metrics: mc, Gateway: gw, Service: svc}, nil
}

func (a *App) Close() {
	a.DB.Close()
}
