package main

import (
	"context"
	"log/slog"
	"os"

	"ecopulse/internal/activities"
	"ecopulse/internal/app"
	"ecopulse/internal/config"
	"ecopulse/internal/logging"
	"ecopulse/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalAddress,
		Logger:   log.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		slog.Error("dial temporal", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(a.Service))

	slog.Info("ecopulse worker listening", "temporal", cfg.TemporalAddress, "queue", cfg.TemporalTaskQueue, "gateway", cfg.GatewayBackend)
	if err := w.Run(worker.InterruptCh()); err != nil {
		slog.Error("worker", "error", err)
		os.Exit(1)
	}
}
