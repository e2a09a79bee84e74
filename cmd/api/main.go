package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecopulse/internal/api"
	"ecopulse/internal/app"
	"ecopulse/internal/config"
	"ecopulse/internal/identity"
	"ecopulse/internal/logging"
	"ecopulse/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	deps := api.Deps{
		Service:  a.Service,
		Verifier: identity.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.JWTSecret),
		Metrics:  a.Metrics,
		DB:       a.DB,
	}
	tc, err := client.NewLazyClient(client.Options{
		HostPort: cfg.TemporalAddress,
		Logger:   log.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		slog.Warn("temporal client unavailable, daily tips trigger disabled", "error", err)
	} else {
		defer tc.Close()
		deps.DailyTips = workflows.NewLauncher(tc, cfg.TemporalTaskQueue)
	}
	h := api.NewServer(deps)
	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("ecopulse api listening", "addr", cfg.APIAddr, "gateway", cfg.GatewayBackend, "jwt_local", cfg.JWTSecret != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("api server", "error", err)
		os.Exit(1)
	}
}
