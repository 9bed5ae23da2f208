package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/verdantio/plant-telemetry/internal/config"
	"github.com/verdantio/plant-telemetry/internal/httpapi"
	"github.com/verdantio/plant-telemetry/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "api")

	cfg, err := config.Load()
	if err != nil {
		log.Error("config error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Ingestion may run without the sweeper; storage reachability is only
	// checked lazily here and surfaced via /healthz.
	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connection error", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	srv := httpapi.New(cfg, st, log)
	log.Info("ingestion API listening", "addr", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
