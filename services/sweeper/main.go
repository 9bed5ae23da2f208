package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verdantio/plant-telemetry/internal/config"
	"github.com/verdantio/plant-telemetry/internal/retry"
	"github.com/verdantio/plant-telemetry/internal/store"
	"github.com/verdantio/plant-telemetry/internal/sweep"
)

func main() {
	if err := run(); err != nil {
		slog.Error("sweeper failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "sweeper")
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Name resolution gets its own backoff policy; a storage endpoint that
	// never resolves is fatal for the sweeper (ingestion keeps running).
	if err := resolveStorageHost(ctx, cfg.DatabaseURL, log); err != nil {
		return fmt.Errorf("storage endpoint unresolvable: %w", err)
	}

	var st *store.Store
	err = retry.Do(ctx, retry.Storage(), func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		var connErr error
		st, connErr = store.New(attemptCtx, cfg.DatabaseURL)
		if connErr != nil {
			return connErr
		}
		if pingErr := st.Ping(attemptCtx); pingErr != nil {
			st.Close()
			return pingErr
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer st.Close()

	go serveMetrics(cfg, log)

	log.Info("detection sweep starting",
		"interval", cfg.SweepInterval,
		"baseline_window", cfg.BaselineWindow,
		"eval_window", cfg.EvalWindow)

	if err := sweep.New(cfg, st, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// resolveStorageHost looks up the database host with the DNS backoff policy.
// Literal IPs and socket paths resolve trivially and are skipped.
func resolveStorageHost(ctx context.Context, databaseURL string, log *slog.Logger) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return retry.Permanent(err)
	}
	host := u.Hostname()
	if host == "" || net.ParseIP(host) != nil {
		return nil
	}

	return retry.Do(ctx, retry.DNS(), func() error {
		addrs, lookupErr := net.DefaultResolver.LookupHost(ctx, host)
		if lookupErr != nil {
			log.Warn("storage host lookup failed", "host", host, "error", lookupErr)
			return lookupErr
		}
		log.Info("storage host resolved", "host", host, "addrs", addrs)
		return nil
	})
}

func serveMetrics(cfg config.Config, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", cfg.MetricsPort)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics listener failed", "addr", addr, "error", err)
	}
}
