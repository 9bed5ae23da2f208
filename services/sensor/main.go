package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/verdantio/plant-telemetry/internal/codec"
)

// Simulated sensor: posts a legacy-shaped payload (unit-suffixed string
// measures) on a fixed interval, exercising the codec's encode path and the
// API's legacy decoding end to end.
func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "sensor")

	serverURL := envOr("SERVER_URL", "http://localhost:8080/ingest")
	sensorID := envOr("SENSOR_ID", "1")
	plantID := envOr("PLANT_ID", "1")

	interval := 10 * time.Second
	if v := os.Getenv("SENSOR_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Error("invalid SENSOR_INTERVAL", "value", v)
			os.Exit(1)
		}
		interval = d
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := send(ctx, client, serverURL, sensorID, plantID); err != nil {
			log.Error("send failed", "error", err)
		} else {
			log.Info("reading sent", "sensor_id", sensorID, "plant_id", plantID)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func send(ctx context.Context, client *http.Client, serverURL, sensorID, plantID string) error {
	payload, err := codec.Encode(map[string]any{
		"sensor_id":      sensorID,
		"sensor_version": "v1",
		"plant_id":       plantID,
		"time":           time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		"measures": map[string]any{
			"temperature": "25°C",
			"humidite":    "50%",
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
