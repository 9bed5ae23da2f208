package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort           = 8080
	defaultMetricsPort    = 9090
	defaultQueryLimit     = 20
	defaultSweepInterval  = 10 * time.Second
	defaultBaselineWindow = 30 * time.Minute
	defaultEvalWindow     = 5 * time.Minute
	defaultMaxTempDiff    = 2.0
	defaultMaxHumDiff     = 5.0
	defaultDriftSigma     = 3.0
	defaultConnectTimeout = 5 * time.Second
)

// Config holds environment-driven settings for both services. It is built
// once at process start and handed into constructors; nothing reads it
// globally afterwards.
type Config struct {
	DatabaseURL string
	Port        int
	MetricsPort int
	BearerToken string

	// QueryLimit caps /data responses when the caller gives no limit.
	QueryLimit int

	// Sweep settings.
	SweepInterval  time.Duration
	BaselineWindow time.Duration
	EvalWindow     time.Duration
	MaxTempDiff    float64
	MaxHumDiff     float64
	DriftSigma     float64

	// ConnectTimeout bounds individual storage connection attempts so the
	// retry loops stay responsive.
	ConnectTimeout time.Duration
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:           defaultPort,
		MetricsPort:    defaultMetricsPort,
		QueryLimit:     defaultQueryLimit,
		SweepInterval:  defaultSweepInterval,
		BaselineWindow: defaultBaselineWindow,
		EvalWindow:     defaultEvalWindow,
		MaxTempDiff:    defaultMaxTempDiff,
		MaxHumDiff:     defaultMaxHumDiff,
		DriftSigma:     defaultDriftSigma,
		ConnectTimeout: defaultConnectTimeout,
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	if err := intVar(&cfg.Port, "PORT"); err != nil {
		return cfg, err
	}
	if err := intVar(&cfg.MetricsPort, "METRICS_PORT"); err != nil {
		return cfg, err
	}
	if err := intVar(&cfg.QueryLimit, "API_QUERY_LIMIT"); err != nil {
		return cfg, err
	}
	if err := durationVar(&cfg.SweepInterval, "SWEEP_INTERVAL"); err != nil {
		return cfg, err
	}
	if err := durationVar(&cfg.BaselineWindow, "DRIFT_BASELINE_WINDOW"); err != nil {
		return cfg, err
	}
	if err := durationVar(&cfg.EvalWindow, "DRIFT_EVAL_WINDOW"); err != nil {
		return cfg, err
	}
	if err := floatVar(&cfg.MaxTempDiff, "MAX_TEMP_DIFF"); err != nil {
		return cfg, err
	}
	if err := floatVar(&cfg.MaxHumDiff, "MAX_HUM_DIFF"); err != nil {
		return cfg, err
	}
	if err := floatVar(&cfg.DriftSigma, "DRIFT_SIGMA"); err != nil {
		return cfg, err
	}
	if err := durationVar(&cfg.ConnectTimeout, "STORAGE_CONNECT_TIMEOUT"); err != nil {
		return cfg, err
	}

	if cfg.EvalWindow >= cfg.BaselineWindow {
		return cfg, errors.New("DRIFT_EVAL_WINDOW must be shorter than DRIFT_BASELINE_WINDOW")
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func intVar(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid %s: %s", key, v)
	}
	*dst = n
	return nil
}

func floatVar(dst *float64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fmt.Errorf("invalid %s: %s", key, v)
	}
	*dst = f
	return nil
}

func durationVar(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid %s: %s", key, v)
	}
	*dst = d
	return nil
}
