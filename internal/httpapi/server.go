// Package httpapi exposes the ingestion and query REST surface: decode ->
// resolve -> validate -> inline threshold check -> persist, plus read
// queries for the dashboard and a storage liveness probe.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verdantio/plant-telemetry/internal/config"
	"github.com/verdantio/plant-telemetry/internal/detect"
	"github.com/verdantio/plant-telemetry/internal/model"
	"github.com/verdantio/plant-telemetry/internal/retry"
	"github.com/verdantio/plant-telemetry/internal/store"
)

// ReadingStore is the storage surface the API needs.
type ReadingStore interface {
	InsertReading(ctx context.Context, r model.Reading) error
	FetchReadings(ctx context.Context, q store.Query) ([]model.StoredReading, error)
	Ping(ctx context.Context) error
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg        config.Config
	store      ReadingStore
	log        *slog.Logger
	classifier *detect.Classifier
	policy     retry.Policy
	engine     *gin.Engine
}

// New constructs a server with routes and middleware. The inline classifier
// uses the ingestion-time bounds; the sweep-time critical pair lives in the
// sweeper process.
func New(cfg config.Config, st ReadingStore, log *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	if cfg.BearerToken != "" {
		engine.Use(bearerAuthMiddleware(cfg.BearerToken))
	}

	server := &Server{
		cfg:        cfg,
		store:      st,
		log:        log,
		classifier: detect.NewClassifier(detect.IngestBounds()),
		policy:     retry.Storage(),
		engine:     engine,
	}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.POST("/ingest", s.handleIngest)
	s.engine.GET("/data", s.handleData)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
