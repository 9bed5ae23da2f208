package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verdantio/plant-telemetry/internal/codec"
	"github.com/verdantio/plant-telemetry/internal/retry"
	"github.com/verdantio/plant-telemetry/internal/store"
	"github.com/verdantio/plant-telemetry/internal/validate"
)

// handleIngest runs the per-request pipeline. Decode and validation errors
// are client errors and never reach storage; threshold alerts are advisory
// and logged before persistence so a storage failure cannot mask them.
func (s *Server) handleIngest(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		ingestRequestsTotal.WithLabelValues("read_error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "unreadable body"})
		return
	}

	env, err := codec.Decode(raw)
	if err != nil {
		ingestRequestsTotal.WithLabelValues("decode_error").Inc()
		s.log.Error("payload decode failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	cand, warnings := codec.Resolve(env)
	for _, w := range warnings {
		s.log.Warn("field normalization failed",
			"sensor_id", cand.SensorID, "detail", w)
	}

	if result := validate.Check(cand); !result.Valid {
		ingestRequestsTotal.WithLabelValues("validation_error").Inc()
		s.log.Error("payload validation failed",
			"sensor_id", cand.SensorID, "errors", result.Errors)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "error", "errors": result.Errors})
		return
	}

	reading := cand.Reading()

	// Advisory ingestion-time alerting; the critical sweep pass owns the
	// persisted anomaly flags.
	report := s.classifier.Classify(reading)
	for _, desc := range report.Descriptions {
		ingestAlertsTotal.Inc()
		s.log.Warn("threshold alert",
			"plant_id", reading.PlantID,
			"sensor_id", reading.SensorID,
			"timestamp", reading.Timestamp,
			"description", desc)
	}

	insertErr := retry.Do(c.Request.Context(), s.policy, func() error {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.ConnectTimeout)
		defer cancel()
		return s.store.InsertReading(ctx, reading)
	})
	if insertErr != nil {
		ingestRequestsTotal.WithLabelValues("storage_error").Inc()
		s.log.Error("reading insert failed",
			"plant_id", reading.PlantID,
			"sensor_id", reading.SensorID,
			"error", insertErr)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "storage unavailable"})
		return
	}

	ingestRequestsTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"status": "OK", "alerts": report.Descriptions})
}

// handleData serves filtered reading queries: plant_id required, optional
// sensor_id and [start, end], newest first, default row cap from config.
func (s *Server) handleData(c *gin.Context) {
	plantStr := c.Query("plant_id")
	if plantStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plant_id is required"})
		return
	}
	plantID, err := strconv.Atoi(plantStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plant_id"})
		return
	}

	q := store.Query{PlantID: plantID, SensorID: c.Query("sensor_id"), Limit: s.cfg.QueryLimit}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		q.Limit = limit
	}

	if startStr := c.Query("start"); startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start timestamp"})
			return
		}
		tt := t.UTC()
		q.Since = &tt
	}

	if endStr := c.Query("end"); endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end timestamp"})
			return
		}
		tt := t.UTC()
		q.Until = &tt
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	readings, err := s.store.FetchReadings(ctx, q)
	if err != nil {
		s.log.Error("reading query failed", "plant_id", plantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plant_id": plantID,
		"count":    len(readings),
		"readings": readings,
	})
}

// handleHealth reports storage reachability without raising.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.ConnectTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "degraded", "storage": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": "reachable"})
}
