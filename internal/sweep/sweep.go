// Package sweep runs the periodic detection pass: the critical threshold
// check, the cross-sensor comparator, and the drift detector over a recent
// window of stored readings, annotating the implicated rows.
package sweep

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/verdantio/plant-telemetry/internal/config"
	"github.com/verdantio/plant-telemetry/internal/detect"
	"github.com/verdantio/plant-telemetry/internal/model"
	"github.com/verdantio/plant-telemetry/internal/retry"
)

// SweepStore is the storage surface the sweep needs.
type SweepStore interface {
	FetchWindow(ctx context.Context, since time.Time) ([]model.StoredReading, error)
	MarkAnomalies(ctx context.Context, keys []model.Key) error
	MarkCrossSensorIssues(ctx context.Context, keys []model.Key) error
}

// Sweeper executes detection ticks on a fixed interval. Ticks run
// synchronously in one goroutine, so runs never overlap: a tick finishes
// (or fails and is logged) before the next one starts.
type Sweeper struct {
	cfg        config.Config
	store      SweepStore
	log        *slog.Logger
	classifier *detect.Classifier
	comparator *detect.Comparator
	drift      *detect.DriftDetector

	policy retry.Policy
	now    func() time.Time
}

// New constructs a sweeper wired with the sweep-time critical bounds and
// the configured divergence and drift tolerances.
func New(cfg config.Config, st SweepStore, log *slog.Logger) *Sweeper {
	return &Sweeper{
		cfg:        cfg,
		store:      st,
		log:        log,
		classifier: detect.NewClassifier(detect.SweepBounds()),
		comparator: detect.NewComparator(cfg.MaxTempDiff, cfg.MaxHumDiff),
		drift:      detect.NewDriftDetector(cfg.DriftSigma),
		policy:     retry.Storage(),
		now:        time.Now,
	}
}

// Run ticks until ctx is cancelled. A failed tick is abandoned after its
// bounded retries and retried as a whole at the next interval.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sweepRunsTotal.WithLabelValues("error").Inc()
			s.log.Error("sweep tick abandoned", "error", err)
		} else {
			sweepRunsTotal.WithLabelValues("ok").Inc()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single detection pass as one logical unit of work.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	now := s.now().UTC()
	baselineStart := now.Add(-s.cfg.BaselineWindow)
	evalStart := now.Add(-s.cfg.EvalWindow)

	window, err := s.fetchWindow(ctx, baselineStart)
	if err != nil {
		return err
	}
	if len(window) == 0 {
		return nil
	}

	eval := filterSince(window, evalStart)

	var reports []model.AnomalyReport

	thresholdReports, anomalyKeys := s.classifier.Sweep(eval)
	reports = append(reports, thresholdReports...)

	var crossKeys []model.Key
	for _, plantID := range plantIDs(eval) {
		plantReports, keys := s.comparator.Compare(plantID, eval)
		reports = append(reports, plantReports...)
		crossKeys = append(crossKeys, keys...)
	}

	for _, sensorID := range sensorIDs(window) {
		baseline := filterSensorBefore(window, sensorID, evalStart)
		recent := filterSensor(eval, sensorID)
		reports = append(reports, s.drift.Detect(sensorID, baseline, recent)...)
	}

	for _, r := range reports {
		sweepReportsTotal.Inc()
		s.log.Warn("anomaly detected",
			"plant_id", r.PlantID,
			"sensor_id", r.SensorID,
			"timestamp", r.Timestamp,
			"descriptions", r.Descriptions)
	}

	// Flag updates run even when persistence later fails for some rows:
	// every report above is already logged.
	if err := s.markFlags(ctx, s.store.MarkAnomalies, anomalyKeys); err != nil {
		return err
	}
	sweepFlagsTotal.WithLabelValues("anomaly").Add(float64(len(anomalyKeys)))

	if err := s.markFlags(ctx, s.store.MarkCrossSensorIssues, crossKeys); err != nil {
		return err
	}
	sweepFlagsTotal.WithLabelValues("cross_sensor_issue").Add(float64(len(crossKeys)))

	return nil
}

func (s *Sweeper) fetchWindow(ctx context.Context, since time.Time) ([]model.StoredReading, error) {
	var window []model.StoredReading
	err := retry.Do(ctx, s.policy, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		defer cancel()
		var fetchErr error
		window, fetchErr = s.store.FetchWindow(attemptCtx, since)
		return fetchErr
	})
	return window, err
}

func (s *Sweeper) markFlags(ctx context.Context, mark func(context.Context, []model.Key) error, keys []model.Key) error {
	if len(keys) == 0 {
		return nil
	}
	return retry.Do(ctx, s.policy, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		defer cancel()
		return mark(attemptCtx, keys)
	})
}

func filterSince(readings []model.StoredReading, since time.Time) []model.StoredReading {
	out := make([]model.StoredReading, 0, len(readings))
	for _, r := range readings {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out
}

func filterSensor(readings []model.StoredReading, sensorID string) []model.StoredReading {
	var out []model.StoredReading
	for _, r := range readings {
		if r.SensorID == sensorID {
			out = append(out, r)
		}
	}
	return out
}

func filterSensorBefore(readings []model.StoredReading, sensorID string, before time.Time) []model.StoredReading {
	var out []model.StoredReading
	for _, r := range readings {
		if r.SensorID == sensorID && r.Timestamp.Before(before) {
			out = append(out, r)
		}
	}
	return out
}

func plantIDs(readings []model.StoredReading) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, r := range readings {
		if !seen[r.PlantID] {
			seen[r.PlantID] = true
			ids = append(ids, r.PlantID)
		}
	}
	sort.Ints(ids)
	return ids
}

func sensorIDs(readings []model.StoredReading) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range readings {
		if !seen[r.SensorID] {
			seen[r.SensorID] = true
			ids = append(ids, r.SensorID)
		}
	}
	sort.Strings(ids)
	return ids
}
