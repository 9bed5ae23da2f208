// Package detect implements the three anomaly models run over stored
// readings: fixed absolute bounds, cross-sensor divergence, and statistical
// drift. All detectors are pure over in-memory readings; flag persistence is
// the sweep's job.
package detect

import (
	"fmt"

	"github.com/verdantio/plant-telemetry/internal/model"
)

// Bounds is one named absolute-bound configuration. Ingestion-time alerting
// and sweep-time critical flagging intentionally use different pairs; the
// two are kept as distinct named configurations and never unified.
type Bounds struct {
	Name    string
	TempMin float64
	TempMax float64
	HumMin  float64
	HumMax  float64
}

// IngestBounds is the tighter pair applied inline at write time.
func IngestBounds() Bounds {
	return Bounds{Name: "ingest", TempMin: 10.0, TempMax: 35.0, HumMin: 30.0, HumMax: 80.0}
}

// SweepBounds is the wider critical pair applied by the periodic sweep.
func SweepBounds() Bounds {
	return Bounds{Name: "sweep-critical", TempMin: 10.0, TempMax: 35.0, HumMin: 25.0, HumMax: 85.0}
}

// Classifier flags single readings against fixed absolute bounds.
type Classifier struct {
	bounds Bounds
}

func NewClassifier(b Bounds) *Classifier {
	return &Classifier{bounds: b}
}

// Classify evaluates every bound independently; the returned report is empty
// when the reading is within all of them.
func (c *Classifier) Classify(r model.Reading) model.AnomalyReport {
	report := model.AnomalyReport{
		Timestamp: r.Timestamp,
		PlantID:   r.PlantID,
		SensorID:  r.SensorID,
	}

	if r.Temperature > c.bounds.TempMax {
		report.Descriptions = append(report.Descriptions,
			fmt.Sprintf("temperature %.1f°C above %s maximum %.1f°C", r.Temperature, c.bounds.Name, c.bounds.TempMax))
	}
	if r.Temperature < c.bounds.TempMin {
		report.Descriptions = append(report.Descriptions,
			fmt.Sprintf("temperature %.1f°C below %s minimum %.1f°C", r.Temperature, c.bounds.Name, c.bounds.TempMin))
	}
	if r.Humidity > c.bounds.HumMax {
		report.Descriptions = append(report.Descriptions,
			fmt.Sprintf("humidity %.1f%% above %s maximum %.1f%%", r.Humidity, c.bounds.Name, c.bounds.HumMax))
	}
	if r.Humidity < c.bounds.HumMin {
		report.Descriptions = append(report.Descriptions,
			fmt.Sprintf("humidity %.1f%% below %s minimum %.1f%%", r.Humidity, c.bounds.Name, c.bounds.HumMin))
	}

	return report
}

// Sweep classifies a window of stored readings and returns the non-empty
// reports together with the keys whose anomaly flag must be set.
func (c *Classifier) Sweep(window []model.StoredReading) ([]model.AnomalyReport, []model.Key) {
	var reports []model.AnomalyReport
	var keys []model.Key

	for _, r := range window {
		report := c.Classify(r.Reading)
		if report.Empty() {
			continue
		}
		reports = append(reports, report)
		keys = append(keys, r.Key())
	}

	return reports, keys
}
