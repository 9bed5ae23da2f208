package detect

import (
	"fmt"
	"math"

	"github.com/verdantio/plant-telemetry/internal/model"
)

// DriftDetector flags statistical deviation of recent readings from a
// sensor's own trailing baseline distribution. It is advisory and distinct
// from the absolute-bound classifier: a reading can sit inside the hard
// bounds yet still be drifting.
type DriftDetector struct {
	sigma float64
}

func NewDriftDetector(sigma float64) *DriftDetector {
	return &DriftDetector{sigma: sigma}
}

// Detect computes per-channel mean and standard deviation over the baseline
// samples and reports every recent reading whose deviation from the baseline
// mean exceeds sigma*stddev on either channel. A baseline with fewer than
// two samples has undefined stddev and skips the sensor entirely; a channel
// with zero spread is skipped to avoid spurious matches.
func (d *DriftDetector) Detect(sensorID string, baseline, recent []model.StoredReading) []model.AnomalyReport {
	if len(baseline) < 2 {
		return nil
	}

	temps := make([]float64, 0, len(baseline))
	hums := make([]float64, 0, len(baseline))
	for _, r := range baseline {
		temps = append(temps, r.Temperature)
		hums = append(hums, r.Humidity)
	}

	tempMean, tempStd := mean(temps), stddev(temps)
	humMean, humStd := mean(hums), stddev(hums)

	var reports []model.AnomalyReport
	for _, r := range recent {
		var descs []string

		if tempStd > 0 && math.Abs(r.Temperature-tempMean) > d.sigma*tempStd {
			descs = append(descs, fmt.Sprintf("temperature drift: %.1f°C deviates from baseline mean %.1f°C beyond %.1fσ (σ=%.2f)",
				r.Temperature, tempMean, d.sigma, tempStd))
		}
		if humStd > 0 && math.Abs(r.Humidity-humMean) > d.sigma*humStd {
			descs = append(descs, fmt.Sprintf("humidity drift: %.1f%% deviates from baseline mean %.1f%% beyond %.1fσ (σ=%.2f)",
				r.Humidity, humMean, d.sigma, humStd))
		}
		if len(descs) == 0 {
			continue
		}

		reports = append(reports, model.AnomalyReport{
			Timestamp:    r.Timestamp,
			PlantID:      r.PlantID,
			SensorID:     sensorID,
			Descriptions: descs,
		})
	}

	return reports
}
