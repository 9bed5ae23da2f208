package detect

import (
	"fmt"
	"math"
	"sort"

	"github.com/verdantio/plant-telemetry/internal/model"
)

// Comparator flags divergence between two sensors on the same plant at the
// same timestamp. Exact timestamp equality is the join key; sensors are
// assumed near-synchronized and no tolerance window is applied.
type Comparator struct {
	maxTempDiff float64
	maxHumDiff  float64
}

func NewComparator(maxTempDiff, maxHumDiff float64) *Comparator {
	return &Comparator{maxTempDiff: maxTempDiff, maxHumDiff: maxHumDiff}
}

// Compare examines all distinct-sensor pairs of one plant that reported at a
// shared timestamp. Each unordered pair is evaluated once; a divergent pair
// yields one plant-level report naming both raw values, and both rows are
// returned as keys for the cross_sensor_issue flag.
func (c *Comparator) Compare(plantID int, window []model.StoredReading) ([]model.AnomalyReport, []model.Key) {
	byTimestamp := make(map[int64][]model.StoredReading)
	for _, r := range window {
		if r.PlantID != plantID {
			continue
		}
		ts := r.Timestamp.UnixNano()
		byTimestamp[ts] = append(byTimestamp[ts], r)
	}

	timestamps := make([]int64, 0, len(byTimestamp))
	for ts := range byTimestamp {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	var reports []model.AnomalyReport
	var keys []model.Key
	flagged := make(map[model.Key]bool)

	for _, ts := range timestamps {
		group := byTimestamp[ts]
		sort.Slice(group, func(i, j int) bool { return group[i].SensorID < group[j].SensorID })

		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if a.SensorID == b.SensorID {
					continue
				}

				var descs []string
				if math.Abs(a.Temperature-b.Temperature) > c.maxTempDiff {
					descs = append(descs, fmt.Sprintf("temperature divergence between %s and %s: %.1f°C vs %.1f°C",
						a.SensorID, b.SensorID, a.Temperature, b.Temperature))
				}
				if math.Abs(a.Humidity-b.Humidity) > c.maxHumDiff {
					descs = append(descs, fmt.Sprintf("humidity divergence between %s and %s: %.1f%% vs %.1f%%",
						a.SensorID, b.SensorID, a.Humidity, b.Humidity))
				}
				if len(descs) == 0 {
					continue
				}

				reports = append(reports, model.AnomalyReport{
					Timestamp:    a.Timestamp,
					PlantID:      plantID,
					Descriptions: descs,
				})
				for _, k := range []model.Key{a.Key(), b.Key()} {
					if !flagged[k] {
						flagged[k] = true
						keys = append(keys, k)
					}
				}
			}
		}
	}

	return reports, keys
}
