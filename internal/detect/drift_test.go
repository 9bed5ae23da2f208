package detect_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantio/plant-telemetry/internal/detect"
	"github.com/verdantio/plant-telemetry/internal/model"
)

func baselineAround25(ts time.Time) []model.StoredReading {
	temps := []float64{24.5, 25.0, 25.5, 25.3, 24.7}
	hums := []float64{49.0, 50.0, 51.0, 50.5, 49.5}
	out := make([]model.StoredReading, 0, len(temps))
	for i := range temps {
		out = append(out, stored(1, "s1", temps[i], hums[i], ts.Add(time.Duration(i)*time.Minute)))
	}
	return out
}

func TestDetectFlagsTemperatureDrift(t *testing.T) {
	d := detect.NewDriftDetector(3.0)
	base := time.Date(2025, 4, 11, 7, 0, 0, 0, time.UTC)

	baseline := baselineAround25(base)
	recent := []model.StoredReading{stored(1, "s1", 40.0, 50.0, base.Add(20*time.Minute))}

	reports := d.Detect("s1", baseline, recent)

	require.Len(t, reports, 1)
	require.Len(t, reports[0].Descriptions, 1)
	assert.Contains(t, reports[0].Descriptions[0], "temperature drift: 40.0°C")
	assert.Equal(t, "s1", reports[0].SensorID)
}

func TestDetectWithinDistribution(t *testing.T) {
	d := detect.NewDriftDetector(3.0)
	base := time.Date(2025, 4, 11, 7, 0, 0, 0, time.UTC)

	baseline := baselineAround25(base)
	recent := []model.StoredReading{stored(1, "s1", 25.1, 50.2, base.Add(20*time.Minute))}

	assert.Empty(t, d.Detect("s1", baseline, recent))
}

func TestDetectSkipsThinBaseline(t *testing.T) {
	d := detect.NewDriftDetector(3.0)
	base := time.Date(2025, 4, 11, 7, 0, 0, 0, time.UTC)
	recent := []model.StoredReading{stored(1, "s1", 500.0, 50.0, base)}

	assert.Empty(t, d.Detect("s1", nil, recent), "empty baseline never flags")
	assert.Empty(t, d.Detect("s1", []model.StoredReading{stored(1, "s1", 25.0, 50.0, base)}, recent),
		"single-sample baseline has undefined stddev and never flags")
}

func TestDetectSkipsZeroSpreadChannel(t *testing.T) {
	d := detect.NewDriftDetector(3.0)
	base := time.Date(2025, 4, 11, 7, 0, 0, 0, time.UTC)

	// Humidity is perfectly constant in the baseline; a divergent humidity
	// sample must not produce an infinite-threshold match.
	baseline := []model.StoredReading{
		stored(1, "s1", 24.0, 50.0, base),
		stored(1, "s1", 26.0, 50.0, base.Add(time.Minute)),
		stored(1, "s1", 25.0, 50.0, base.Add(2*time.Minute)),
	}
	recent := []model.StoredReading{stored(1, "s1", 25.0, 90.0, base.Add(20*time.Minute))}

	assert.Empty(t, d.Detect("s1", baseline, recent))
}

func TestDetectBothChannels(t *testing.T) {
	d := detect.NewDriftDetector(3.0)
	base := time.Date(2025, 4, 11, 7, 0, 0, 0, time.UTC)

	baseline := baselineAround25(base)
	recent := []model.StoredReading{stored(1, "s1", 40.0, 90.0, base.Add(20*time.Minute))}

	reports := d.Detect("s1", baseline, recent)

	require.Len(t, reports, 1)
	assert.Len(t, reports[0].Descriptions, 2)
}
