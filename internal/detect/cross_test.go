package detect_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantio/plant-telemetry/internal/detect"
	"github.com/verdantio/plant-telemetry/internal/model"
)

func stored(plantID int, sensorID string, temp, hum float64, ts time.Time) model.StoredReading {
	return model.StoredReading{Reading: reading(plantID, sensorID, temp, hum, ts)}
}

func TestCompareTemperatureDivergence(t *testing.T) {
	c := detect.NewComparator(2.0, 5.0)
	ts := time.Date(2025, 4, 11, 7, 0, 0, 0, time.UTC)

	window := []model.StoredReading{
		stored(1, "a", 18.0, 50.0, ts),
		stored(1, "b", 21.0, 50.0, ts),
	}

	reports, keys := c.Compare(1, window)

	require.Len(t, reports, 1, "each unordered pair is evaluated once")
	require.Len(t, reports[0].Descriptions, 1)
	assert.Contains(t, reports[0].Descriptions[0], "18.0°C vs 21.0°C")
	assert.Equal(t, 1, reports[0].PlantID)
	assert.Empty(t, reports[0].SensorID, "divergence reports are plant-level")

	assert.ElementsMatch(t, []model.Key{
		{PlantID: 1, SensorID: "a", Timestamp: ts},
		{PlantID: 1, SensorID: "b", Timestamp: ts},
	}, keys)
}

func TestCompareIdenticalReadings(t *testing.T) {
	c := detect.NewComparator(2.0, 5.0)
	ts := time.Now().UTC()

	window := []model.StoredReading{
		stored(1, "a", 20.0, 50.0, ts),
		stored(1, "b", 20.0, 50.0, ts),
	}

	reports, keys := c.Compare(1, window)
	assert.Empty(t, reports)
	assert.Empty(t, keys)
}

func TestCompareRequiresExactTimestamp(t *testing.T) {
	c := detect.NewComparator(2.0, 5.0)
	ts := time.Date(2025, 4, 11, 7, 0, 0, 0, time.UTC)

	window := []model.StoredReading{
		stored(1, "a", 18.0, 50.0, ts),
		stored(1, "b", 30.0, 50.0, ts.Add(time.Second)),
	}

	reports, _ := c.Compare(1, window)
	assert.Empty(t, reports, "no tolerance window is applied to the join key")
}

func TestCompareIgnoresOtherPlants(t *testing.T) {
	c := detect.NewComparator(2.0, 5.0)
	ts := time.Date(2025, 4, 11, 7, 0, 0, 0, time.UTC)

	window := []model.StoredReading{
		stored(1, "a", 18.0, 50.0, ts),
		stored(2, "b", 30.0, 90.0, ts),
	}

	reports, _ := c.Compare(1, window)
	assert.Empty(t, reports)
}

func TestCompareHumidityDivergence(t *testing.T) {
	c := detect.NewComparator(2.0, 3.0)
	ts := time.Date(2025, 4, 11, 7, 0, 0, 0, time.UTC)

	window := []model.StoredReading{
		stored(1, "a", 20.0, 45.0, ts),
		stored(1, "b", 20.5, 52.0, ts),
	}

	reports, _ := c.Compare(1, window)

	require.Len(t, reports, 1)
	require.Len(t, reports[0].Descriptions, 1)
	assert.Contains(t, reports[0].Descriptions[0], "45.0% vs 52.0%")
}

func TestCompareThreeSensorsFlagsEachDivergentPairOnce(t *testing.T) {
	c := detect.NewComparator(2.0, 5.0)
	ts := time.Date(2025, 4, 11, 7, 0, 0, 0, time.UTC)

	window := []model.StoredReading{
		stored(1, "a", 18.0, 50.0, ts),
		stored(1, "b", 18.5, 50.0, ts),
		stored(1, "c", 24.0, 50.0, ts),
	}

	reports, keys := c.Compare(1, window)

	// a-c and b-c diverge, a-b does not.
	require.Len(t, reports, 2)
	assert.Len(t, keys, 3, "implicated rows are flagged once each")
}
