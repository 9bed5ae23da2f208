package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/verdantio/plant-telemetry/internal/model"
	"github.com/verdantio/plant-telemetry/internal/units"
)

// Legacy producers spell the humidity measure in more than one way.
var humidityKeys = []string{"humidity", "humidite", "humididte"}

// Timestamp layouts seen in the field: RFC3339 and a naive variant without
// zone offset emitted by older firmware.
var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

// Resolve unifies an envelope into one canonical candidate immediately after
// decode, so nothing downstream branches on the payload shape. Heterogeneous
// encodings (unit-suffixed strings, numeric-string plant ids) are normalized
// here; fields that are absent or unparseable come back nil together with a
// warning, and are left for the validator to report.
func Resolve(env Envelope) (model.Candidate, []string) {
	var warnings []string

	cand := model.Candidate{
		SensorID:      env.SensorID,
		SensorVersion: env.SensorVersion,
	}

	if id, ok := resolvePlantID(env.PlantID); ok {
		cand.PlantID = &id
	} else if env.PlantID != nil {
		warnings = append(warnings, fmt.Sprintf("unparseable plant_id %v", env.PlantID))
	}

	rawTemp := env.Temperature
	rawHum := env.Humidity
	if env.Measures != nil {
		rawTemp = env.Measures["temperature"]
		rawHum = firstPresent(env.Measures, humidityKeys)
	}

	if t, ok := units.Normalize(rawTemp); ok {
		cand.Temperature = &t
	} else if rawTemp != nil {
		warnings = append(warnings, fmt.Sprintf("unparseable temperature %v", rawTemp))
	}

	if h, ok := units.Normalize(rawHum); ok {
		cand.Humidity = &h
	} else if rawHum != nil {
		warnings = append(warnings, fmt.Sprintf("unparseable humidity %v", rawHum))
	}

	if ts, ok := parseTimestamp(env.Timestamp); ok {
		cand.Timestamp = &ts
	} else if env.Timestamp != "" {
		warnings = append(warnings, fmt.Sprintf("unparseable timestamp %q", env.Timestamp))
	}

	return cand, warnings
}

// resolvePlantID accepts the canonical integer form and the legacy
// numeric-string form ("2", "plante_42" is not accepted).
func resolvePlantID(v any) (int, bool) {
	switch id := v.(type) {
	case int:
		return id, true
	case int8:
		return int(id), true
	case int16:
		return int(id), true
	case int32:
		return int(id), true
	case int64:
		return int(id), true
	case uint8:
		return int(id), true
	case uint16:
		return int(id), true
	case uint32:
		return int(id), true
	case uint64:
		return int(id), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func firstPresent(m map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
