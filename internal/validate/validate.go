// Package validate checks structural completeness of a resolved reading.
// It never inspects value ranges: a well-typed reading with temperature
// 99999 is valid here and left to the anomaly detectors.
package validate

import "github.com/verdantio/plant-telemetry/internal/model"

// Result carries validity plus the ordered list of failed checks.
// The list is empty iff the reading is valid.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Check runs all structural checks. Every check is evaluated (no
// short-circuit) and appends its own message in a fixed order.
func Check(c model.Candidate) Result {
	var errs []string

	if c.PlantID == nil {
		errs = append(errs, "plant_id is missing or not an integer")
	}
	if c.Temperature == nil {
		errs = append(errs, "temperature is missing or not numeric")
	}
	if c.Humidity == nil {
		errs = append(errs, "humidity is missing or not numeric")
	}
	if c.Timestamp == nil || c.Timestamp.IsZero() {
		errs = append(errs, "timestamp is missing")
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}
