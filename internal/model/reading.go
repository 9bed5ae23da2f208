package model

import (
	"fmt"
	"time"
)

// Reading is the canonical normalized observation: temperature in °C,
// humidity in percentage points, independent of the source encoding.
type Reading struct {
	PlantID       int       `json:"plant_id"`
	SensorID      string    `json:"sensor_id"`
	SensorVersion string    `json:"sensor_version"`
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	Timestamp     time.Time `json:"timestamp"`
}

// StoredReading is a persisted reading plus the anomaly flags owned by the
// periodic detection sweep.
type StoredReading struct {
	Reading
	Anomaly          bool `json:"anomaly"`
	CrossSensorIssue bool `json:"cross_sensor_issue"`
}

// Key identifies a stored reading for flag updates.
type Key struct {
	PlantID   int
	SensorID  string
	Timestamp time.Time
}

// Key returns the update key for this reading.
func (r Reading) Key() Key {
	return Key{PlantID: r.PlantID, SensorID: r.SensorID, Timestamp: r.Timestamp}
}

// Candidate holds a resolved-but-unvalidated reading. Pointer fields encode
// absence: a field the payload omitted (or that failed unit parsing) is nil.
type Candidate struct {
	PlantID       *int
	SensorID      string
	SensorVersion string
	Temperature   *float64
	Humidity      *float64
	Timestamp     *time.Time
}

// Reading converts a fully-populated candidate into a canonical reading.
// Callers must validate first; a nil field here is a programming error.
func (c Candidate) Reading() Reading {
	return Reading{
		PlantID:       *c.PlantID,
		SensorID:      c.SensorID,
		SensorVersion: c.SensorVersion,
		Temperature:   *c.Temperature,
		Humidity:      *c.Humidity,
		Timestamp:     *c.Timestamp,
	}
}

// AnomalyReport describes the anomalies found for one reading, or for a
// plant-level aggregate when SensorID is empty. Reports are logged or used
// to mutate stored flags, never persisted themselves.
type AnomalyReport struct {
	Timestamp    time.Time `json:"timestamp"`
	PlantID      int       `json:"plant_id"`
	SensorID     string    `json:"sensor_id,omitempty"`
	Descriptions []string  `json:"descriptions"`
}

// Empty reports contain no descriptions and mean "nothing anomalous".
func (r AnomalyReport) Empty() bool {
	return len(r.Descriptions) == 0
}

func (r AnomalyReport) String() string {
	scope := fmt.Sprintf("plant=%d", r.PlantID)
	if r.SensorID != "" {
		scope += fmt.Sprintf(" sensor=%s", r.SensorID)
	}
	return fmt.Sprintf("%s ts=%s: %v", scope, r.Timestamp.Format(time.RFC3339), r.Descriptions)
}
