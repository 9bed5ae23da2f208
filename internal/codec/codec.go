// Package codec decodes the compact sensor wire payload: base64 text
// wrapping a msgpack-serialized map. Two payload generations exist and both
// are accepted; the envelope tags which shape was seen so the resolver can
// unify them. No semantic validation happens here.
package codec

import (
	"encoding/base64"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// DecodeError signals a malformed payload (bad base64 or bad msgpack).
// The request carrying it is rejected and never retried.
type DecodeError struct {
	Stage string // "base64" or "msgpack"
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Envelope is the tagged union of the two accepted payload shapes. Canonical
// payloads carry flat numeric fields; legacy payloads carry a `measures` map
// of unit-suffixed strings and use `time` instead of `timestamp`.
type Envelope struct {
	SensorID      string
	SensorVersion string
	PlantID       any // integer (canonical) or numeric string (legacy)
	Timestamp     string
	Temperature   any            // numeric, canonical shape only
	Humidity      any            // numeric, canonical shape only
	Measures      map[string]any // legacy shape only
	Legacy        bool

	// Fields is the raw decoded map, kept for traceability and round-trips.
	Fields map[string]any
}

// Decode unpacks a base64-wrapped msgpack map into an envelope. Both stages
// fail atomically: any error yields a *DecodeError and no partial result.
func Decode(raw []byte) (Envelope, error) {
	binary, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil {
		return Envelope{}, &DecodeError{Stage: "base64", Err: err}
	}

	var fields map[string]any
	if err := msgpack.Unmarshal(binary, &fields); err != nil {
		return Envelope{}, &DecodeError{Stage: "msgpack", Err: err}
	}

	env := Envelope{Fields: fields}
	env.SensorID, _ = fields["sensor_id"].(string)
	env.SensorVersion, _ = fields["sensor_version"].(string)
	env.PlantID = fields["plant_id"]
	env.Temperature = fields["temperature"]
	env.Humidity = fields["humidity"]

	if ts, ok := fields["timestamp"].(string); ok {
		env.Timestamp = ts
	} else if ts, ok := fields["time"].(string); ok {
		env.Timestamp = ts
		env.Legacy = true
	}

	if m, ok := fields["measures"].(map[string]any); ok {
		env.Measures = m
		env.Legacy = true
	}

	return env, nil
}

// Encode packs a reading map into the wire format (msgpack, then base64).
// Used by the sensor simulator and round-trip tests.
func Encode(fields map[string]any) ([]byte, error) {
	binary, err := msgpack.Marshal(fields)
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(binary)
	return []byte(encoded), nil
}
