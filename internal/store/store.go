// Package store persists readings in Postgres and exposes the window
// queries and flag updates the detection sweep runs on.
package store

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verdantio/plant-telemetry/internal/model"
)

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies storage reachability for the liveness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const insertReadingSQL = `
INSERT INTO telemetry.readings (plant_id, sensor_id, sensor_version, ts, temperature, humidity, anomaly, cross_sensor_issue, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,false,false,NOW(),NOW())
ON CONFLICT (plant_id, sensor_id, ts) DO UPDATE
SET temperature = EXCLUDED.temperature,
    humidity = EXCLUDED.humidity,
    sensor_version = EXCLUDED.sensor_version,
    updated_at = NOW()`

// InsertReading writes one normalized reading. Anomaly flags start false and
// are owned by the sweep from that point on.
func (s *Store) InsertReading(ctx context.Context, r model.Reading) error {
	_, err := s.pool.Exec(ctx, insertReadingSQL,
		r.PlantID, r.SensorID, r.SensorVersion, r.Timestamp, r.Temperature, r.Humidity)
	return err
}

// Query holds filters for retrieving readings. PlantID is required; the
// rest are optional.
type Query struct {
	PlantID  int
	SensorID string
	Since    *time.Time
	Until    *time.Time
	Limit    int
}

const readingsBase = `
    SELECT plant_id, sensor_id, sensor_version, ts, temperature, humidity, anomaly, cross_sensor_issue
    FROM telemetry.readings
    WHERE plant_id = $1
`

// FetchReadings returns readings for a plant, newest first.
func (s *Store) FetchReadings(ctx context.Context, q Query) ([]model.StoredReading, error) {
	args := []any{q.PlantID}
	clause := ""
	argPos := 2

	if q.SensorID != "" {
		clause += " AND sensor_id = $" + strconv.Itoa(argPos)
		args = append(args, q.SensorID)
		argPos++
	}
	if q.Since != nil {
		clause += " AND ts >= $" + strconv.Itoa(argPos)
		args = append(args, *q.Since)
		argPos++
	}
	if q.Until != nil {
		clause += " AND ts <= $" + strconv.Itoa(argPos)
		args = append(args, *q.Until)
		argPos++
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	sql := readingsBase + clause + " ORDER BY ts DESC LIMIT $" + strconv.Itoa(argPos)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReadings(rows)
}

const windowSQL = `
    SELECT plant_id, sensor_id, sensor_version, ts, temperature, humidity, anomaly, cross_sensor_issue
    FROM telemetry.readings
    WHERE ts >= $1
    ORDER BY ts DESC
`

// FetchWindow returns every reading at or after the given instant, across
// all plants, for the detection sweep.
func (s *Store) FetchWindow(ctx context.Context, since time.Time) ([]model.StoredReading, error) {
	rows, err := s.pool.Query(ctx, windowSQL, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReadings(rows)
}

func scanReadings(rows pgx.Rows) ([]model.StoredReading, error) {
	readings := make([]model.StoredReading, 0)
	for rows.Next() {
		var r model.StoredReading
		if err := rows.Scan(
			&r.PlantID,
			&r.SensorID,
			&r.SensorVersion,
			&r.Timestamp,
			&r.Temperature,
			&r.Humidity,
			&r.Anomaly,
			&r.CrossSensorIssue,
		); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

const markAnomalySQL = `
UPDATE telemetry.readings
SET anomaly = true, updated_at = NOW()
WHERE plant_id = $1 AND sensor_id = $2 AND ts = $3`

const markCrossSensorSQL = `
UPDATE telemetry.readings
SET cross_sensor_issue = true, updated_at = NOW()
WHERE plant_id = $1 AND sensor_id = $2 AND ts = $3`

// MarkAnomalies sets the environmental anomaly flag on the given rows.
func (s *Store) MarkAnomalies(ctx context.Context, keys []model.Key) error {
	return s.markFlags(ctx, markAnomalySQL, keys)
}

// MarkCrossSensorIssues sets the cross-sensor divergence flag on the given rows.
func (s *Store) MarkCrossSensorIssues(ctx context.Context, keys []model.Key) error {
	return s.markFlags(ctx, markCrossSensorSQL, keys)
}

func (s *Store) markFlags(ctx context.Context, sql string, keys []model.Key) error {
	if len(keys) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, k := range keys {
		batch.Queue(sql, k.PlantID, k.SensorID, k.Timestamp)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range keys {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}

	return nil
}
