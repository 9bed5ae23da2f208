package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantio/plant-telemetry/internal/codec"
	"github.com/verdantio/plant-telemetry/internal/config"
	"github.com/verdantio/plant-telemetry/internal/model"
	"github.com/verdantio/plant-telemetry/internal/retry"
	"github.com/verdantio/plant-telemetry/internal/store"
)

type fakeStore struct {
	mu        sync.Mutex
	inserted  []model.Reading
	insertErr error
	pingErr   error
	readings  []model.StoredReading
}

func (f *fakeStore) InsertReading(_ context.Context, r model.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, r)
	return nil
}

func (f *fakeStore) FetchReadings(_ context.Context, q store.Query) ([]model.StoredReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.StoredReading
	for _, r := range f.readings {
		if r.PlantID == q.PlantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Ping(_ context.Context) error {
	return f.pingErr
}

func testServer(fs *fakeStore) *Server {
	cfg := config.Config{Port: 8080, QueryLimit: 20, ConnectTimeout: time.Second}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(cfg, fs, log)
	s.policy = retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}
	return s
}

func post(t *testing.T, s *Server, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func encodePayload(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	raw, err := codec.Encode(fields)
	require.NoError(t, err)
	return raw
}

func TestIngestCanonicalPayload(t *testing.T) {
	fs := &fakeStore{}
	s := testServer(fs)

	w := post(t, s, encodePayload(t, map[string]any{
		"sensor_id":      "17629",
		"sensor_version": "FR-v8",
		"plant_id":       int64(2),
		"timestamp":      "2025-04-11T07:33:06Z",
		"temperature":    21.5,
		"humidity":       60.0,
	}))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string   `json:"status"`
		Alerts []string `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Status)
	assert.Empty(t, resp.Alerts)

	require.Len(t, fs.inserted, 1)
	assert.Equal(t, 2, fs.inserted[0].PlantID)
	assert.Equal(t, 21.5, fs.inserted[0].Temperature)
}

func TestIngestLegacyPayloadIsNormalized(t *testing.T) {
	fs := &fakeStore{}
	s := testServer(fs)

	w := post(t, s, encodePayload(t, map[string]any{
		"sensor_id":      "17629",
		"sensor_version": "v1",
		"plant_id":       "2",
		"time":           "2025-04-11T07:33:06Z",
		"measures": map[string]any{
			"temperature": "25°C",
			"humidite":    "50%",
		},
	}))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, fs.inserted, 1)
	assert.Equal(t, 2, fs.inserted[0].PlantID)
	assert.InDelta(t, 25.0, fs.inserted[0].Temperature, 1e-9)
	assert.InDelta(t, 50.0, fs.inserted[0].Humidity, 1e-9)
}

func TestIngestMalformedPayload(t *testing.T) {
	fs := &fakeStore{}
	s := testServer(fs)

	w := post(t, s, []byte("payload_invalid!!"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, fs.inserted, "decode errors never reach the storage layer")
}

func TestIngestIncompletePayload(t *testing.T) {
	fs := &fakeStore{}
	s := testServer(fs)

	w := post(t, s, encodePayload(t, map[string]any{
		"sensor_id": "17629",
		"plant_id":  int64(2),
	}))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{
		"temperature is missing or not numeric",
		"humidity is missing or not numeric",
		"timestamp is missing",
	}, resp.Errors)
	assert.Empty(t, fs.inserted, "validation errors never reach the storage layer")
}

func TestIngestReturnsAdvisoryAlerts(t *testing.T) {
	fs := &fakeStore{}
	s := testServer(fs)

	w := post(t, s, encodePayload(t, map[string]any{
		"sensor_id":      "17629",
		"sensor_version": "FR-v8",
		"plant_id":       int64(2),
		"timestamp":      "2025-04-11T07:33:06Z",
		"temperature":    40.0,
		"humidity":       60.0,
	}))

	require.Equal(t, http.StatusOK, w.Code, "an anomaly is a successful classification outcome")

	var resp struct {
		Alerts []string `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Alerts, 1)
	assert.Contains(t, resp.Alerts[0], "temperature 40.0°C above")
	assert.Len(t, fs.inserted, 1, "anomalous readings are still persisted")
}

func TestIngestStorageUnavailable(t *testing.T) {
	fs := &fakeStore{insertErr: errors.New("connection refused")}
	s := testServer(fs)

	w := post(t, s, encodePayload(t, map[string]any{
		"sensor_id":      "17629",
		"sensor_version": "FR-v8",
		"plant_id":       int64(2),
		"timestamp":      "2025-04-11T07:33:06Z",
		"temperature":    21.5,
		"humidity":       60.0,
	}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDataRequiresPlantID(t *testing.T) {
	s := testServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDataReturnsReadings(t *testing.T) {
	ts := time.Date(2025, 4, 11, 7, 33, 6, 0, time.UTC)
	fs := &fakeStore{readings: []model.StoredReading{
		{Reading: model.Reading{PlantID: 2, SensorID: "17629", Temperature: 25, Humidity: 50, Timestamp: ts}},
		{Reading: model.Reading{PlantID: 3, SensorID: "9", Temperature: 20, Humidity: 40, Timestamp: ts}},
	}}
	s := testServer(fs)

	req := httptest.NewRequest(http.MethodGet, "/data?plant_id=2", nil)
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		PlantID  int                   `json:"plant_id"`
		Count    int                   `json:"count"`
		Readings []model.StoredReading `json:"readings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.PlantID)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "17629", resp.Readings[0].SensorID)
}

func TestHealthReportsStorageState(t *testing.T) {
	check := func(t *testing.T, fs *fakeStore, wantStorage string) {
		s := testServer(fs)
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		s.Engine().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, "liveness never raises")

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, wantStorage, resp["storage"])
	}

	check(t, &fakeStore{}, "reachable")
	check(t, &fakeStore{pingErr: errors.New("dial timeout")}, "unreachable")
}

func TestBearerAuth(t *testing.T) {
	cfg := config.Config{Port: 8080, QueryLimit: 20, BearerToken: "sekrit", ConnectTimeout: time.Second}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(cfg, &fakeStore{}, log)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w = httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
