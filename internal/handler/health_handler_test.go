package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"HomeMonitorAPI/internal/config"
	"HomeMonitorAPI/internal/database"
	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/mqtt"
	"HomeMonitorAPI/internal/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHealthHandler(t *testing.T) *HealthHandler {
	t.Helper()

	log, err := logger.New(logger.Config{Level: logger.ERROR})
	require.NoError(t, err)

	db, err := database.New(&config.DatabaseConfig{
		Driver: "sqlite3",
		Path:   filepath.Join(t.TempDir(), "health_test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		MQTT: &config.MQTTConfig{
			Broker:   "127.0.0.1",
			Port:     1883,
			ClientID: "health-test",
		},
		Logger: log,
	})
	require.NoError(t, err)

	return NewHealthHandler(db, mqttClient, websocket.NewHub(log), log)
}

func TestHealthReportsBrokerSnapshot(t *testing.T) {
	h := newTestHealthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// The broker was never connected, so overall status is degraded but
	// the snapshot still names the broker and client.
	assert.Equal(t, "degraded", resp.Status)
	assert.True(t, resp.Database)
	assert.False(t, resp.MQTT.Connected)
	assert.Equal(t, "127.0.0.1:1883", resp.MQTT.Broker)
	assert.Equal(t, "health-test", resp.MQTT.ClientID)
	assert.Zero(t, resp.WebsocketClients)
}

func TestReadyFailsWhileBrokerDown(t *testing.T) {
	h := newTestHealthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil)
	rec := httptest.NewRecorder()
	h.Ready(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveAlwaysAnswers(t *testing.T) {
	h := newTestHealthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health/live", nil)
	rec := httptest.NewRecorder()
	h.Live(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
