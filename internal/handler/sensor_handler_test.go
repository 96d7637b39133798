package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/models"
	"HomeMonitorAPI/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSensorHandler(t *testing.T) (*SensorHandler, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log, err := logger.New(logger.Config{Level: logger.ERROR})
	require.NoError(t, err)

	return NewSensorHandler(
		repository.NewReadingRepository(db),
		repository.NewStatusRepository(db),
		log,
	), mock
}

func TestHistoryRequiresDeviceID(t *testing.T) {
	h, _ := newTestSensorHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sensors/history", nil)
	rec := httptest.NewRecorder()

	h.History(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryClampsLimit(t *testing.T) {
	h, mock := newTestSensorHandler(t)

	mock.ExpectQuery("SELECT .+ FROM readings").
		WithArgs("dev-1", int64(0), 1000, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "device_id", "temperature", "humidity", "battery_level",
			"rssi", "device_timestamp", "received_at", "created_at",
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/sensors/history?device_id=dev-1&limit=5000", nil)
	rec := httptest.NewRecorder()

	h.History(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1000, resp.Limit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRejectsUnknownPeriod(t *testing.T) {
	h, _ := newTestSensorHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/devices/dev-1/stats?period=5y", nil)
	req = mux.SetURLVars(req, map[string]string{"device_id": "dev-1"})
	rec := httptest.NewRecorder()

	h.Stats(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatestUnknownDeviceIs404(t *testing.T) {
	h, mock := newTestSensorHandler(t)

	mock.ExpectQuery("SELECT .+ FROM readings").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "device_id", "temperature", "humidity", "battery_level",
			"rssi", "device_timestamp", "received_at", "created_at",
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/sensors/latest?device_id=ghost", nil)
	rec := httptest.NewRecorder()

	h.Latest(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
