package service

import (
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"HomeMonitorAPI/internal/alerting"
	"HomeMonitorAPI/internal/config"
	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureHub struct {
	events []string
}

func (h *captureHub) BroadcastEvent(event string, payload any) {
	h.events = append(h.events, event)
}

func newTestTelemetry(t *testing.T) (*TelemetryService, sqlmock.Sqlmock, *fakeSender, *captureHub) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log, err := logger.New(logger.Config{Level: logger.ERROR})
	require.NoError(t, err)

	cache, err := alerting.NewCooldownCache(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	sender := &fakeSender{}
	settings := config.DefaultAlertSettings()
	settings.Enabled = true
	engine := alerting.NewEngine(sender, cache, &settings, log)

	readings := repository.NewReadingRepository(db)
	statuses := repository.NewStatusRepository(db)
	liveness := NewLivenessService(statuses, engine, 30*time.Second, 0, log)
	hub := &captureHub{}

	return NewTelemetryService(readings, liveness, engine, hub, 10000, log), mock, sender, hub
}

func expectHealthyPipeline(mock sqlmock.Sqlmock, deviceID string) {
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO readings")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM readings")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(100))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO device_status")).
		WithArgs(deviceID, "online", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestProcessMessageStoresAndBroadcasts(t *testing.T) {
	svc, mock, sender, hub := newTestTelemetry(t)

	expectHealthyPipeline(mock, "dev-1")

	svc.ProcessMessage("home/sensors/dev-1",
		[]byte(`{"device_id":"dev-1","temperature":21.5,"humidity":55.2,"battery_level":90,"rssi":-62}`))

	assert.Empty(t, sender.sent)
	assert.Equal(t, []string{"reading"}, hub.events)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessMessageBreachedThresholdAlerts(t *testing.T) {
	svc, mock, sender, _ := newTestTelemetry(t)

	expectHealthyPipeline(mock, "dev-1")

	svc.ProcessMessage("home/sensors/dev-1",
		[]byte(`{"device_id":"dev-1","temperature":45.0,"humidity":55.0}`))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Temperature high")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessMessageInvalidJSONDropped(t *testing.T) {
	svc, mock, _, hub := newTestTelemetry(t)

	svc.ProcessMessage("home/sensors/dev-1", []byte(`{not json`))

	assert.Empty(t, hub.events)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessMessageMissingRequiredFieldsDropped(t *testing.T) {
	svc, mock, _, hub := newTestTelemetry(t)

	// No device_id.
	svc.ProcessMessage("home/sensors/x", []byte(`{"temperature":20,"humidity":50}`))
	// No humidity.
	svc.ProcessMessage("home/sensors/x", []byte(`{"device_id":"dev-1","temperature":20}`))
	// No temperature.
	svc.ProcessMessage("home/sensors/x", []byte(`{"device_id":"dev-1","humidity":50}`))

	assert.Empty(t, hub.events)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessMessageStoreFailureAbandonsMessage(t *testing.T) {
	svc, mock, _, hub := newTestTelemetry(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO readings")).
		WillReturnError(errors.New("disk full"))

	svc.ProcessMessage("home/sensors/dev-1",
		[]byte(`{"device_id":"dev-1","temperature":21.0,"humidity":50.0}`))

	assert.Empty(t, hub.events)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessMessageTrimFailureDoesNotStopPipeline(t *testing.T) {
	svc, mock, _, hub := newTestTelemetry(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO readings")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM readings")).
		WillReturnError(errors.New("locked"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO device_status")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc.ProcessMessage("home/sensors/dev-1",
		[]byte(`{"device_id":"dev-1","temperature":21.0,"humidity":50.0}`))

	assert.Equal(t, []string{"reading"}, hub.events)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessMessageRoutesStatusTopic(t *testing.T) {
	svc, mock, _, hub := newTestTelemetry(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO device_status")).
		WithArgs("dev-1", "offline", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc.ProcessMessage("home/sensors/dev-1/status",
		[]byte(`{"device_id":"dev-1","status":"offline"}`))

	assert.Equal(t, []string{"status"}, hub.events)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessMessageStatusSegmentAnywhereInTopic(t *testing.T) {
	svc, mock, _, hub := newTestTelemetry(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO device_status")).
		WithArgs("dev-1", "offline", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// The /status segment routes to the liveness path even when it is
	// not the final topic level.
	svc.ProcessMessage("home/sensors/dev-1/status/lwt",
		[]byte(`{"device_id":"dev-1","status":"offline"}`))

	assert.Equal(t, []string{"status"}, hub.events)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessMessageStatusMissingFieldsDropped(t *testing.T) {
	svc, mock, _, hub := newTestTelemetry(t)

	svc.ProcessMessage("home/sensors/dev-1/status", []byte(`{"status":"offline"}`))
	svc.ProcessMessage("home/sensors/dev-1/status", []byte(`{"device_id":"dev-1"}`))

	assert.Empty(t, hub.events)
	require.NoError(t, mock.ExpectationsWereMet())
}
