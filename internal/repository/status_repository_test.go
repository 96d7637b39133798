package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStatusMock(t *testing.T) (*StatusRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStatusRepository(db), mock
}

func TestUpsertStatus(t *testing.T) {
	repo, mock := setupStatusMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO device_status")).
		WithArgs("dev-1", "online", int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), "dev-1", "online", 1700000000)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatusMissingDevice(t *testing.T) {
	repo, mock := setupStatusMock(t)

	mock.ExpectQuery("SELECT .+ FROM device_status").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"device_id", "status", "last_seen", "updated_at"}))

	status, err := repo.Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDevicesComputesLiveness(t *testing.T) {
	repo, mock := setupStatusMock(t)

	now := int64(1700000100)
	updated := time.Now()
	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{
			"device_id", "status", "last_seen", "updated_at",
			"count", "max_received", "avg_t", "avg_h", "avg_b",
		}).
			AddRow("fresh", "online", now-10, updated, 50, now-10, 21.0, 50.0, 88.0).
			AddRow("stale", "online", now-120, updated, 3, now-120, 19.0, 60.0, nil))

	devices, err := repo.ListDevices(context.Background(), now, 30)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.True(t, devices[0].IsOnline)
	assert.Equal(t, int64(10), devices[0].TimeSinceLastSeen)

	assert.False(t, devices[1].IsOnline)
	assert.Equal(t, int64(120), devices[1].TimeSinceLastSeen)
	assert.Nil(t, devices[1].AvgBattery)
	require.NoError(t, mock.ExpectationsWereMet())
}
