package repository

import (
	"context"
	"database/sql"
	"fmt"

	"HomeMonitorAPI/internal/models"
)

type StatusRepository struct {
	db *sql.DB
}

func NewStatusRepository(db *sql.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// Upsert replaces the single status row for a device. The ON CONFLICT form
// is accepted by both SQLite (3.24+) and Postgres.
func (r *StatusRepository) Upsert(ctx context.Context, deviceID, status string, lastSeen int64) error {
	query := `
		INSERT INTO device_status (device_id, status, last_seen, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (device_id) DO UPDATE SET
			status = excluded.status,
			last_seen = excluded.last_seen,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query, deviceID, status, lastSeen)
	if err != nil {
		return fmt.Errorf("failed to upsert device status: %w", err)
	}

	return nil
}

// Get returns the status row for a device, or nil when none exists yet.
func (r *StatusRepository) Get(ctx context.Context, deviceID string) (*models.DeviceStatus, error) {
	query := `
		SELECT device_id, status, last_seen, updated_at
		FROM device_status
		WHERE device_id = $1
	`

	var status models.DeviceStatus
	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(
		&status.DeviceID,
		&status.Status,
		&status.LastSeen,
		&status.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device status: %w", err)
	}

	return &status, nil
}

// ListDevices returns every known device with its status row joined against
// per-device aggregates over the retained readings. IsOnline is computed
// from last_seen against onlineWindow, independent of the stored status.
func (r *StatusRepository) ListDevices(ctx context.Context, now, onlineWindow int64) ([]models.DeviceSummary, error) {
	query := `
		SELECT
			ds.device_id,
			ds.status,
			ds.last_seen,
			ds.updated_at,
			COUNT(sd.id),
			MAX(sd.received_at),
			AVG(sd.temperature),
			AVG(sd.humidity),
			AVG(sd.battery_level)
		FROM device_status ds
		LEFT JOIN readings sd ON ds.device_id = sd.device_id
		GROUP BY ds.device_id, ds.status, ds.last_seen, ds.updated_at
		ORDER BY ds.device_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := []models.DeviceSummary{}
	for rows.Next() {
		var d models.DeviceSummary
		err := rows.Scan(
			&d.DeviceID,
			&d.Status,
			&d.LastSeen,
			&d.UpdatedAt,
			&d.TotalRecords,
			&d.LastDataTime,
			&d.AvgTemperature,
			&d.AvgHumidity,
			&d.AvgBattery,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}

		d.TimeSinceLastSeen = now - d.LastSeen
		d.IsOnline = d.TimeSinceLastSeen < onlineWindow

		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	return devices, nil
}
