package repository

import (
	"context"
	"database/sql"
	"fmt"

	"HomeMonitorAPI/internal/models"
)

const readingColumns = `id, device_id, temperature, humidity, battery_level,
	rssi, device_timestamp, received_at, created_at`

type ReadingRepository struct {
	db *sql.DB
}

func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Insert appends one reading. Duplicate content is allowed; the transport is
// at-least-once and the surrogate id is the only uniqueness constraint.
func (r *ReadingRepository) Insert(ctx context.Context, reading *models.Reading) error {
	query := `
		INSERT INTO readings (
			device_id, temperature, humidity, battery_level,
			rssi, device_timestamp, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		reading.DeviceID,
		reading.Temperature,
		reading.Humidity,
		reading.BatteryLevel,
		reading.RSSI,
		reading.DeviceTimestamp,
		reading.ReceivedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	return nil
}

// Trim deletes the oldest rows (by received_at) so that at most maxRecords
// remain. The count check and delete are separate statements; a transient
// overshoot under concurrent writers is acceptable, this is a soft cap.
func (r *ReadingRepository) Trim(ctx context.Context, maxRecords int) (int64, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}

	if count <= maxRecords {
		return 0, nil
	}

	query := `
		DELETE FROM readings
		WHERE id IN (
			SELECT id FROM readings
			ORDER BY received_at ASC
			LIMIT $1
		)
	`

	result, err := r.db.ExecContext(ctx, query, count-maxRecords)
	if err != nil {
		return 0, fmt.Errorf("failed to trim readings: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return deleted, nil
}

// Latest returns the most recent reading for a device, or nil when the
// device has no data yet.
func (r *ReadingRepository) Latest(ctx context.Context, deviceID string) (*models.Reading, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM readings
		WHERE device_id = $1
		ORDER BY received_at DESC, id DESC
		LIMIT 1
	`, readingColumns)

	reading, err := scanReading(r.db.QueryRowContext(ctx, query, deviceID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}

	return reading, nil
}

// LatestAll returns the most recent reading per device.
func (r *ReadingRepository) LatestAll(ctx context.Context) ([]models.Reading, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM readings r
		INNER JOIN (
			SELECT device_id AS latest_device, MAX(received_at) AS max_time
			FROM readings
			GROUP BY device_id
		) m ON r.device_id = m.latest_device AND r.received_at = m.max_time
		ORDER BY r.device_id
	`, prefixColumns("r"))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest readings: %w", err)
	}
	defer rows.Close()

	return collectReadings(rows)
}

// History returns readings for a device, newest first.
func (r *ReadingRepository) History(ctx context.Context, q models.HistoryQuery) ([]models.Reading, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM readings
		WHERE device_id = $1 AND received_at >= $2
		ORDER BY received_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, readingColumns)

	rows, err := r.db.QueryContext(ctx, query, q.DeviceID, q.Since, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return collectReadings(rows)
}

// Realtime returns all readings received in the last windowSeconds.
func (r *ReadingRepository) Realtime(ctx context.Context, since int64) ([]models.Reading, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM readings
		WHERE received_at >= $1
		ORDER BY received_at DESC, id DESC
	`, readingColumns)

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query realtime readings: %w", err)
	}
	defer rows.Close()

	return collectReadings(rows)
}

// Stats aggregates a device's readings received at or after since.
func (r *ReadingRepository) Stats(ctx context.Context, deviceID string, since int64) (*models.DeviceStats, error) {
	query := `
		SELECT
			COUNT(*),
			MIN(temperature), MAX(temperature), AVG(temperature),
			MIN(humidity), MAX(humidity), AVG(humidity),
			AVG(battery_level), MIN(battery_level),
			AVG(rssi)
		FROM readings
		WHERE device_id = $1 AND received_at >= $2
	`

	stats := &models.DeviceStats{DeviceID: deviceID}

	err := r.db.QueryRowContext(ctx, query, deviceID, since).Scan(
		&stats.TotalRecords,
		&stats.MinTemp, &stats.MaxTemp, &stats.AvgTemp,
		&stats.MinHumidity, &stats.MaxHumidity, &stats.AvgHumidity,
		&stats.AvgBattery, &stats.MinBattery,
		&stats.AvgRSSI,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, nil
}

func scanReading(row *sql.Row) (*models.Reading, error) {
	var reading models.Reading
	err := row.Scan(
		&reading.ID,
		&reading.DeviceID,
		&reading.Temperature,
		&reading.Humidity,
		&reading.BatteryLevel,
		&reading.RSSI,
		&reading.DeviceTimestamp,
		&reading.ReceivedAt,
		&reading.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func collectReadings(rows *sql.Rows) ([]models.Reading, error) {
	readings := []models.Reading{}
	for rows.Next() {
		var reading models.Reading
		err := rows.Scan(
			&reading.ID,
			&reading.DeviceID,
			&reading.Temperature,
			&reading.Humidity,
			&reading.BatteryLevel,
			&reading.RSSI,
			&reading.DeviceTimestamp,
			&reading.ReceivedAt,
			&reading.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	return readings, nil
}

func prefixColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.device_id, %[1]s.temperature, %[1]s.humidity,
		%[1]s.battery_level, %[1]s.rssi, %[1]s.device_timestamp, %[1]s.received_at,
		%[1]s.created_at`, alias)
}
