// internal/database/schema.go

package database

import (
	"context"
	"fmt"
)

// Statements are idempotent (IF NOT EXISTS) so Migrate can run on every
// startup. The two dialects differ only in the surrogate key and timestamp
// column types; everything the repositories execute at runtime is portable.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL,
		temperature REAL,
		humidity REAL,
		battery_level REAL,
		rssi INTEGER,
		device_timestamp INTEGER,
		received_at INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_device_received
		ON readings(device_id, received_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_received_at
		ON readings(received_at DESC)`,
	`CREATE TABLE IF NOT EXISTS device_status (
		device_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		last_seen INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS readings (
		id BIGSERIAL PRIMARY KEY,
		device_id TEXT NOT NULL,
		temperature DOUBLE PRECISION,
		humidity DOUBLE PRECISION,
		battery_level DOUBLE PRECISION,
		rssi INTEGER,
		device_timestamp BIGINT,
		received_at BIGINT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_device_received
		ON readings(device_id, received_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_received_at
		ON readings(received_at DESC)`,
	`CREATE TABLE IF NOT EXISTS device_status (
		device_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		last_seen BIGINT NOT NULL,
		updated_at TIMESTAMPTZ DEFAULT NOW()
	)`,
}

// Migrate creates the readings and device_status tables for the active
// dialect if they do not exist yet.
func (d *Database) Migrate(ctx context.Context) error {
	var statements []string

	switch d.driver {
	case "sqlite3":
		statements = sqliteSchema
	case "postgres":
		statements = postgresSchema
	default:
		return fmt.Errorf("no schema for driver: %s", d.driver)
	}

	for _, stmt := range statements {
		if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	return nil
}
