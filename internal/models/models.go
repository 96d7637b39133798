// internal/models/models.go

package models

import (
	"time"
)

// Device liveness states as stored in device_status.status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Reading is one sensor sample from a device. ReceivedAt is always
// assigned from the server clock on ingestion, never taken from the
// device payload.
type Reading struct {
	ID              int64     `json:"id" db:"id"`
	DeviceID        string    `json:"device_id" db:"device_id"`
	Temperature     *float64  `json:"temperature" db:"temperature"`
	Humidity        *float64  `json:"humidity" db:"humidity"`
	BatteryLevel    *float64  `json:"battery_level" db:"battery_level"`
	RSSI            *int      `json:"rssi" db:"rssi"`
	DeviceTimestamp *int64    `json:"timestamp" db:"device_timestamp"`
	ReceivedAt      int64     `json:"received_at" db:"received_at"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// DeviceStatus is the single current liveness row per device.
type DeviceStatus struct {
	DeviceID  string    `json:"device_id" db:"device_id"`
	Status    string    `json:"status" db:"status"`
	LastSeen  int64     `json:"last_seen" db:"last_seen"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SensorMessage is the wire shape of a sensor payload on home/sensors/<id>.
type SensorMessage struct {
	DeviceID     string   `json:"device_id"`
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	BatteryLevel *float64 `json:"battery_level"`
	RSSI         *int     `json:"rssi"`
	Timestamp    *int64   `json:"timestamp"`
}

// StatusMessage is the wire shape of a liveness signal on .../status topics.
type StatusMessage struct {
	DeviceID string `json:"device_id"`
	Status   string `json:"status"`
}

// DeviceSummary is one row of the devices listing: the status row joined
// with per-device aggregates over the retained readings.
type DeviceSummary struct {
	DeviceID          string    `json:"device_id"`
	Status            string    `json:"status"`
	LastSeen          int64     `json:"last_seen"`
	UpdatedAt         time.Time `json:"updated_at"`
	TotalRecords      int       `json:"total_records"`
	LastDataTime      *int64    `json:"last_data_time"`
	AvgTemperature    *float64  `json:"avg_temperature"`
	AvgHumidity       *float64  `json:"avg_humidity"`
	AvgBattery        *float64  `json:"avg_battery"`
	IsOnline          bool      `json:"is_online"`
	TimeSinceLastSeen int64     `json:"time_since_last_seen"`
}

// DeviceStats aggregates a device's readings over a query period.
type DeviceStats struct {
	DeviceID     string   `json:"device_id"`
	Period       string   `json:"period"`
	TotalRecords int      `json:"total_records"`
	MinTemp      *float64 `json:"min_temp"`
	MaxTemp      *float64 `json:"max_temp"`
	AvgTemp      *float64 `json:"avg_temp"`
	MinHumidity  *float64 `json:"min_humidity"`
	MaxHumidity  *float64 `json:"max_humidity"`
	AvgHumidity  *float64 `json:"avg_humidity"`
	AvgBattery   *float64 `json:"avg_battery"`
	MinBattery   *float64 `json:"min_battery"`
	AvgRSSI      *float64 `json:"avg_rssi"`
}

// HistoryQuery bounds a history request. Limit is clamped by the handler.
type HistoryQuery struct {
	DeviceID string
	Limit    int
	Offset   int
	Since    int64
}

type HistoryResponse struct {
	Count  int       `json:"count"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
	Data   []Reading `json:"data"`
}

// SystemInfo mirrors the dashboard system panel: host uptime and resource use.
type SystemInfo struct {
	Timestamp   string    `json:"timest"`
	Uptime      string    `json:"uptime"`
	CPUTempC    float64   `json:"cputemp"`
	CPUFreqMHz  float64   `json:"cpufreq"`
	LoadAvg     []float64 `json:"load"`
	MemPercent  float64   `json:"memperc"`
	MemAvailMB  int64     `json:"memavail"`
	MemUsedMB   int64     `json:"memunavail"`
	SwapPercent float64   `json:"swapperc"`
}
