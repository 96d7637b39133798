// internal/models/alert_model.go

package models

// Alert severities used in outbound notifications.
const (
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Thresholds are the named numeric limits alerts are evaluated against.
// High/critical compare with >=, low with <=.
type Thresholds struct {
	CPUTempHigh        float64 `json:"cpu_temp_high"`
	CPUTempCritical    float64 `json:"cpu_temp_critical"`
	RAMUsageHigh       float64 `json:"ram_usage_high"`
	RAMUsageCritical   float64 `json:"ram_usage_critical"`
	SensorTempHigh     float64 `json:"sensor_temp_high"`
	SensorTempLow      float64 `json:"sensor_temp_low"`
	SensorHumidityHigh float64 `json:"sensor_humidity_high"`
	SensorHumidityLow  float64 `json:"sensor_humidity_low"`
	BatteryLow         float64 `json:"battery_low"`
}

// DefaultThresholds returns the factory limits used when the alerting
// config file is absent or leaves values unset.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUTempHigh:        70,
		CPUTempCritical:    80,
		RAMUsageHigh:       85,
		RAMUsageCritical:   95,
		SensorTempHigh:     40,
		SensorTempLow:      5,
		SensorHumidityHigh: 90,
		SensorHumidityLow:  20,
		BatteryLow:         20,
	}
}

// AlertMessage is one formatted, cooldown-keyed outbound notification.
type AlertMessage struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Text     string `json:"text"`
}
