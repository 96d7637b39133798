// Package alerting evaluates readings and state changes against
// configured thresholds and pushes notifications with per-key cooldowns.
package alerting

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"HomeMonitorAPI/internal/config"
	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/models"
	"HomeMonitorAPI/internal/notifier"
)

// Sender is the notification transport. A success return is the only
// thing that advances a cooldown.
type Sender interface {
	SendMessage(text string) (*notifier.SendResult, error)
	IsConfigured() bool
}

type Engine struct {
	sender Sender
	cache  *CooldownCache
	log    *logger.Logger

	mu       sync.RWMutex
	settings *config.AlertSettings
	onAlert  func(key, text string)
}

func NewEngine(sender Sender, cache *CooldownCache, settings *config.AlertSettings, log *logger.Logger) *Engine {
	return &Engine{
		sender:   sender,
		cache:    cache,
		log:      log,
		settings: settings,
	}
}

// OnAlert registers a callback invoked after each successfully sent
// alert, used to mirror alerts onto the websocket feed. Set during
// wiring, before any evaluation runs.
func (e *Engine) OnAlert(fn func(key, text string)) {
	e.onAlert = fn
}

// UpdateSettings swaps in a new settings snapshot. In-flight evaluations
// keep the snapshot they started with.
func (e *Engine) UpdateSettings(settings *config.AlertSettings) {
	e.mu.Lock()
	e.settings = settings
	e.mu.Unlock()
}

func (e *Engine) Settings() *config.AlertSettings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// EvaluateReading checks one reading against the sensor thresholds and
// sends a single batched message for all breached values. The whole
// batch shares the key sensor_<device> for cooldown purposes.
func (e *Engine) EvaluateReading(reading *models.Reading, now time.Time) {
	s := e.Settings()
	if !s.Enabled {
		return
	}

	t := s.Thresholds
	var alerts []models.AlertMessage

	if reading.Temperature != nil {
		v := *reading.Temperature
		if v >= t.SensorTempHigh {
			alerts = append(alerts, models.AlertMessage{
				Type:     "temperature_high",
				Severity: models.SeverityWarning,
				Text:     fmt.Sprintf("Temperature high: %.1f°C (threshold: %.1f°C)", v, t.SensorTempHigh),
			})
		} else if v <= t.SensorTempLow {
			alerts = append(alerts, models.AlertMessage{
				Type:     "temperature_low",
				Severity: models.SeverityWarning,
				Text:     fmt.Sprintf("Temperature low: %.1f°C (threshold: %.1f°C)", v, t.SensorTempLow),
			})
		}
	}

	if reading.Humidity != nil {
		v := *reading.Humidity
		if v >= t.SensorHumidityHigh {
			alerts = append(alerts, models.AlertMessage{
				Type:     "humidity_high",
				Severity: models.SeverityWarning,
				Text:     fmt.Sprintf("Humidity high: %.1f%% (threshold: %.1f%%)", v, t.SensorHumidityHigh),
			})
		} else if v <= t.SensorHumidityLow {
			alerts = append(alerts, models.AlertMessage{
				Type:     "humidity_low",
				Severity: models.SeverityWarning,
				Text:     fmt.Sprintf("Humidity low: %.1f%% (threshold: %.1f%%)", v, t.SensorHumidityLow),
			})
		}
	}

	if reading.BatteryLevel != nil {
		v := *reading.BatteryLevel
		if v <= t.BatteryLow {
			alerts = append(alerts, models.AlertMessage{
				Type:     "battery_low",
				Severity: models.SeverityWarning,
				Text:     fmt.Sprintf("Battery low: %.0f%% (threshold: %.0f%%)", v, t.BatteryLow),
			})
		}
	}

	if len(alerts) == 0 {
		return
	}

	key := fmt.Sprintf("sensor_%s", reading.DeviceID)
	text := formatSensorAlert(reading.DeviceID, alerts, now)
	e.deliver(key, text, s, now)
}

// EvaluateTransition handles device liveness flips. Coming back online
// re-arms the offline alert immediately instead of waiting out its
// cooldown.
func (e *Engine) EvaluateTransition(deviceID, from, to string, lastSeen int64, now time.Time) {
	s := e.Settings()
	if !s.Enabled {
		return
	}

	switch to {
	case models.StatusOffline:
		key := fmt.Sprintf("device_offline_%s", deviceID)
		text := formatOfflineAlert(deviceID, lastSeen, now)
		e.deliver(key, text, s, now)
	case models.StatusOnline:
		if from != models.StatusOffline {
			return
		}
		if err := e.cache.Clear(fmt.Sprintf("device_offline_%s", deviceID)); err != nil {
			e.log.Error("Failed to clear offline cooldown for %s: %v", deviceID, err)
		}
		key := fmt.Sprintf("device_online_%s", deviceID)
		text := formatOnlineAlert(deviceID, now)
		e.deliver(key, text, s, now)
	}
}

// EvaluateCPUTemperature alerts on gateway CPU temperature. A critical
// breach supersedes the warning level.
func (e *Engine) EvaluateCPUTemperature(temp float64, now time.Time) {
	s := e.Settings()
	if !s.Enabled {
		return
	}

	t := s.Thresholds
	var severity, threshold = "", 0.0
	switch {
	case temp >= t.CPUTempCritical:
		severity, threshold = models.SeverityCritical, t.CPUTempCritical
	case temp >= t.CPUTempHigh:
		severity, threshold = models.SeverityWarning, t.CPUTempHigh
	default:
		return
	}

	text := formatSystemAlert("🔥", "CPU Temperature",
		fmt.Sprintf("%.1f°C (threshold: %.1f°C)", temp, threshold), severity, now)
	e.deliver("cpu_temp", text, s, now)
}

// EvaluateRAMUsage alerts on gateway memory pressure.
func (e *Engine) EvaluateRAMUsage(percent float64, now time.Time) {
	s := e.Settings()
	if !s.Enabled {
		return
	}

	t := s.Thresholds
	var severity, threshold = "", 0.0
	switch {
	case percent >= t.RAMUsageCritical:
		severity, threshold = models.SeverityCritical, t.RAMUsageCritical
	case percent >= t.RAMUsageHigh:
		severity, threshold = models.SeverityWarning, t.RAMUsageHigh
	default:
		return
	}

	text := formatSystemAlert("💾", "RAM Usage",
		fmt.Sprintf("%.1f%% (threshold: %.1f%%)", percent, threshold), severity, now)
	e.deliver("ram_usage", text, s, now)
}

// deliver applies the cooldown gate, attempts the send, and records the
// timestamp only when the send succeeded.
func (e *Engine) deliver(key, text string, s *config.AlertSettings, now time.Time) {
	if !e.sender.IsConfigured() {
		return
	}

	cooldown := time.Duration(s.CooldownSeconds()) * time.Second
	if !e.cache.ShouldSend(key, cooldown, now) {
		e.log.Debug("Alert %s suppressed by cooldown", key)
		return
	}

	if _, err := e.sender.SendMessage(text); err != nil {
		e.log.Error("Failed to send alert %s: %v", key, err)
		return
	}

	if err := e.cache.MarkSent(key, now); err != nil {
		e.log.Error("Failed to persist cooldown for %s: %v", key, err)
	}
	e.log.Info("Alert sent: %s", key)

	if e.onAlert != nil {
		e.onAlert(key, text)
	}
}

func formatSensorAlert(deviceID string, alerts []models.AlertMessage, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚠️ <b>Sensor Alert: %s</b>\n\n", deviceID))
	for _, a := range alerts {
		b.WriteString(fmt.Sprintf("• %s\n", a.Text))
	}
	b.WriteString(fmt.Sprintf("\n🕐 %s", now.Format("2006-01-02 15:04:05")))
	return b.String()
}

func formatOfflineAlert(deviceID string, lastSeen int64, now time.Time) string {
	return fmt.Sprintf("🔴 <b>Device Offline</b>\n\nDevice: <b>%s</b>\nLast seen: %s\n\n🕐 %s",
		deviceID,
		time.Unix(lastSeen, 0).Format("2006-01-02 15:04:05"),
		now.Format("2006-01-02 15:04:05"))
}

func formatOnlineAlert(deviceID string, now time.Time) string {
	return fmt.Sprintf("🟢 <b>Device Online</b>\n\nDevice: <b>%s</b> is back online\n\n🕐 %s",
		deviceID, now.Format("2006-01-02 15:04:05"))
}

func formatSystemAlert(emoji, name, value, severity string, now time.Time) string {
	marker := "⚠️"
	if severity == models.SeverityCritical {
		marker = "🚨"
	}
	return fmt.Sprintf("%s %s <b>%s %s</b>\n\n%s: %s\n\n🕐 %s",
		marker, emoji, name, strings.ToUpper(severity), name, value,
		now.Format("2006-01-02 15:04:05"))
}
