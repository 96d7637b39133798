package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"HomeMonitorAPI/internal/models"
)

// AlertSettings are the live-reloadable alerting parameters, kept in a JSON
// file next to the database so the dashboard can edit them at runtime. The
// file is polled by the config watcher; each load produces a fresh value
// that is swapped into the alert engine wholesale.
type AlertSettings struct {
	Enabled         bool              `json:"enabled"`
	BotToken        string            `json:"bot_token"`
	ChatID          string            `json:"chat_id"`
	CooldownMinutes int               `json:"cooldown_minutes"`
	Thresholds      models.Thresholds `json:"thresholds"`
}

// DefaultAlertSettings returns the settings used when no config file exists:
// notifications disabled, factory thresholds, 5 minute cooldown.
func DefaultAlertSettings() AlertSettings {
	return AlertSettings{
		Enabled:         false,
		CooldownMinutes: 5,
		Thresholds:      models.DefaultThresholds(),
	}
}

// LoadAlertSettings reads the alerting config file. A missing file is not an
// error; it yields the defaults. Keys absent from the file keep their
// default values because decoding happens over a default-initialized value.
func LoadAlertSettings(path string) (AlertSettings, error) {
	settings := DefaultAlertSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read alert settings: %w", err)
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		return DefaultAlertSettings(), fmt.Errorf("failed to parse alert settings: %w", err)
	}

	if settings.CooldownMinutes < 1 {
		settings.CooldownMinutes = 1
	}

	return settings, nil
}

// SaveAlertSettings writes the settings atomically (temp file then rename)
// so the poller never observes a half-written file.
func SaveAlertSettings(path string, settings AlertSettings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal alert settings: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write alert settings: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace alert settings: %w", err)
	}

	return nil
}

// CooldownSeconds converts the configured cooldown to seconds.
func (s AlertSettings) CooldownSeconds() int64 {
	return int64(s.CooldownMinutes) * 60
}

// IsConfigured reports whether the notifier can actually send: enabled with
// both credentials present.
func (s AlertSettings) IsConfigured() bool {
	return s.Enabled && s.BotToken != "" && s.ChatID != ""
}
