package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"HomeMonitorAPI/internal/alerting"
	"HomeMonitorAPI/internal/config"
	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/notifier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, cfgPath string) (*ConfigWatcher, *alerting.Engine, *notifier.Telegram) {
	t.Helper()

	log, err := logger.New(logger.Config{Level: logger.ERROR})
	require.NoError(t, err)

	cache, err := alerting.NewCooldownCache(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	telegram := notifier.NewTelegram(log)
	settings := config.DefaultAlertSettings()
	engine := alerting.NewEngine(telegram, cache, &settings, log)

	return NewConfigWatcher(cfgPath, time.Minute, engine, telegram, log), engine, telegram
}

func TestReloadNowAppliesSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerting.json")
	watcher, engine, telegram := newTestWatcher(t, path)

	saved := config.DefaultAlertSettings()
	saved.Enabled = true
	saved.BotToken = "123:tok"
	saved.ChatID = "99"
	saved.CooldownMinutes = 7
	require.NoError(t, config.SaveAlertSettings(path, saved))

	require.NoError(t, watcher.ReloadNow())

	applied := engine.Settings()
	assert.True(t, applied.Enabled)
	assert.Equal(t, 7, applied.CooldownMinutes)
	assert.True(t, telegram.IsConfigured())
}

func TestReloadNowMissingFileAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	watcher, engine, telegram := newTestWatcher(t, path)

	require.NoError(t, watcher.ReloadNow())

	assert.False(t, engine.Settings().Enabled)
	assert.False(t, telegram.IsConfigured())
}

func TestReloadFailureKeepsPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerting.json")
	watcher, engine, _ := newTestWatcher(t, path)

	good := config.DefaultAlertSettings()
	good.Enabled = true
	good.BotToken = "123:tok"
	good.ChatID = "99"
	require.NoError(t, config.SaveAlertSettings(path, good))
	require.NoError(t, watcher.ReloadNow())

	// Corrupt the file; the reload fails and the old snapshot stays.
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	assert.Error(t, watcher.ReloadNow())

	assert.True(t, engine.Settings().Enabled)
	assert.Equal(t, "123:tok", engine.Settings().BotToken)
}
