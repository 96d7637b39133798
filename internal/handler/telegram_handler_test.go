package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"HomeMonitorAPI/internal/alerting"
	"HomeMonitorAPI/internal/config"
	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/notifier"
	"HomeMonitorAPI/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTelegramHandler(t *testing.T) *TelegramHandler {
	t.Helper()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "alerting.json")

	log, err := logger.New(logger.Config{Level: logger.ERROR})
	require.NoError(t, err)

	cache, err := alerting.NewCooldownCache(filepath.Join(dir, "cache.json"))
	require.NoError(t, err)

	telegram := notifier.NewTelegram(log)
	settings := config.DefaultAlertSettings()
	engine := alerting.NewEngine(telegram, cache, &settings, log)
	watcher := service.NewConfigWatcher(cfgPath, time.Minute, engine, telegram, log)

	return NewTelegramHandler(engine, telegram, cache, watcher, cfgPath, log)
}

func TestGetConfigMasksToken(t *testing.T) {
	h := newTestTelegramHandler(t)

	saved := config.DefaultAlertSettings()
	saved.Enabled = true
	saved.BotToken = "1234567890abcdefghijklmnopqrstuvwxyz"
	saved.ChatID = "99"
	require.NoError(t, config.SaveAlertSettings(h.cfgPath, saved))
	require.NoError(t, h.watcher.ReloadNow())

	req := httptest.NewRequest(http.MethodGet, "/api/telegram/config", nil)
	rec := httptest.NewRecorder()
	h.GetConfig(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1234567890...vwxyz", resp["bot_token"])
}

func TestSaveConfigBlankTokenKeepsExisting(t *testing.T) {
	h := newTestTelegramHandler(t)

	initial := config.DefaultAlertSettings()
	initial.Enabled = true
	initial.BotToken = "original-token-value"
	initial.ChatID = "99"
	require.NoError(t, config.SaveAlertSettings(h.cfgPath, initial))
	require.NoError(t, h.watcher.ReloadNow())

	body := strings.NewReader(`{"enabled": true, "bot_token": "", "chat_id": "100", "cooldown_minutes": 3}`)
	req := httptest.NewRequest(http.MethodPut, "/api/telegram/config", body)
	rec := httptest.NewRecorder()
	h.SaveConfig(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	applied := h.engine.Settings()
	assert.Equal(t, "original-token-value", applied.BotToken)
	assert.Equal(t, "100", applied.ChatID)
	assert.Equal(t, 3, applied.CooldownMinutes)
}

func TestSaveConfigInvalidBody(t *testing.T) {
	h := newTestTelegramHandler(t)

	req := httptest.NewRequest(http.MethodPut, "/api/telegram/config", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	h.SaveConfig(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTestEndpointRequiresConfiguration(t *testing.T) {
	h := newTestTelegramHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/telegram/test", nil)
	rec := httptest.NewRecorder()
	h.Test(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearCooldowns(t *testing.T) {
	h := newTestTelegramHandler(t)

	now := time.Now()
	require.NoError(t, h.cache.MarkSent("sensor_dev1", now))
	require.NoError(t, h.cache.MarkSent("cpu_temp", now))

	req := httptest.NewRequest(http.MethodDelete, "/api/telegram/cooldowns?key=sensor_dev1", nil)
	rec := httptest.NewRecorder()
	h.ClearCooldowns(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, h.cache.Snapshot(), "sensor_dev1")
	assert.Contains(t, h.cache.Snapshot(), "cpu_temp")

	req = httptest.NewRequest(http.MethodDelete, "/api/telegram/cooldowns", nil)
	rec = httptest.NewRecorder()
	h.ClearCooldowns(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.cache.Snapshot())
}
