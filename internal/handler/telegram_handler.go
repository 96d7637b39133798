package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"HomeMonitorAPI/internal/alerting"
	"HomeMonitorAPI/internal/config"
	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/models"
	"HomeMonitorAPI/internal/notifier"
	"HomeMonitorAPI/internal/service"
)

// TelegramHandler exposes the alerting configuration: inspect and edit
// thresholds, test the bot, and clear cooldowns.
type TelegramHandler struct {
	engine   *alerting.Engine
	telegram *notifier.Telegram
	cache    *alerting.CooldownCache
	watcher  *service.ConfigWatcher
	cfgPath  string
	log      *logger.Logger
}

func NewTelegramHandler(engine *alerting.Engine, telegram *notifier.Telegram, cache *alerting.CooldownCache, watcher *service.ConfigWatcher, cfgPath string, log *logger.Logger) *TelegramHandler {
	return &TelegramHandler{
		engine:   engine,
		telegram: telegram,
		cache:    cache,
		watcher:  watcher,
		cfgPath:  cfgPath,
		log:      log,
	}
}

// Status reports whether alerting can actually send right now.
func (h *TelegramHandler) Status(w http.ResponseWriter, r *http.Request) {
	s := h.engine.Settings()
	respondJSON(w, http.StatusOK, map[string]any{
		"enabled":          s.Enabled,
		"configured":       h.telegram.IsConfigured(),
		"cooldown_minutes": s.CooldownMinutes,
		"active_cooldowns": len(h.cache.Snapshot()),
	})
}

// GetConfig returns the current settings with the bot token masked.
func (h *TelegramHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	s := h.engine.Settings()
	respondJSON(w, http.StatusOK, map[string]any{
		"enabled":          s.Enabled,
		"bot_token":        notifier.MaskToken(s.BotToken),
		"chat_id":          s.ChatID,
		"cooldown_minutes": s.CooldownMinutes,
		"thresholds":       s.Thresholds,
	})
}

type saveConfigRequest struct {
	Enabled         bool               `json:"enabled"`
	BotToken        string             `json:"bot_token"`
	ChatID          string             `json:"chat_id"`
	CooldownMinutes int                `json:"cooldown_minutes"`
	Thresholds      *models.Thresholds `json:"thresholds"`
}

// SaveConfig writes new settings and applies them immediately. A blank
// bot token keeps the stored one, so the dashboard can round-trip the
// masked value without wiping the credential.
func (h *TelegramHandler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	var req saveConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	current := h.engine.Settings()

	settings := config.AlertSettings{
		Enabled:         req.Enabled,
		BotToken:        req.BotToken,
		ChatID:          req.ChatID,
		CooldownMinutes: req.CooldownMinutes,
		Thresholds:      current.Thresholds,
	}
	if settings.BotToken == "" {
		settings.BotToken = current.BotToken
	}
	if settings.CooldownMinutes < 1 {
		settings.CooldownMinutes = current.CooldownMinutes
	}
	if req.Thresholds != nil {
		settings.Thresholds = *req.Thresholds
	}

	if err := config.SaveAlertSettings(h.cfgPath, settings); err != nil {
		h.log.Error("Failed to save alerting config: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save config")
		return
	}

	if err := h.watcher.ReloadNow(); err != nil {
		h.log.Error("Failed to apply saved alerting config: %v", err)
		respondError(w, http.StatusInternalServerError, "saved but failed to apply config")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// Test sends a test message through the configured bot.
func (h *TelegramHandler) Test(w http.ResponseWriter, r *http.Request) {
	if !h.telegram.IsConfigured() {
		respondError(w, http.StatusBadRequest, "bot token and chat id must be configured first")
		return
	}

	text := fmt.Sprintf("✅ <b>Test Notification</b>\n\nHome Monitor alerting is working.\n\n🕐 %s",
		time.Now().Format("2006-01-02 15:04:05"))

	result, err := h.telegram.SendMessage(text)
	if err != nil {
		respondError(w, statusForNotifyError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "sent",
		"message_id": result.MessageID,
	})
}

// ClearCooldowns drops one cooldown key, or all of them when no key is
// given.
func (h *TelegramHandler) ClearCooldowns(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")

	var err error
	if key != "" {
		err = h.cache.Clear(key)
	} else {
		err = h.cache.ClearAll()
	}
	if err != nil {
		h.log.Error("Failed to clear cooldowns: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to clear cooldowns")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// BotInfo verifies the credentials by asking the Bot API who the bot is.
func (h *TelegramHandler) BotInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.telegram.GetMe()
	if err != nil {
		respondError(w, statusForNotifyError(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func statusForNotifyError(err error) int {
	var netErr *notifier.NetworkError
	if errors.As(err, &netErr) {
		return http.StatusBadGateway
	}
	var httpErr *notifier.HTTPError
	if errors.As(err, &httpErr) {
		return http.StatusBadGateway
	}
	return http.StatusUnprocessableEntity
}
