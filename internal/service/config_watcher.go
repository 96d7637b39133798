package service

import (
	"context"
	"os"
	"sync"
	"time"

	"HomeMonitorAPI/internal/alerting"
	"HomeMonitorAPI/internal/config"
	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/notifier"
)

// ConfigWatcher polls the alerting config file and swaps a fresh
// settings snapshot into the engine and notifier when the file changes.
// A file that fails to load leaves the previous snapshot in place.
type ConfigWatcher struct {
	path     string
	interval time.Duration
	engine   *alerting.Engine
	telegram *notifier.Telegram
	log      *logger.Logger

	mu      sync.Mutex
	lastMod time.Time
}

func NewConfigWatcher(path string, interval time.Duration, engine *alerting.Engine, telegram *notifier.Telegram, log *logger.Logger) *ConfigWatcher {
	return &ConfigWatcher{
		path:     path,
		interval: interval,
		engine:   engine,
		telegram: telegram,
		log:      log,
	}
}

// Start applies the config once, then polls until the context is
// cancelled.
func (w *ConfigWatcher) Start(ctx context.Context) {
	if err := w.ReloadNow(); err != nil {
		w.log.Error("Initial alerting config load failed: %v", err)
	}

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.log.Info("Alerting config watcher started (poll: %v)", w.interval)
		for {
			select {
			case <-ctx.Done():
				w.log.Info("Alerting config watcher stopped")
				return
			case <-ticker.C:
				w.poll()
			}
		}
	}()
}

func (w *ConfigWatcher) poll() {
	stat, err := os.Stat(w.path)
	if err != nil {
		// Missing file means defaults, which ReloadNow already applied.
		return
	}

	w.mu.Lock()
	changed := stat.ModTime().After(w.lastMod)
	w.mu.Unlock()

	if !changed {
		return
	}

	if err := w.ReloadNow(); err != nil {
		w.log.Error("Alerting config reload failed, keeping previous settings: %v", err)
	}
}

// ReloadNow loads the config file and applies it immediately. Called by
// the watcher loop and by the HTTP handler right after a config save, so
// edits take effect without waiting for the next poll.
func (w *ConfigWatcher) ReloadNow() error {
	settings, err := config.LoadAlertSettings(w.path)
	if err != nil {
		return err
	}

	if stat, statErr := os.Stat(w.path); statErr == nil {
		w.mu.Lock()
		w.lastMod = stat.ModTime()
		w.mu.Unlock()
	}

	w.engine.UpdateSettings(&settings)
	w.telegram.SetCredentials(settings.BotToken, settings.ChatID)

	state := "disabled"
	if settings.Enabled {
		state = "enabled"
	}
	w.log.Info("Alerting config applied (%s, cooldown: %dm)", state, settings.CooldownMinutes)
	return nil
}
