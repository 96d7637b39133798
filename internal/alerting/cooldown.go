package alerting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CooldownCache remembers when each alert key last produced a successful
// notification. The map is mirrored to a JSON file so cooldowns survive
// restarts.
type CooldownCache struct {
	mu       sync.Mutex
	path     string
	lastSent map[string]int64
}

func NewCooldownCache(path string) (*CooldownCache, error) {
	c := &CooldownCache{
		path:     path,
		lastSent: make(map[string]int64),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read cooldown cache: %w", err)
	}

	// A corrupt cache file is not fatal; start empty.
	if err := json.Unmarshal(data, &c.lastSent); err != nil {
		c.lastSent = make(map[string]int64)
	}

	return c, nil
}

// ShouldSend reports whether the cooldown window for key has elapsed.
// Keys never sent before always pass.
func (c *CooldownCache) ShouldSend(key string, cooldown time.Duration, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.lastSent[key]
	if !ok {
		return true
	}
	return now.Unix()-last >= int64(cooldown.Seconds())
}

// MarkSent records a successful send for key and persists the cache.
// Call only after the notification actually went out.
func (c *CooldownCache) MarkSent(key string, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSent[key] = now.Unix()
	return c.persistLocked()
}

// Clear removes a single key, re-arming its alert immediately.
func (c *CooldownCache) Clear(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lastSent[key]; !ok {
		return nil
	}
	delete(c.lastSent, key)
	return c.persistLocked()
}

// ClearAll drops every recorded cooldown.
func (c *CooldownCache) ClearAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSent = make(map[string]int64)
	return c.persistLocked()
}

// Snapshot returns a copy of the current cooldown timestamps.
func (c *CooldownCache) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int64, len(c.lastSent))
	for k, v := range c.lastSent {
		out[k] = v
	}
	return out
}

func (c *CooldownCache) persistLocked() error {
	data, err := json.MarshalIndent(c.lastSent, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cooldown cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cooldown cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace cooldown cache: %w", err)
	}
	return nil
}
