package alerting

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldownCacheUnknownKeyAlwaysSends(t *testing.T) {
	cache, err := NewCooldownCache(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	assert.True(t, cache.ShouldSend("never_sent", 5*time.Minute, time.Now()))
}

func TestCooldownCacheWindowBoundary(t *testing.T) {
	cache, err := NewCooldownCache(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, cache.MarkSent("key", now))

	assert.False(t, cache.ShouldSend("key", 5*time.Minute, now.Add(299*time.Second)))
	// Exactly at the window edge counts as elapsed.
	assert.True(t, cache.ShouldSend("key", 5*time.Minute, now.Add(300*time.Second)))
}

func TestCooldownCacheSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	cache, err := NewCooldownCache(path)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, cache.MarkSent("sensor_dev1", now))

	reopened, err := NewCooldownCache(path)
	require.NoError(t, err)

	assert.False(t, reopened.ShouldSend("sensor_dev1", 5*time.Minute, now.Add(time.Minute)))
}

func TestCooldownCacheClear(t *testing.T) {
	cache, err := NewCooldownCache(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, cache.MarkSent("a", now))
	require.NoError(t, cache.MarkSent("b", now))

	require.NoError(t, cache.Clear("a"))
	assert.True(t, cache.ShouldSend("a", time.Hour, now))
	assert.False(t, cache.ShouldSend("b", time.Hour, now))

	require.NoError(t, cache.ClearAll())
	assert.True(t, cache.ShouldSend("b", time.Hour, now))
}

func TestCooldownCacheCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	cache, err := NewCooldownCache(path)
	require.NoError(t, err)

	assert.Empty(t, cache.Snapshot())
}
