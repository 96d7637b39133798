package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThermal(t *testing.T) {
	temp, err := parseThermal([]byte("48229\n"))
	require.NoError(t, err)
	assert.InDelta(t, 48.229, temp, 0.001)
}

func TestParseThermalGarbage(t *testing.T) {
	_, err := parseThermal([]byte("n/a"))
	assert.Error(t, err)
}

func TestParseMeminfo(t *testing.T) {
	data := []byte(`MemTotal:        3882924 kB
MemFree:          215160 kB
MemAvailable:    1941462 kB
Buffers:           85788 kB
SwapTotal:        102396 kB
SwapFree:          51198 kB
`)
	info, err := parseMeminfo(data)
	require.NoError(t, err)

	assert.Equal(t, int64(3882924), info.TotalKB)
	assert.Equal(t, int64(1941462), info.AvailableKB)
	assert.InDelta(t, 50.0, info.UsedPercent, 0.01)
	assert.InDelta(t, 50.0, info.SwapPercent, 0.01)
}

func TestParseMeminfoMissingFields(t *testing.T) {
	_, err := parseMeminfo([]byte("MemFree: 100 kB\n"))
	assert.Error(t, err)
}

func TestParseMeminfoNoSwap(t *testing.T) {
	data := []byte("MemTotal: 1000 kB\nMemAvailable: 400 kB\nSwapTotal: 0 kB\nSwapFree: 0 kB\n")
	info, err := parseMeminfo(data)
	require.NoError(t, err)
	assert.Zero(t, info.SwapPercent)
}

func TestParseUptime(t *testing.T) {
	secs, err := parseUptime([]byte("351735.26 1393762.44\n"))
	require.NoError(t, err)
	assert.InDelta(t, 351735.26, secs, 0.01)
}

func TestParseLoadAvg(t *testing.T) {
	load, err := parseLoadAvg([]byte("0.52 0.58 0.59 1/389 21341\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.52, 0.58, 0.59}, load)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "4d 1h 42m", formatUptime(351735))
	assert.Equal(t, "0h 5m", formatUptime(330))
}
