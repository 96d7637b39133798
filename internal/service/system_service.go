package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"HomeMonitorAPI/internal/alerting"
	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/models"
)

const (
	uptimePath  = "/proc/uptime"
	loadavgPath = "/proc/loadavg"
	cpufreqPath = "/sys/devices/system/cpu/cpu0/cpufreq/scaling_cur_freq"
)

// SystemService samples the gateway host itself (CPU temperature and
// memory pressure) and feeds the samples through the alert engine on a
// fixed interval.
type SystemService struct {
	thermalPath string
	meminfoPath string
	interval    time.Duration
	engine      *alerting.Engine
	log         *logger.Logger
}

func NewSystemService(thermalPath, meminfoPath string, interval time.Duration, engine *alerting.Engine, log *logger.Logger) *SystemService {
	return &SystemService{
		thermalPath: thermalPath,
		meminfoPath: meminfoPath,
		interval:    interval,
		engine:      engine,
		log:         log,
	}
}

// Start runs the sampling loop until the context is cancelled. Hosts
// without a thermal zone (non-Pi dev machines) just log at debug and
// keep going.
func (s *SystemService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.log.Info("System monitor started (interval: %v)", s.interval)
		for {
			select {
			case <-ctx.Done():
				s.log.Info("System monitor stopped")
				return
			case now := <-ticker.C:
				s.sample(now)
			}
		}
	}()
}

func (s *SystemService) sample(now time.Time) {
	if temp, err := s.CPUTemperature(); err != nil {
		s.log.Debug("CPU temperature unavailable: %v", err)
	} else {
		s.engine.EvaluateCPUTemperature(temp, now)
	}

	if mem, err := s.Memory(); err != nil {
		s.log.Debug("Memory info unavailable: %v", err)
	} else {
		s.engine.EvaluateRAMUsage(mem.UsedPercent, now)
	}
}

// CPUTemperature reads the SoC temperature in degrees Celsius.
func (s *SystemService) CPUTemperature() (float64, error) {
	data, err := os.ReadFile(s.thermalPath)
	if err != nil {
		return 0, err
	}
	return parseThermal(data)
}

type MemoryInfo struct {
	TotalKB     int64
	AvailableKB int64
	UsedPercent float64
	SwapTotalKB int64
	SwapFreeKB  int64
	SwapPercent float64
}

// Memory reads and summarizes /proc/meminfo.
func (s *SystemService) Memory() (*MemoryInfo, error) {
	data, err := os.ReadFile(s.meminfoPath)
	if err != nil {
		return nil, err
	}
	return parseMeminfo(data)
}

// Info assembles the dashboard system panel snapshot. Fields whose
// source files are missing are left at their zero value rather than
// failing the whole response.
func (s *SystemService) Info() *models.SystemInfo {
	info := &models.SystemInfo{
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
	}

	if temp, err := s.CPUTemperature(); err == nil {
		info.CPUTempC = temp
	}

	if mem, err := s.Memory(); err == nil {
		info.MemPercent = mem.UsedPercent
		info.MemAvailMB = mem.AvailableKB / 1024
		info.MemUsedMB = (mem.TotalKB - mem.AvailableKB) / 1024
		info.SwapPercent = mem.SwapPercent
	}

	if data, err := os.ReadFile(uptimePath); err == nil {
		if secs, err := parseUptime(data); err == nil {
			info.Uptime = formatUptime(secs)
		}
	}

	if data, err := os.ReadFile(loadavgPath); err == nil {
		if load, err := parseLoadAvg(data); err == nil {
			info.LoadAvg = load
		}
	}

	if data, err := os.ReadFile(cpufreqPath); err == nil {
		if khz, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64); err == nil {
			info.CPUFreqMHz = khz / 1000
		}
	}

	return info
}

// parseThermal converts the kernel's millidegree reading to Celsius.
func parseThermal(data []byte) (float64, error) {
	raw := strings.TrimSpace(string(data))
	milli, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected thermal zone content %q: %w", raw, err)
	}
	return milli / 1000, nil
}

func parseMeminfo(data []byte) (*MemoryInfo, error) {
	values := make(map[string]int64)
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		key := strings.TrimSuffix(fields[0], ":")
		if v, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
			values[key] = v
		}
	}

	total, ok := values["MemTotal"]
	if !ok || total == 0 {
		return nil, fmt.Errorf("meminfo missing MemTotal")
	}
	avail, ok := values["MemAvailable"]
	if !ok {
		return nil, fmt.Errorf("meminfo missing MemAvailable")
	}

	info := &MemoryInfo{
		TotalKB:     total,
		AvailableKB: avail,
		UsedPercent: float64(total-avail) / float64(total) * 100,
		SwapTotalKB: values["SwapTotal"],
		SwapFreeKB:  values["SwapFree"],
	}
	if info.SwapTotalKB > 0 {
		info.SwapPercent = float64(info.SwapTotalKB-info.SwapFreeKB) / float64(info.SwapTotalKB) * 100
	}
	return info, nil
}

func parseUptime(data []byte) (float64, error) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty uptime file")
	}
	return strconv.ParseFloat(fields[0], 64)
}

func parseLoadAvg(data []byte) ([]float64, error) {
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return nil, fmt.Errorf("unexpected loadavg content")
	}
	load := make([]float64, 3)
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		load[i] = v
	}
	return load, nil
}

func formatUptime(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
