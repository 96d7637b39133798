package service

import (
	"context"
	"sync"
	"time"

	"HomeMonitorAPI/internal/alerting"
	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/models"
	"HomeMonitorAPI/internal/repository"
)

// LivenessService tracks each device's online/offline state. In-memory
// state starts empty on boot; the first event for a device establishes
// its state without alerting. Only an online-to-offline flip (or the
// reverse) produces a notification.
type LivenessService struct {
	statuses *repository.StatusRepository
	engine   *alerting.Engine
	log      *logger.Logger

	debounce     time.Duration
	offlineAfter time.Duration

	mu         sync.Mutex
	lastStatus map[string]string
	lastData   map[string]int64 // unix seconds of the last stored reading
}

func NewLivenessService(statuses *repository.StatusRepository, engine *alerting.Engine, debounce, offlineAfter time.Duration, log *logger.Logger) *LivenessService {
	return &LivenessService{
		statuses:     statuses,
		engine:       engine,
		log:          log,
		debounce:     debounce,
		offlineAfter: offlineAfter,
		lastStatus:   make(map[string]string),
		lastData:     make(map[string]int64),
	}
}

// RecordData marks a device online because a reading arrived. Repeated
// calls while online only refresh last_seen.
func (s *LivenessService) RecordData(ctx context.Context, deviceID string, now time.Time) error {
	s.mu.Lock()
	prev := s.lastStatus[deviceID]
	s.lastData[deviceID] = now.Unix()
	s.lastStatus[deviceID] = models.StatusOnline
	s.mu.Unlock()

	if err := s.statuses.Upsert(ctx, deviceID, models.StatusOnline, now.Unix()); err != nil {
		return err
	}

	if prev == models.StatusOffline {
		s.log.Info("Device %s is back online", deviceID)
		s.engine.EvaluateTransition(deviceID, prev, models.StatusOnline, now.Unix(), now)
	}
	return nil
}

// HandleStatus applies an explicit liveness signal from a status topic.
// An offline signal is ignored while fresh data is still flowing; a
// device that keeps publishing readings is not offline no matter what
// its last will says.
func (s *LivenessService) HandleStatus(ctx context.Context, deviceID, status string, now time.Time) error {
	switch status {
	case models.StatusOnline:
		return s.markOnline(ctx, deviceID, now)
	case models.StatusOffline:
		return s.markOffline(ctx, deviceID, now, true)
	default:
		s.log.Warn("Unknown status %q for device %s, ignoring", status, deviceID)
		return nil
	}
}

func (s *LivenessService) markOnline(ctx context.Context, deviceID string, now time.Time) error {
	s.mu.Lock()
	prev := s.lastStatus[deviceID]
	s.lastStatus[deviceID] = models.StatusOnline
	s.mu.Unlock()

	if err := s.statuses.Upsert(ctx, deviceID, models.StatusOnline, now.Unix()); err != nil {
		return err
	}

	if prev == models.StatusOffline {
		s.log.Info("Device %s is back online", deviceID)
		s.engine.EvaluateTransition(deviceID, prev, models.StatusOnline, now.Unix(), now)
	}
	return nil
}

func (s *LivenessService) markOffline(ctx context.Context, deviceID string, now time.Time, debounced bool) error {
	s.mu.Lock()
	prev := s.lastStatus[deviceID]
	last := s.lastData[deviceID]

	if debounced && last > 0 && now.Unix()-last < int64(s.debounce.Seconds()) {
		s.mu.Unlock()
		s.log.Debug("Offline signal for %s suppressed, data seen %ds ago", deviceID, now.Unix()-last)
		return nil
	}

	s.lastStatus[deviceID] = models.StatusOffline
	s.mu.Unlock()

	lastSeen := last
	if lastSeen == 0 {
		lastSeen = now.Unix()
	}

	if err := s.statuses.Upsert(ctx, deviceID, models.StatusOffline, lastSeen); err != nil {
		return err
	}

	if prev == models.StatusOnline {
		s.log.Warn("Device %s went offline", deviceID)
		s.engine.EvaluateTransition(deviceID, prev, models.StatusOffline, lastSeen, now)
	}
	return nil
}

// Status returns the tracked state for a device, or empty if unknown.
func (s *LivenessService) Status(deviceID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStatus[deviceID]
}

// Start runs the stale sweep loop until the context is cancelled. It is
// a no-op when the sweep interval is disabled.
func (s *LivenessService) Start(ctx context.Context) {
	if s.offlineAfter <= 0 {
		s.log.Debug("Stale device sweep disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(s.offlineAfter / 2)
		defer ticker.Stop()

		s.log.Info("Stale device sweep started (threshold: %v)", s.offlineAfter)
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Stale device sweep stopped")
				return
			case now := <-ticker.C:
				s.sweepStale(ctx, now)
			}
		}
	}()
}

// sweepStale marks devices offline whose last reading is older than the
// threshold. Silence past the threshold already satisfies the debounce.
func (s *LivenessService) sweepStale(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var stale []string
	for deviceID, last := range s.lastData {
		if s.lastStatus[deviceID] == models.StatusOnline && now.Unix()-last > int64(s.offlineAfter.Seconds()) {
			stale = append(stale, deviceID)
		}
	}
	s.mu.Unlock()

	for _, deviceID := range stale {
		if err := s.markOffline(ctx, deviceID, now, false); err != nil {
			s.log.Error("Failed to mark %s offline: %v", deviceID, err)
		}
	}
}
