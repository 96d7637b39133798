package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"HomeMonitorAPI/internal/alerting"
	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/models"
	"HomeMonitorAPI/internal/repository"
)

// Broadcaster pushes pipeline events to connected dashboard clients.
type Broadcaster interface {
	BroadcastEvent(event string, payload any)
}

// TelemetryService is the ingestion pipeline: decode, validate, store,
// trim, liveness, alerts, broadcast. One bad message never takes the
// subscriber down; decode and store failures are logged and the message
// is dropped.
type TelemetryService struct {
	readings   *repository.ReadingRepository
	liveness   *LivenessService
	engine     *alerting.Engine
	hub        Broadcaster
	log        *logger.Logger
	maxRecords int
}

func NewTelemetryService(readings *repository.ReadingRepository, liveness *LivenessService, engine *alerting.Engine, hub Broadcaster, maxRecords int, log *logger.Logger) *TelemetryService {
	return &TelemetryService{
		readings:   readings,
		liveness:   liveness,
		engine:     engine,
		hub:        hub,
		log:        log,
		maxRecords: maxRecords,
	}
}

// ProcessMessage is the MQTT message entry point. Topics with a /status
// segment carry liveness signals; everything else is a sensor payload.
func (s *TelemetryService) ProcessMessage(topic string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if strings.Contains(topic, "/status") {
		s.processStatus(ctx, topic, payload)
		return
	}
	s.processReading(ctx, topic, payload)
}

func (s *TelemetryService) processReading(ctx context.Context, topic string, payload []byte) {
	msg, err := decodeSensorMessage(payload)
	if err != nil {
		s.log.Warn("Dropping message on %s: %v", topic, err)
		return
	}

	now := time.Now()
	reading := &models.Reading{
		DeviceID:        msg.DeviceID,
		Temperature:     msg.Temperature,
		Humidity:        msg.Humidity,
		BatteryLevel:    msg.BatteryLevel,
		RSSI:            msg.RSSI,
		DeviceTimestamp: msg.Timestamp,
		ReceivedAt:      now.Unix(),
	}

	if err := s.readings.Insert(ctx, reading); err != nil {
		s.log.Error("Failed to store reading from %s: %v", msg.DeviceID, err)
		return
	}

	if trimmed, err := s.readings.Trim(ctx, s.maxRecords); err != nil {
		s.log.Error("Retention trim failed: %v", err)
	} else if trimmed > 0 {
		s.log.Debug("Retention trim removed %d rows", trimmed)
	}

	if err := s.liveness.RecordData(ctx, msg.DeviceID, now); err != nil {
		s.log.Error("Failed to update status for %s: %v", msg.DeviceID, err)
	}

	s.engine.EvaluateReading(reading, now)

	if s.hub != nil {
		s.hub.BroadcastEvent("reading", reading)
	}

	s.log.Debug("Stored reading from %s (temp: %v, humidity: %v)",
		msg.DeviceID, deref(msg.Temperature), deref(msg.Humidity))
}

func (s *TelemetryService) processStatus(ctx context.Context, topic string, payload []byte) {
	var msg models.StatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.log.Warn("Dropping status message on %s: %v", topic, err)
		return
	}
	if msg.DeviceID == "" || msg.Status == "" {
		s.log.Warn("Dropping status message on %s: missing device_id or status", topic)
		return
	}

	now := time.Now()
	if err := s.liveness.HandleStatus(ctx, msg.DeviceID, msg.Status, now); err != nil {
		s.log.Error("Failed to apply status for %s: %v", msg.DeviceID, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent("status", map[string]any{
			"device_id": msg.DeviceID,
			"status":    s.liveness.Status(msg.DeviceID),
			"timestamp": now.Unix(),
		})
	}
}

// decodeSensorMessage parses and validates a sensor payload. A device id
// plus both temperature and humidity are mandatory; battery, rssi and
// the device timestamp are optional.
func decodeSensorMessage(payload []byte) (*models.SensorMessage, error) {
	var msg models.SensorMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if msg.DeviceID == "" {
		return nil, fmt.Errorf("missing required field: device_id")
	}
	if msg.Temperature == nil {
		return nil, fmt.Errorf("missing required field: temperature")
	}
	if msg.Humidity == nil {
		return nil, fmt.Errorf("missing required field: humidity")
	}

	return &msg, nil
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
