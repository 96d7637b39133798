package handler

import (
	"net/http"
	"strconv"
	"time"

	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/models"
	"HomeMonitorAPI/internal/repository"

	"github.com/gorilla/mux"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
	onlineWindowSeconds = 30
	realtimeWindow      = 10 * time.Second
)

// periods maps the stats query periods to their span in seconds.
var periods = map[string]int64{
	"1h":  3600,
	"24h": 86400,
	"7d":  7 * 86400,
	"30d": 30 * 86400,
}

type SensorHandler struct {
	readings *repository.ReadingRepository
	statuses *repository.StatusRepository
	log      *logger.Logger
}

func NewSensorHandler(readings *repository.ReadingRepository, statuses *repository.StatusRepository, log *logger.Logger) *SensorHandler {
	return &SensorHandler{
		readings: readings,
		statuses: statuses,
		log:      log,
	}
}

// Latest returns the most recent reading per device, or for one device
// when a device_id query parameter is present.
func (h *SensorHandler) Latest(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")

	if deviceID != "" {
		reading, err := h.readings.Latest(r.Context(), deviceID)
		if err != nil {
			h.log.Error("Latest reading query failed: %v", err)
			respondError(w, http.StatusInternalServerError, "failed to query readings")
			return
		}
		if reading == nil {
			respondError(w, http.StatusNotFound, "no readings for device")
			return
		}
		respondJSON(w, http.StatusOK, reading)
		return
	}

	readings, err := h.readings.LatestAll(r.Context())
	if err != nil {
		h.log.Error("Latest readings query failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query readings")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count": len(readings),
		"data":  readings,
	})
}

// History returns retained readings for one device, newest first.
func (h *SensorHandler) History(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		respondError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	q := models.HistoryQuery{
		DeviceID: deviceID,
		Limit:    queryInt(r, "limit", defaultHistoryLimit),
		Offset:   queryInt(r, "offset", 0),
		Since:    int64(queryInt(r, "since", 0)),
	}
	if q.Limit < 1 {
		q.Limit = defaultHistoryLimit
	}
	if q.Limit > maxHistoryLimit {
		q.Limit = maxHistoryLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	readings, err := h.readings.History(r.Context(), q)
	if err != nil {
		h.log.Error("History query failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query history")
		return
	}

	respondJSON(w, http.StatusOK, models.HistoryResponse{
		Count:  len(readings),
		Limit:  q.Limit,
		Offset: q.Offset,
		Data:   readings,
	})
}

// Devices lists every known device with liveness and aggregates. A
// device counts as online when its status row was refreshed within the
// last 30 seconds.
func (h *SensorHandler) Devices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.statuses.ListDevices(r.Context(), time.Now().Unix(), onlineWindowSeconds)
	if err != nil {
		h.log.Error("Devices query failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query devices")
		return
	}

	online := 0
	for _, d := range devices {
		if d.IsOnline {
			online++
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":  len(devices),
		"online": online,
		"data":   devices,
	})
}

// Stats aggregates one device's readings over a named period.
func (h *SensorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "24h"
	}
	span, ok := periods[period]
	if !ok {
		respondError(w, http.StatusBadRequest, "period must be one of 1h, 24h, 7d, 30d")
		return
	}

	stats, err := h.readings.Stats(r.Context(), deviceID, time.Now().Unix()-span)
	if err != nil {
		h.log.Error("Stats query failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query stats")
		return
	}

	stats.Period = period
	respondJSON(w, http.StatusOK, stats)
}

// Realtime returns readings received in the last ten seconds, for
// dashboards that poll instead of using the websocket feed.
func (h *SensorHandler) Realtime(w http.ResponseWriter, r *http.Request) {
	since := time.Now().Add(-realtimeWindow).Unix()

	readings, err := h.readings.Realtime(r.Context(), since)
	if err != nil {
		h.log.Error("Realtime query failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query readings")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count": len(readings),
		"since": since,
		"data":  readings,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
