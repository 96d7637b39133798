package handler

import (
	"net/http"
	"time"

	"HomeMonitorAPI/internal/database"
	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/mqtt"
	"HomeMonitorAPI/internal/websocket"
)

type HealthHandler struct {
	db   *database.Database
	mqtt *mqtt.Client
	hub  *websocket.Hub
	log  *logger.Logger
}

type healthResponse struct {
	Status           string            `json:"status"`
	Timestamp        time.Time         `json:"timestamp"`
	Database         bool              `json:"database"`
	MQTT             mqtt.HealthStatus `json:"mqtt"`
	WebsocketClients int               `json:"websocket_clients"`
}

func NewHealthHandler(db *database.Database, mqttClient *mqtt.Client, hub *websocket.Hub, log *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, mqtt: mqttClient, hub: hub, log: log}
}

// Health reports service readiness. Degraded dependencies turn the
// overall status to "degraded" but still answer 200 so load balancers
// see the process is alive.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:           "ok",
		Timestamp:        time.Now(),
		Database:         h.db.Health(r.Context()) == nil,
		MQTT:             h.mqtt.Health(),
		WebsocketClients: h.hub.ClientCount(),
	}

	if !resp.Database || !resp.MQTT.Connected {
		resp.Status = "degraded"
	}

	respondJSON(w, http.StatusOK, resp)
}

// Live answers as long as the process is serving requests.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Ready answers 200 only when both the database and the broker
// connection are usable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Health(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if !h.mqtt.IsConnected() {
		respondError(w, http.StatusServiceUnavailable, "mqtt disconnected")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
