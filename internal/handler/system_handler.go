package handler

import (
	"net/http"

	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/service"
)

type SystemHandler struct {
	system *service.SystemService
	log    *logger.Logger
}

func NewSystemHandler(system *service.SystemService, log *logger.Logger) *SystemHandler {
	return &SystemHandler{system: system, log: log}
}

// Info returns the gateway host snapshot for the dashboard system panel.
func (h *SystemHandler) Info(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.system.Info())
}
