package server

import (
	"context"
	"fmt"
	"net/http"

	"HomeMonitorAPI/internal/config"
	"HomeMonitorAPI/internal/handler"
	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/middleware"
	"HomeMonitorAPI/internal/websocket"

	"github.com/gorilla/mux"
)

type Server struct {
	httpServer *http.Server
	router     *mux.Router
	log        *logger.Logger
}

type Handlers struct {
	Sensor   *handler.SensorHandler
	Telegram *handler.TelegramHandler
	System   *handler.SystemHandler
	Health   *handler.HealthHandler
}

func New(cfg *config.Config, handlers Handlers, hub *websocket.Hub, log *logger.Logger) *Server {
	router := mux.NewRouter()

	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(&cfg.Security))
	router.Use(middleware.RateLimit(&cfg.Security, log))

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", handlers.Health.Health).Methods(http.MethodGet)
	api.HandleFunc("/health/live", handlers.Health.Live).Methods(http.MethodGet)
	api.HandleFunc("/health/ready", handlers.Health.Ready).Methods(http.MethodGet)

	api.HandleFunc("/sensors/latest", handlers.Sensor.Latest).Methods(http.MethodGet)
	api.HandleFunc("/sensors/history", handlers.Sensor.History).Methods(http.MethodGet)
	api.HandleFunc("/sensors/realtime", handlers.Sensor.Realtime).Methods(http.MethodGet)
	api.HandleFunc("/devices", handlers.Sensor.Devices).Methods(http.MethodGet)
	api.HandleFunc("/devices/{device_id}/stats", handlers.Sensor.Stats).Methods(http.MethodGet)

	api.HandleFunc("/system/info", handlers.System.Info).Methods(http.MethodGet)

	api.HandleFunc("/telegram/status", handlers.Telegram.Status).Methods(http.MethodGet)
	api.HandleFunc("/telegram/config", handlers.Telegram.GetConfig).Methods(http.MethodGet)
	api.HandleFunc("/telegram/config", handlers.Telegram.SaveConfig).Methods(http.MethodPut)
	api.HandleFunc("/telegram/test", handlers.Telegram.Test).Methods(http.MethodPost)
	api.HandleFunc("/telegram/cooldowns", handlers.Telegram.ClearCooldowns).Methods(http.MethodDelete)
	api.HandleFunc("/telegram/bot", handlers.Telegram.BotInfo).Methods(http.MethodGet)

	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWS(hub, log, w, r)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:        router,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
		router: router,
		log:    log,
	}
}

// Start blocks serving HTTP until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
