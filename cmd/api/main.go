package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"HomeMonitorAPI/internal/alerting"
	"HomeMonitorAPI/internal/config"
	"HomeMonitorAPI/internal/database"
	"HomeMonitorAPI/internal/handler"
	"HomeMonitorAPI/internal/logger"
	"HomeMonitorAPI/internal/mqtt"
	"HomeMonitorAPI/internal/notifier"
	"HomeMonitorAPI/internal/repository"
	"HomeMonitorAPI/internal/server"
	"HomeMonitorAPI/internal/service"
	"HomeMonitorAPI/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		LogFilePath: cfg.Logging.FilePath,
		UseColors:   cfg.Logging.UseColors,
	})
	if err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: %v", err)
	}
	cfg.Print()

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal("Failed to run migrations: %v", err)
	}
	log.Info("Database ready (%s)", db.Driver())

	readings := repository.NewReadingRepository(db.DB)
	statuses := repository.NewStatusRepository(db.DB)

	cache, err := alerting.NewCooldownCache(cfg.Monitor.CooldownCachePath)
	if err != nil {
		log.Fatal("Failed to open cooldown cache: %v", err)
	}

	telegram := notifier.NewTelegram(log)

	settings := config.DefaultAlertSettings()
	engine := alerting.NewEngine(telegram, cache, &settings, log)

	hub := websocket.NewHub(log)
	go hub.Run()

	engine.OnAlert(func(key, text string) {
		hub.BroadcastEvent("alert", map[string]string{"key": key, "text": text})
	})

	watcher := service.NewConfigWatcher(cfg.Monitor.AlertConfigPath, cfg.Monitor.ConfigPollInterval, engine, telegram, log)
	watcher.Start(ctx)

	liveness := service.NewLivenessService(statuses, engine, cfg.Monitor.OfflineDebounce, cfg.Monitor.OfflineAfter, log)
	liveness.Start(ctx)

	telemetry := service.NewTelemetryService(readings, liveness, engine, hub, cfg.Monitor.RetentionMaxRecords, log)

	system := service.NewSystemService(cfg.Monitor.ThermalZonePath, cfg.Monitor.MeminfoPath, cfg.Monitor.SystemInterval, engine, log)
	system.Start(ctx)

	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		MQTT:   &cfg.MQTT,
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to create MQTT client: %v", err)
	}

	if err := mqttClient.Connect(); err != nil {
		log.Fatal("Failed to connect to MQTT broker: %v", err)
	}

	if err := mqttClient.Subscribe(cfg.MQTT.SensorTopic, telemetry.ProcessMessage); err != nil {
		log.Fatal("Failed to subscribe to %s: %v", cfg.MQTT.SensorTopic, err)
	}

	srv := server.New(cfg, server.Handlers{
		Sensor:   handler.NewSensorHandler(readings, statuses, log),
		Telegram: handler.NewTelegramHandler(engine, telegram, cache, watcher, cfg.Monitor.AlertConfigPath, log),
		System:   handler.NewSystemHandler(system, log),
		Health:   handler.NewHealthHandler(db, mqttClient, hub, log),
	}, hub, log)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("Received signal %v, shutting down", sig)
	case err := <-serverErr:
		if err != nil {
			log.Error("HTTP server error: %v", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error: %v", err)
	}

	if err := mqttClient.Disconnect(); err != nil {
		log.Error("MQTT disconnect error: %v", err)
	}

	log.Info("Shutdown complete")
}
