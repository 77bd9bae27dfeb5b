package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/vistecsol/ha-midea-ac/migrations"

	"github.com/vistecsol/ha-midea-ac/internal/api"
	"github.com/vistecsol/ha-midea-ac/internal/bridges/midea"
	"github.com/vistecsol/ha-midea-ac/internal/device"
	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/config"
	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/database"
	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/influxdb"
	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/logging"
	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/mqtt"
	"github.com/vistecsol/ha-midea-ac/internal/mideacloud"
)

// run is the serve command, separated from cobra for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting midea bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	deviceRegistry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	deviceRegistry.SetLogger(log)
	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.GetDeviceCount())

	stateHistory := device.NewSQLiteStateHistoryRepository(db.DB)

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	var telemetry midea.TelemetryWriter
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		telemetry = &influxTelemetryAdapter{client: influxClient}
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	fleet, err := simulatedFleet(cfg.Midea.Simulator)
	if err != nil {
		return fmt.Errorf("loading simulator fleet: %w", err)
	}

	cloud, err := mideacloud.Open(ctx, mideacloud.Config{
		Driver: cfg.Midea.Driver,
		Credentials: mideacloud.Credentials{
			AppKey:   cfg.Midea.AppKey,
			Username: cfg.Midea.Username,
			Password: cfg.Midea.Password,
		},
		Fleet: fleet,
	})
	if err != nil {
		return fmt.Errorf("opening midea cloud session: %w", err)
	}
	defer func() {
		if closeErr := cloud.Close(); closeErr != nil {
			log.Error("error closing midea cloud session", "error", closeErr)
		}
	}()
	log.Info("midea cloud session opened", "driver", cfg.Midea.Driver, "account", cfg.Midea.Username)

	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	climateMetrics := midea.NewMetricsCollector(nil)

	bridge, err := midea.NewBridge(midea.BridgeOptions{
		Climate: midea.ClimateConfig{
			TempStep:          cfg.Midea.TempStep,
			IncludeOffAsState: cfg.Midea.IncludeOffAsState,
		},
		HealthInterval: cfg.GetHealthInterval(),
		Version:        version,
		Cloud:          cloud,
		MQTTClient:     &mqttBridgeAdapter{client: mqttClient},
		Registry:       &registryAdapter{registry: deviceRegistry},
		History:        &historyAdapter{repo: stateHistory},
		Telemetry:      telemetry,
		Broadcaster:    hub,
		Metrics:        climateMetrics,
		Logger:         log.With("component", "midea"),
	})
	if err != nil {
		return fmt.Errorf("creating midea bridge: %w", err)
	}
	metricsRegistry.MustRegister(climateMetrics)

	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting midea bridge: %w", err)
	}
	defer func() {
		log.Info("stopping midea bridge")
		bridge.Stop()
	}()
	log.Info("midea bridge started", "climates", len(bridge.Climates()))

	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Logger:   log,
			Climates: bridge,
			History:  stateHistory,
			Metrics:  metricsRegistry,
			Hub:      hub,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse: API, bridge, cloud, InfluxDB, MQTT, database.
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when InfluxDB is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
