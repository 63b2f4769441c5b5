// BSEC-Conduit - BME680 Sensor-Fusion Supervisor
//
// This is the main entry point for the BSEC-Conduit daemon. It prepares the
// Bosch BSEC integration binary for the host platform (build cache, vendor
// config, calibration state), supervises it as a child process, and fans each
// fused reading out to MQTT, InfluxDB and the local SQLite history.
//
// Restart-on-failure is left to the process manager (systemd); a dead child
// ends the run with a non-zero exit.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/graysense/bsec-conduit/migrations"

	"github.com/graysense/bsec-conduit/internal/bsec"
	_ "github.com/graysense/bsec-conduit/internal/bsec/glue"
	"github.com/graysense/bsec-conduit/internal/history"
	"github.com/graysense/bsec-conduit/internal/infrastructure/config"
	"github.com/graysense/bsec-conduit/internal/infrastructure/database"
	"github.com/graysense/bsec-conduit/internal/infrastructure/influxdb"
	"github.com/graysense/bsec-conduit/internal/infrastructure/logging"
	"github.com/graysense/bsec-conduit/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence plus the record loop
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting BSEC-Conduit",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Validate the sensor parameters before touching the filesystem
	device, err := bsec.NewDeviceConfig(
		cfg.Sensor.I2CAddress,
		cfg.Sensor.TempOffset,
		cfg.Sensor.SampleRate,
		cfg.Sensor.Voltage,
		cfg.Sensor.RetainState,
	)
	if err != nil {
		return fmt.Errorf("validating sensor config: %w", err)
	}
	log.Info("sensor configured",
		"sensor_id", cfg.Sensor.ID,
		"config_string", device.ConfigString(),
		"i2c_address", fmt.Sprintf("0x%x", device.I2CAddress()),
	)

	// Detect the platform, build (or reuse) the executable, install the
	// vendor config blob and ensure the calibration state file exists
	artifacts, err := bsec.ResolveArtifacts(ctx, device, cfg.Sensor.BaseDir, bsec.WithLogger(log))
	if err != nil {
		return fmt.Errorf("preparing sensor artifacts: %w", err)
	}
	log.Info("sensor artifacts ready",
		"executable", artifacts.Executable,
		"config", artifacts.Config,
		"state", artifacts.State,
	)

	// Open database
	db, err := database.Open(database.Config{
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	historyRepo := history.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
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
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Start the BSEC child process
	sup := bsec.NewSupervisor(device, artifacts)
	sup.SetLogger(log)
	if err := sup.Open(); err != nil {
		return fmt.Errorf("starting sensor process: %w", err)
	}
	defer func() {
		log.Info("stopping sensor process")
		if closeErr := sup.Close(); closeErr != nil {
			log.Error("error stopping sensor process", "error", closeErr)
		}
	}()

	publishSensorStatus(mqttClient, cfg, "running", log)
	defer publishSensorStatus(mqttClient, cfg, "stopped", log)

	log.Info("initialisation complete, streaming measurements")

	// Prune the local history periodically; retention_days: 0 disables it
	pruneTicker := time.NewTicker(cfg.GetPruneInterval())
	defer pruneTicker.Stop()

	records := sup.Records()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received, cleaning up")
			// Deferred calls stop the child, publish the stopped status
			// and close InfluxDB, MQTT and the database in reverse order
			return nil

		case m, ok := <-records:
			if !ok {
				if streamErr := sup.Err(); streamErr != nil {
					return fmt.Errorf("sensor process: %w", streamErr)
				}
				log.Info("sensor process exited cleanly")
				return nil
			}
			handleMeasurement(ctx, cfg, m, mqttClient, influxClient, historyRepo, log)

		case <-pruneTicker.C:
			pruneHistory(ctx, cfg, historyRepo, log)
		}
	}
}

// handleMeasurement fans one fused reading out to MQTT, InfluxDB and the
// local history. Sink failures are logged, never fatal - a flaky broker must
// not take the sensor stream down.
func handleMeasurement(
	ctx context.Context,
	cfg *config.Config,
	m bsec.Measurement,
	mqttClient *mqtt.Client,
	influxClient *influxdb.Client,
	historyRepo history.Repository,
	log *logging.Logger,
) {
	log.Debug("measurement received",
		"iaq", m.IAQ,
		"iaq_accuracy", m.IAQAccuracy,
		"temperature_c", m.Temperature,
		"humidity_pct", m.Humidity,
		"pressure_hpa", m.Pressure,
		"gas_ohms", m.GasResistance,
	)

	if mqttClient != nil {
		payload, err := json.Marshal(m)
		if err != nil {
			log.Error("encoding measurement", "error", err)
		} else {
			topic := mqtt.Topics{}.Measurement(cfg.Sensor.ID)
			if err := mqttClient.Publish(topic, payload, byte(cfg.MQTT.QoS), true); err != nil {
				log.Warn("publishing measurement", "topic", topic, "error", err)
			}
		}
	}

	if influxClient != nil {
		influxClient.WriteAirQuality(influxdb.AirQualitySample{
			SensorID:     cfg.Sensor.ID,
			IAQ:          m.IAQ,
			IAQAccuracy:  m.IAQAccuracy,
			TemperatureC: m.Temperature,
			HumidityPct:  m.Humidity,
			PressureHPa:  m.Pressure,
			GasOhms:      m.GasResistance,
		})
	}

	entry := &history.Entry{
		SensorID:     cfg.Sensor.ID,
		IAQ:          m.IAQ,
		IAQAccuracy:  m.IAQAccuracy,
		TemperatureC: m.Temperature,
		HumidityPct:  m.Humidity,
		PressureHPa:  m.Pressure,
		GasOhms:      m.GasResistance,
	}
	if err := historyRepo.Record(ctx, entry); err != nil {
		log.Error("recording measurement", "error", err)
	}
}

// pruneHistory deletes measurements older than the configured retention.
func pruneHistory(ctx context.Context, cfg *config.Config, historyRepo history.Repository, log *logging.Logger) {
	if cfg.History.RetentionDays <= 0 {
		return
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -cfg.History.RetentionDays)
	deleted, err := historyRepo.Prune(ctx, cutoff)
	if err != nil {
		log.Error("pruning measurement history", "error", err)
		return
	}
	if deleted > 0 {
		log.Info("pruned measurement history", "deleted", deleted, "cutoff", cutoff)
	}
}

// publishSensorStatus publishes a retained per-sensor status message.
// The daemon-level online/offline status (including the LWT) is handled by
// the MQTT client itself on the system status topic.
func publishSensorStatus(mqttClient *mqtt.Client, cfg *config.Config, status string, log *logging.Logger) {
	if mqttClient == nil {
		return
	}
	topic := mqtt.Topics{}.SensorStatus(cfg.Sensor.ID)
	payload := fmt.Sprintf(
		`{"status":"%s","sensor_id":"%s","timestamp":"%s"}`,
		status, cfg.Sensor.ID, time.Now().UTC().Format(time.RFC3339),
	)
	if err := mqttClient.PublishString(topic, payload, byte(cfg.MQTT.QoS), true); err != nil {
		log.Warn("publishing sensor status", "topic", topic, "status", status, "error", err)
	}
}

// getConfigPath returns the configuration file path.
// Uses BSEC_CONDUIT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BSEC_CONDUIT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
