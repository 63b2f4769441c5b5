package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for BSEC-Conduit.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Sensor   SensorConfig   `yaml:"sensor"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Database DatabaseConfig `yaml:"database"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SensorConfig contains BME680 tuning parameters and the working directory
// for build, config and calibration-state artifacts.
type SensorConfig struct {
	// ID labels this sensor in MQTT topics and time-series tags.
	ID string `yaml:"id"`

	// BaseDir is the working directory holding the vendor source tree and
	// the generated artifacts.
	BaseDir string `yaml:"base_dir"`

	// I2CAddress is the bus address the sensor is strapped to (0x76 or 0x77).
	I2CAddress int `yaml:"i2c_address"`

	// TempOffset compensates for self-heating, in degrees Celsius (-10 to 10).
	TempOffset float64 `yaml:"temp_offset"`

	// SampleRate is the sample interval in seconds: 3 (LP) or 300 (ULP).
	SampleRate int `yaml:"sample_rate"`

	// Voltage is the sensor supply voltage: 1.8 or 3.3.
	Voltage float64 `yaml:"voltage"`

	// RetainState is the calibration retention period in days: 4 or 28.
	RetainState int `yaml:"retain_state"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DatabaseConfig contains SQLite database settings for the local
// measurement history.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// HistoryConfig contains retention settings for the local measurement history.
type HistoryConfig struct {
	// RetentionDays is how long measurements are kept before pruning.
	// 0 disables pruning.
	RetentionDays int `yaml:"retention_days"`

	// PruneInterval is how often the prune job runs, in minutes.
	PruneInterval int `yaml:"prune_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BSEC_CONDUIT_SECTION_KEY
// For example: BSEC_CONDUIT_SENSOR_BASE_DIR, BSEC_CONDUIT_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Sensor: SensorConfig{
			ID:          "bme680",
			BaseDir:     "/opt/bsec-conduit",
			I2CAddress:  0x76,
			TempOffset:  0,
			SampleRate:  300,
			Voltage:     3.3,
			RetainState: 4,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "bsec-conduit",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/bsec-conduit.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		History: HistoryConfig{
			RetentionDays: 90,
			PruneInterval: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BSEC_CONDUIT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Sensor
	if v := os.Getenv("BSEC_CONDUIT_SENSOR_BASE_DIR"); v != "" {
		cfg.Sensor.BaseDir = v
	}
	if v := os.Getenv("BSEC_CONDUIT_SENSOR_I2C_ADDRESS"); v != "" {
		if addr, err := strconv.ParseInt(v, 0, 32); err == nil {
			cfg.Sensor.I2CAddress = int(addr)
		}
	}

	// Database
	if v := os.Getenv("BSEC_CONDUIT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("BSEC_CONDUIT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BSEC_CONDUIT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BSEC_CONDUIT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("BSEC_CONDUIT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Sensor parameter validation here is a fast first pass over the same
// enumerations the bsec package enforces at construction time; failing at
// config load gives the operator a message tied to the YAML key.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Sensor validation
	if c.Sensor.ID == "" {
		errs = append(errs, "sensor.id is required")
	}
	if c.Sensor.BaseDir == "" {
		errs = append(errs, "sensor.base_dir is required")
	}
	if c.Sensor.I2CAddress != 0x76 && c.Sensor.I2CAddress != 0x77 {
		errs = append(errs, "sensor.i2c_address must be 0x76 or 0x77")
	}
	if c.Sensor.TempOffset < -10 || c.Sensor.TempOffset > 10 {
		errs = append(errs, "sensor.temp_offset must be between -10.0 and 10.0")
	}
	if c.Sensor.SampleRate != 3 && c.Sensor.SampleRate != 300 {
		errs = append(errs, "sensor.sample_rate must be 3 or 300")
	}
	if c.Sensor.Voltage != 1.8 && c.Sensor.Voltage != 3.3 {
		errs = append(errs, "sensor.voltage must be 1.8 or 3.3")
	}
	if c.Sensor.RetainState != 4 && c.Sensor.RetainState != 28 {
		errs = append(errs, "sensor.retain_state must be 4 or 28")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set BSEC_CONDUIT_INFLUXDB_TOKEN environment variable)")
		}
	}

	// History validation
	if c.History.RetentionDays < 0 {
		errs = append(errs, "history.retention_days must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetBusyTimeout returns the SQLite busy timeout as a Duration.
func (c *Config) GetBusyTimeout() time.Duration {
	return time.Duration(c.Database.BusyTimeout) * time.Second
}

// GetPruneInterval returns the history prune interval as a Duration.
// A zero or negative value falls back to hourly.
func (c *Config) GetPruneInterval() time.Duration {
	if c.History.PruneInterval <= 0 {
		return time.Hour
	}
	return time.Duration(c.History.PruneInterval) * time.Minute
}
