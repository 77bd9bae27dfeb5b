package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Midea bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Midea     MideaConfig     `yaml:"midea"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
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

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Host        string           `yaml:"host"`
	Port        int              `yaml:"port"`
	Timeouts    APITimeoutConfig `yaml:"timeouts"`
	CORS        CORSConfig       `yaml:"cors"`
	Auth        APIAuthConfig    `yaml:"auth"`
	MetricsPath string           `yaml:"metrics_path"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// APIAuthConfig guards the command endpoints. An empty secret leaves them open.
type APIAuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MideaConfig contains the cloud account and climate entity settings.
type MideaConfig struct {
	AppKey   string `yaml:"app_key"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// TempStep is the target temperature step advertised to clients.
	TempStep float64 `yaml:"temp_step"`

	// IncludeOffAsState adds a synthetic "off" hvac mode backed by the power state.
	IncludeOffAsState bool `yaml:"include_off_as_state"`

	// Driver selects the cloud client driver. Default: "simulator".
	Driver string `yaml:"driver"`

	// HealthInterval is how often bridge health is published (seconds).
	HealthInterval int `yaml:"health_interval"`

	Simulator SimulatorConfig `yaml:"simulator"`
}

// String redacts the password.
func (m MideaConfig) String() string {
	return fmt.Sprintf("MideaConfig{AppKey:%s, Username:%s, Password:[REDACTED], TempStep:%g, IncludeOffAsState:%t, Driver:%s}",
		m.AppKey, m.Username, m.TempStep, m.IncludeOffAsState, m.Driver)
}

// SimulatorConfig seeds the simulator driver.
type SimulatorConfig struct {
	Devices []SimulatedDeviceConfig `yaml:"devices"`
}

// SimulatedDeviceConfig describes one simulated appliance. Type accepts
// YAML hex notation (0xAC).
type SimulatedDeviceConfig struct {
	ID                 string  `yaml:"id"`
	Type               int     `yaml:"type"`
	Online             bool    `yaml:"online"`
	Power              bool    `yaml:"power"`
	Mode               string  `yaml:"mode"`
	FanSpeed           string  `yaml:"fan_speed"`
	SwingMode          string  `yaml:"swing_mode"`
	EcoMode            bool    `yaml:"eco_mode"`
	TargetTemperature  float64 `yaml:"target_temperature"`
	IndoorTemperature  float64 `yaml:"indoor_temperature"`
	OutdoorTemperature float64 `yaml:"outdoor_temperature"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MIDEA_BRIDGE_SECTION_KEY
// For example: MIDEA_BRIDGE_DATABASE_PATH, MIDEA_BRIDGE_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/midea-bridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "midea-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			MetricsPath: "/metrics",
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Midea: MideaConfig{
			TempStep:          1.0,
			IncludeOffAsState: true,
			Driver:            "simulator",
			HealthInterval:    30,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Secrets are expected to arrive this way rather than through the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIDEA_BRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("MIDEA_BRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MIDEA_BRIDGE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("MIDEA_BRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MIDEA_BRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("MIDEA_BRIDGE_APP_KEY"); v != "" {
		cfg.Midea.AppKey = v
	}
	if v := os.Getenv("MIDEA_BRIDGE_USERNAME"); v != "" {
		cfg.Midea.Username = v
	}
	if v := os.Getenv("MIDEA_BRIDGE_PASSWORD"); v != "" {
		cfg.Midea.Password = v
	}

	if v := os.Getenv("MIDEA_BRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("MIDEA_BRIDGE_JWT_SECRET"); v != "" {
		cfg.API.Auth.JWTSecret = v
	}
}

// minJWTSecretLength is the shortest HMAC secret accepted for the API guard.
const minJWTSecretLength = 32

// Validate checks the configuration for errors.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if s := c.API.Auth.JWTSecret; s != "" && len(s) < minJWTSecretLength {
		errs = append(errs, "api.auth.jwt_secret must be at least 32 characters")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	errs = append(errs, c.Midea.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (m *MideaConfig) validate() []string {
	var errs []string
	if m.AppKey == "" {
		errs = append(errs, "midea.app_key is required (set MIDEA_BRIDGE_APP_KEY)")
	}
	if m.Username == "" {
		errs = append(errs, "midea.username is required")
	}
	if m.Password == "" {
		errs = append(errs, "midea.password is required (set MIDEA_BRIDGE_PASSWORD)")
	}
	if m.TempStep <= 0 {
		errs = append(errs, "midea.temp_step must be positive")
	}
	if m.HealthInterval < 0 {
		errs = append(errs, "midea.health_interval must not be negative")
	}
	for i, d := range m.Simulator.Devices {
		if d.ID == "" {
			errs = append(errs, fmt.Sprintf("midea.simulator.devices[%d].id is required", i))
		}
		if d.Type < 0 || d.Type > 0xFF {
			errs = append(errs, fmt.Sprintf("midea.simulator.devices[%d].type must fit in one byte", i))
		}
	}
	return errs
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetHealthInterval returns the bridge health interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Midea.HealthInterval) * time.Second
}
