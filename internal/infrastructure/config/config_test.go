package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// validConfig returns a configuration that passes validation.
func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Midea.AppKey = "3742e9e5842d4ad59c2db887e12449f9"
	cfg.Midea.Username = "user@example.com"
	cfg.Midea.Password = "secret"
	return cfg
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "broker.local"
    port: 1884
  qos: 1
midea:
  app_key: "app-key"
  username: "user@example.com"
  password: "pw"
  temp_step: 0.5
  simulator:
    devices:
      - id: "living-room"
        type: 0xAC
        online: true
        mode: heat
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.MQTT.Broker.Host != "broker.local" || cfg.MQTT.Broker.Port != 1884 {
		t.Errorf("MQTT.Broker = %+v", cfg.MQTT.Broker)
	}
	if cfg.Midea.TempStep != 0.5 {
		t.Errorf("Midea.TempStep = %v, want 0.5", cfg.Midea.TempStep)
	}
	if !cfg.Midea.IncludeOffAsState {
		t.Error("Midea.IncludeOffAsState should default to true")
	}
	if len(cfg.Midea.Simulator.Devices) != 1 || cfg.Midea.Simulator.Devices[0].Type != 0xAC {
		t.Errorf("Midea.Simulator.Devices = %+v", cfg.Midea.Simulator.Devices)
	}
}

func TestLoad_IncludeOffCanBeDisabled(t *testing.T) {
	path := writeConfig(t, `
midea:
  app_key: "k"
  username: "u"
  password: "p"
  include_off_as_state: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Midea.IncludeOffAsState {
		t.Error("Midea.IncludeOffAsState = true, want false")
	}
	if cfg.Midea.TempStep != 1.0 {
		t.Errorf("Midea.TempStep = %v, want default 1.0", cfg.Midea.TempStep)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	path := writeConfig(t, `
midea:
  app_key: "k"
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "midea.username") || !strings.Contains(err.Error(), "midea.password") {
		t.Errorf("error should list every missing credential, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(*Config) {}, false},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, true},
		{"missing broker host", func(c *Config) { c.MQTT.Broker.Host = "" }, true},
		{"invalid QoS", func(c *Config) { c.MQTT.QoS = 3 }, true},
		{"invalid port", func(c *Config) { c.API.Port = 70000 }, true},
		{"port ignored when API disabled", func(c *Config) { c.API.Enabled = false; c.API.Port = 0 }, false},
		{"JWT secret too short", func(c *Config) { c.API.Auth.JWTSecret = "short" }, true},
		{"JWT secret long enough", func(c *Config) { c.API.Auth.JWTSecret = strings.Repeat("x", 32) }, false},
		{"influx without url", func(c *Config) { c.InfluxDB.Enabled = true }, true},
		{"zero temp step", func(c *Config) { c.Midea.TempStep = 0 }, true},
		{"missing app key", func(c *Config) { c.Midea.AppKey = "" }, true},
		{
			"simulated device without id",
			func(c *Config) { c.Midea.Simulator.Devices = []SimulatedDeviceConfig{{Type: 0xAC}} },
			true,
		},
		{
			"simulated device type too large",
			func(c *Config) { c.Midea.Simulator.Devices = []SimulatedDeviceConfig{{ID: "a", Type: 0x1AC}} },
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{Read: 30, Write: 45, Idle: 60},
		},
		Midea: MideaConfig{HealthInterval: 15},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
	if got := cfg.GetHealthInterval().Seconds(); got != 15 {
		t.Errorf("GetHealthInterval() = %v, want 15", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("MIDEA_BRIDGE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("MIDEA_BRIDGE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("MIDEA_BRIDGE_MQTT_PORT", "8883")
	t.Setenv("MIDEA_BRIDGE_MQTT_USERNAME", "testuser")
	t.Setenv("MIDEA_BRIDGE_MQTT_PASSWORD", "testpass")
	t.Setenv("MIDEA_BRIDGE_APP_KEY", "env-app-key")
	t.Setenv("MIDEA_BRIDGE_USERNAME", "env-user")
	t.Setenv("MIDEA_BRIDGE_PASSWORD", "env-pass")
	t.Setenv("MIDEA_BRIDGE_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("MIDEA_BRIDGE_JWT_SECRET", "jwt-secret")

	applyEnvOverrides(cfg)

	checks := []struct {
		field, got, want string
	}{
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"Midea.AppKey", cfg.Midea.AppKey, "env-app-key"},
		{"Midea.Username", cfg.Midea.Username, "env-user"},
		{"Midea.Password", cfg.Midea.Password, "env-pass"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"API.Auth.JWTSecret", cfg.API.Auth.JWTSecret, "jwt-secret"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want 8883", cfg.MQTT.Broker.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Midea.TempStep != 1.0 {
		t.Errorf("defaultConfig Midea.TempStep = %v, want 1.0", cfg.Midea.TempStep)
	}
	if !cfg.Midea.IncludeOffAsState {
		t.Error("defaultConfig Midea.IncludeOffAsState should be true")
	}
}

func TestMideaConfigString_RedactsPassword(t *testing.T) {
	cfg := validConfig()
	if strings.Contains(cfg.Midea.String(), cfg.Midea.Password) {
		t.Errorf("String() leaked password: %s", cfg.Midea.String())
	}
}
