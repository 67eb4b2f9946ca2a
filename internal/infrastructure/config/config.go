package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the IoT admin core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Instance      InstanceConfig      `yaml:"instance"`
	Database      DatabaseConfig      `yaml:"database"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	API           APIConfig           `yaml:"api"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
	Security      SecurityConfig      `yaml:"security"`
	Messagebox    MessageboxConfig    `yaml:"messagebox"`
	Subscriptions SubscriptionsConfig `yaml:"subscriptions"`
	VisuApp       VisuAppConfig       `yaml:"visuapp"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// InstanceConfig identifies the adapter instance this core administers.
type InstanceConfig struct {
	// ID is the adapter instance identifier, e.g. "iot.0". It keys the
	// per-instance smart-name storage under common.custom.
	ID string `yaml:"id"`

	// Language is the active UI language used when writing display names.
	Language string `yaml:"language"`

	// NoCommon selects per-instance storage (common.custom[ID].smartName)
	// instead of the shared common.smartName.
	NoCommon bool `yaml:"no_common"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
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

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// MessageboxConfig controls sendTo requests to the voice-assistant adapter.
type MessageboxConfig struct {
	// Target is the adapter instance that answers browse/update commands.
	// Defaults to Instance.ID.
	Target string `yaml:"target"`

	// Timeout is the per-request reply timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// SubscriptionsConfig controls batching of state subscribe/unsubscribe requests.
type SubscriptionsConfig struct {
	BatchWindowMS int `yaml:"batch_window_ms"`
}

// VisuAppConfig controls intake of mobile-app messages.
type VisuAppConfig struct {
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes the app.geofence.* and app.devices.* objects.
	// Defaults to Instance.ID.
	Namespace string `yaml:"namespace"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// instanceIDPattern matches adapter instance identifiers like "iot.0".
var instanceIDPattern = regexp.MustCompile(`^[a-z0-9_-]+\.\d+$`)

// Load reads the YAML file at path on top of the defaults, then applies
// IOTADMIN_* environment overrides and derived settings, and validates.
//
// The messagebox target and the visuApp namespace default to instance.id
// once overrides are in, so IOTADMIN_INSTANCE_ID moves all three.
//
// Returns:
//   - *Config: validated configuration
//   - error: read, parse or validation failure
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyEnvOverrides(cfg)
	applyDerivedDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Instance: InstanceConfig{
			ID:       "iot.0",
			Language: "en",
		},
		Database: DatabaseConfig{
			Path:        "./data/iotadmin.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "iotadmin-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8087,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
		Messagebox: MessageboxConfig{
			Timeout: 10,
		},
		Subscriptions: SubscriptionsConfig{
			BatchWindowMS: 200,
		},
		VisuApp: VisuAppConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// envPrefix starts every override variable, e.g. IOTADMIN_DATABASE_PATH.
const envPrefix = "IOTADMIN_"

// stringOverrides maps variable suffixes to the string settings they replace.
// Secrets belong here rather than in config.yaml.
func (c *Config) stringOverrides() map[string]*string {
	return map[string]*string{
		"INSTANCE_ID":       &c.Instance.ID,
		"INSTANCE_LANGUAGE": &c.Instance.Language,
		"DATABASE_PATH":     &c.Database.Path,
		"MQTT_HOST":         &c.MQTT.Broker.Host,
		"MQTT_USERNAME":     &c.MQTT.Auth.Username,
		"MQTT_PASSWORD":     &c.MQTT.Auth.Password,
		"API_HOST":          &c.API.Host,
		"INFLUXDB_TOKEN":    &c.InfluxDB.Token,
		"JWT_SECRET":        &c.Security.JWT.Secret,
	}
}

// applyEnvOverrides replaces settings with non-empty IOTADMIN_* variables.
// Boolean variables that do not parse are ignored.
func applyEnvOverrides(cfg *Config) {
	for suffix, target := range cfg.stringOverrides() {
		if v := os.Getenv(envPrefix + suffix); v != "" {
			*target = v
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "INSTANCE_NO_COMMON"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Instance.NoCommon = b
		}
	}
}

// applyDerivedDefaults fills values that default to another setting.
func applyDerivedDefaults(cfg *Config) {
	if cfg.Messagebox.Target == "" {
		cfg.Messagebox.Target = cfg.Instance.ID
	}
	if cfg.VisuApp.Namespace == "" {
		cfg.VisuApp.Namespace = cfg.Instance.ID
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if !instanceIDPattern.MatchString(c.Instance.ID) {
		errs = append(errs, "instance.id must look like <adapter>.<n> (e.g. iot.0)")
	}
	if c.Instance.Language == "" {
		errs = append(errs, "instance.language is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Messagebox.Timeout <= 0 {
		errs = append(errs, "messagebox.timeout must be positive")
	}

	if c.Subscriptions.BatchWindowMS < 0 {
		errs = append(errs, "subscriptions.batch_window_ms must not be negative")
	}

	// The admin API edits objects that voice assistants act on; unauthenticated
	// writes are never acceptable.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set IOTADMIN_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
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

// MessageboxTimeout returns the sendTo reply timeout as a Duration.
func (c *Config) MessageboxTimeout() time.Duration {
	return time.Duration(c.Messagebox.Timeout) * time.Second
}

// BatchWindow returns the subscribe/unsubscribe batching window as a Duration.
func (c *Config) BatchWindow() time.Duration {
	return time.Duration(c.Subscriptions.BatchWindowMS) * time.Millisecond
}
