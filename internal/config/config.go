package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/KevinKickass/RackRelay/internal/types"
	"github.com/spf13/viper"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type Config struct {
	Server   ServerConfig              `mapstructure:"server"`
	Log      LogConfig                 `mapstructure:"log"`
	Build    BuildConfig               `mapstructure:"build"`
	RackIP   string                    `mapstructure:"rack_ip"`
	Relay    RelayConfig               `mapstructure:"relay"`
	Relays   []types.RelayDeviceConfig `mapstructure:"relays"`
	Database DatabaseConfig            `mapstructure:"database"`
	Health   HealthConfig              `mapstructure:"health"`
	MQTT     MQTTConfig                `mapstructure:"mqtt"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

type BuildConfig struct {
	Version string `mapstructure:"version"`
}

type RelayConfig struct {
	DeviceReadTimeout time.Duration `mapstructure:"device_read_timeout"`
	SlotMappingFile   string        `mapstructure:"slot_mapping_file"`
	MappingBackend    string        `mapstructure:"mapping_backend"`
}

type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// HealthConfig controls the background health monitor. A zero interval
// disables it; /health still probes on request.
type HealthConfig struct {
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
}

type MQTTConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	TopicPrefix    string        `mapstructure:"topic_prefix"`
	QoS            int           `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("log.development", false)
	v.SetDefault("build.version", "development")
	v.SetDefault("relay.device_read_timeout", "2s")
	v.SetDefault("relay.slot_mapping_file", "/var/opt/relayms/mappings.json")
	v.SetDefault("relay.mapping_backend", BackendFile)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_connections", 4)
	v.SetDefault("health.monitor_interval", "0s")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.client_id", "rackrelay")
	v.SetDefault("mqtt.topic_prefix", "rackrelay")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.connect_timeout", "10s")

	// RELAY_SERVER_HTTP_PORT etc.
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("build.version", "MS_VERSION"); err != nil {
		return nil, fmt.Errorf("failed to bind MS_VERSION: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the service settings. Relay entries are validated when the
// device registry is built.
func (c *Config) Validate() error {
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("%w: server.http_port %d out of range", types.ErrInvalidConfiguration, c.Server.HTTPPort)
	}

	switch c.Relay.MappingBackend {
	case BackendFile:
		if c.Relay.SlotMappingFile == "" {
			return fmt.Errorf("%w: relay.slot_mapping_file is required", types.ErrInvalidConfiguration)
		}
	case BackendPostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			return fmt.Errorf("%w: database.host and database.database are required for the postgres backend",
				types.ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown relay.mapping_backend %q", types.ErrInvalidConfiguration, c.Relay.MappingBackend)
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt.broker is required when mqtt is enabled", types.ErrInvalidConfiguration)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("%w: mqtt.qos must be 0, 1 or 2", types.ErrInvalidConfiguration)
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}
