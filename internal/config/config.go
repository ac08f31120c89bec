package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	GRPC        GRPCConfig       `yaml:"grpc"`
	Client      ClientConfig     `yaml:"client"`
	Fixtures    FixturesConfig   `yaml:"fixtures"`
	Mirror      MirrorConfig     `yaml:"mirror"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type GRPCConfig struct {
	Port int `yaml:"port"`
}

type ClientConfig struct {
	UUID string `yaml:"uuid"`
}

// FixturesConfig selects where sample users, channels and messages come from
type FixturesConfig struct {
	Driver      string `yaml:"driver"` // memory, yaml, sqlite, postgres
	File        string `yaml:"file"`
	SQLiteFile  string `yaml:"sqlite_file"`
	DatabaseURL string `yaml:"database_url"`
}

// MirrorConfig selects the bus that chat events are mirrored onto
type MirrorConfig struct {
	Driver       string `yaml:"driver"` // mock, embedded, nats, mqtt
	NATSURL      string `yaml:"nats_url"`
	Subject      string `yaml:"subject"`
	StreamName   string `yaml:"stream_name"`
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTClientID string `yaml:"mqtt_client_id"`
	TopicPrefix  string `yaml:"topic_prefix"`
}

type ClickHouseConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// IsDevelopment reports whether mocks should stand in for external services
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Environment: "development",
		HTTP:        HTTPConfig{Port: 3000},
		GRPC:        GRPCConfig{Port: 50051},
		Fixtures: FixturesConfig{
			Driver:     "memory",
			SQLiteFile: "dev.sqlite",
		},
		Mirror: MirrorConfig{
			Driver:       "mock",
			NATSURL:      "nats://localhost:4222",
			Subject:      "chat.events",
			StreamName:   "CHAT_EVENTS",
			MQTTBroker:   "tcp://localhost:1883",
			MQTTClientID: "chat-mock",
			TopicPrefix:  "chat",
		},
		ClickHouse: ClickHouseConfig{
			Addr:     "localhost:9000",
			Database: "default",
			Username: "default",
		},
	}
}

// Load reads an optional YAML file, applies environment overrides and validates.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads the file named by CONFIG_FILE, if any
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("CONFIG_FILE")
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
	}
	return Load(path)
}

func (c *Config) applyEnv() error {
	setString(&c.Environment, "ENVIRONMENT")
	setString(&c.Client.UUID, "CLIENT_UUID")

	setString(&c.Fixtures.Driver, "DB_DRIVER")
	setString(&c.Fixtures.File, "FIXTURES_FILE")
	setString(&c.Fixtures.SQLiteFile, "SQLITE_FILE")
	setString(&c.Fixtures.DatabaseURL, "DATABASE_URL")

	setString(&c.Mirror.Driver, "MIRROR_DRIVER")
	setString(&c.Mirror.NATSURL, "NATS_URL")
	setString(&c.Mirror.Subject, "NATS_SUBJECT")
	setString(&c.Mirror.StreamName, "NATS_STREAM")
	setString(&c.Mirror.MQTTBroker, "MQTT_BROKER")
	setString(&c.Mirror.MQTTClientID, "MQTT_CLIENT_ID")
	setString(&c.Mirror.TopicPrefix, "MQTT_TOPIC_PREFIX")

	setString(&c.ClickHouse.Addr, "CLICKHOUSE_ADDR")
	setString(&c.ClickHouse.Database, "CLICKHOUSE_DB")
	setString(&c.ClickHouse.Username, "CLICKHOUSE_USER")
	setString(&c.ClickHouse.Password, "CLICKHOUSE_PASSWORD")

	if err := setInt(&c.HTTP.Port, "PORT"); err != nil {
		return err
	}
	return setInt(&c.GRPC.Port, "GRPC_PORT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	*dst = n
	return nil
}

func (c *Config) validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.GRPC.Port < 1 || c.GRPC.Port > 65535 {
		return fmt.Errorf("grpc.port must be between 1 and 65535, got %d", c.GRPC.Port)
	}

	switch c.Fixtures.Driver {
	case "memory":
	case "yaml":
		if c.Fixtures.File == "" {
			return fmt.Errorf("fixtures.file is required for the yaml driver")
		}
	case "sqlite":
		if c.Fixtures.SQLiteFile == "" {
			return fmt.Errorf("fixtures.sqlite_file is required for the sqlite driver")
		}
	case "postgres":
		// development falls back to a SQLite-backed stand-in
		if c.Fixtures.DatabaseURL == "" && !c.IsDevelopment() {
			return fmt.Errorf("fixtures.database_url is required for the postgres driver outside development")
		}
	default:
		return fmt.Errorf("unknown fixtures.driver %q (valid: memory, yaml, sqlite, postgres)", c.Fixtures.Driver)
	}

	switch c.Mirror.Driver {
	case "mock", "embedded":
	case "nats":
		if c.Mirror.NATSURL == "" {
			return fmt.Errorf("mirror.nats_url is required for the nats driver")
		}
	case "mqtt":
		if c.Mirror.MQTTBroker == "" {
			return fmt.Errorf("mirror.mqtt_broker is required for the mqtt driver")
		}
		if c.Mirror.MQTTClientID == "" {
			return fmt.Errorf("mirror.mqtt_client_id is required for the mqtt driver")
		}
		if c.Mirror.TopicPrefix == "" {
			return fmt.Errorf("mirror.topic_prefix is required for the mqtt driver")
		}
	default:
		return fmt.Errorf("unknown mirror.driver %q (valid: mock, embedded, nats, mqtt)", c.Mirror.Driver)
	}

	if c.Mirror.Subject == "" {
		return fmt.Errorf("mirror.subject is required")
	}
	return nil
}
