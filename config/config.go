// Package config loads the service configuration from an optional YAML file and
// environment variables. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration validation errors.
var (
	ErrInvalidIncrementalInterval = errors.New("sync.incremental_interval must be positive")
	ErrInvalidFullInterval        = errors.New("sync.full_interval must be positive")
	ErrInvalidPageSize            = errors.New("nvd.page_size must be between 1 and 200")
	ErrInvalidTimeout             = errors.New("nvd.timeout must be positive")
	ErrMissingNVDURL              = errors.New("nvd.url is required")
	ErrInvalidStore               = errors.New("store.backend must be 'arango' or 'memory'")
	ErrMissingPort                = errors.New("server.port is required")
)

// Duration is a time.Duration read from YAML strings such as "6h" or "30s"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config represents the complete service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	NVD     NVDConfig     `yaml:"nvd"`
	Sync    SyncConfig    `yaml:"sync"`
	Store   StoreConfig   `yaml:"store"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// NVDConfig configures the upstream feed client.
type NVDConfig struct {
	URL       string   `yaml:"url"`
	PageSize  int      `yaml:"page_size"`
	Timeout   Duration `yaml:"timeout"`
	UserAgent string   `yaml:"user_agent"`
}

// SyncConfig configures the scheduler.
type SyncConfig struct {
	IncrementalInterval Duration `yaml:"incremental_interval"`
	FullInterval        Duration `yaml:"full_interval"`
	OnStartup           bool     `yaml:"on_startup"`
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	Backend  string `yaml:"backend"`
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// KafkaConfig enables event publication and the request consumer when Brokers is set.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	APIKey        string   `yaml:"api_key"`
	APISecret     string   `yaml:"api_secret"`
	EventsTopic   string   `yaml:"events_topic"`
	RequestsTopic string   `yaml:"requests_topic"`
	GroupID       string   `yaml:"group_id"`
}

// Enabled reports whether Kafka is configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "3000"},
		NVD: NVDConfig{
			URL:       "https://services.nvd.nist.gov/rest/json/cves/2.0",
			PageSize:  200,
			Timeout:   Duration(60 * time.Second),
			UserAgent: "pdvd-cvesync",
		},
		Sync: SyncConfig{
			IncrementalInterval: Duration(6 * time.Hour),
			FullInterval:        Duration(24 * time.Hour),
		},
		Store: StoreConfig{
			Backend:  "arango",
			URL:      "http://localhost:8529",
			User:     "root",
			Password: "",
			Database: "nvd",
		},
		Kafka: KafkaConfig{
			EventsTopic:   "cve-sync-events",
			RequestsTopic: "cve-sync-requests",
			GroupID:       "pdvd-cvesync",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LookupFunc resolves an environment variable
type LookupFunc func(key string) (string, bool)

// Load builds the configuration from defaults, the YAML file named by
// CVESYNC_CONFIG when set, and environment variables, then validates it.
func Load() (*Config, error) {
	return LoadWith(os.LookupEnv)
}

// LoadWith is Load with an injectable environment
func LoadWith(lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path, ok := lookup("CVESYNC_CONFIG"); ok && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if val, ok := lookup(key); ok {
			*dst = val
		}
	}

	str("MS_PORT", &c.Server.Port)
	str("NVD_API_URL", &c.NVD.URL)
	str("NVD_USER_AGENT", &c.NVD.UserAgent)
	str("CVE_STORE", &c.Store.Backend)
	str("ARANGO_URL", &c.Store.URL)
	str("ARANGO_USER", &c.Store.User)
	str("ARANGO_PASS", &c.Store.Password)
	str("ARANGO_DATABASE", &c.Store.Database)
	str("KAFKA_API_KEY", &c.Kafka.APIKey)
	str("KAFKA_API_SECRET", &c.Kafka.APISecret)
	str("KAFKA_EVENTS_TOPIC", &c.Kafka.EventsTopic)
	str("KAFKA_REQUESTS_TOPIC", &c.Kafka.RequestsTopic)
	str("LOG_LEVEL", &c.Logging.Level)

	// ARANGO_HOST/ARANGO_PORT build the URL when ARANGO_URL is not given
	if _, ok := lookup("ARANGO_URL"); !ok {
		host, hostOK := lookup("ARANGO_HOST")
		port, portOK := lookup("ARANGO_PORT")
		if hostOK || portOK {
			if !hostOK {
				host = "localhost"
			}
			if !portOK {
				port = "8529"
			}
			c.Store.URL = "http://" + host + ":" + port
		}
	}

	if val, ok := lookup("KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = nil
		for _, broker := range strings.Split(val, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				c.Kafka.Brokers = append(c.Kafka.Brokers, broker)
			}
		}
	}

	if val, ok := lookup("NVD_PAGE_SIZE"); ok {
		size, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("NVD_PAGE_SIZE: %w", err)
		}
		c.NVD.PageSize = size
	}

	if val, ok := lookup("SYNC_ON_STARTUP"); ok {
		onStartup, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("SYNC_ON_STARTUP: %w", err)
		}
		c.Sync.OnStartup = onStartup
	}

	durations := []struct {
		key string
		dst *Duration
	}{
		{"NVD_TIMEOUT", &c.NVD.Timeout},
		{"SYNC_INCREMENTAL_INTERVAL", &c.Sync.IncrementalInterval},
		{"SYNC_FULL_INTERVAL", &c.Sync.FullInterval},
	}
	for _, d := range durations {
		val, ok := lookup(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = Duration(parsed)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Sync.IncrementalInterval <= 0 {
		return ErrInvalidIncrementalInterval
	}

	if c.Sync.FullInterval <= 0 {
		return ErrInvalidFullInterval
	}

	if c.NVD.PageSize < 1 || c.NVD.PageSize > 200 {
		return ErrInvalidPageSize
	}

	if c.NVD.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.NVD.URL == "" {
		return ErrMissingNVDURL
	}

	if c.Server.Port == "" {
		return ErrMissingPort
	}

	switch c.Store.Backend {
	case "arango", "memory":
	default:
		return ErrInvalidStore
	}

	return nil
}
