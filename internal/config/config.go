package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/flateze/flateze/internal/mailbox"
)

// FileName is the config file created by flateze init.
const FileName = "flateze.yaml"

// EnvPrefix prefixes environment overrides, e.g. FLATEZE_LOGGING_LEVEL.
const EnvPrefix = "FLATEZE"

// Config represents the top-level flateze.yaml configuration.
type Config struct {
	Store     StoreConfig   `yaml:"store" mapstructure:"store"`
	Ingest    IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
	Retry     RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Redis     RedisConfig   `yaml:"redis" mapstructure:"redis"`
	Kafka     KafkaConfig   `yaml:"kafka" mapstructure:"kafka"`
	Server    ServerConfig  `yaml:"server" mapstructure:"server"`
	Logging   LoggingConfig `yaml:"logging" mapstructure:"logging"`
	RulesFile string        `yaml:"rules_file,omitempty" mapstructure:"rules_file"`
	Flats     []FlatConfig  `yaml:"flats,omitempty" mapstructure:"flats"`
}

// StoreConfig selects where bills are persisted.
type StoreConfig struct {
	Type        string `yaml:"type" mapstructure:"type"` // "csv" or "postgres"
	Dir         string `yaml:"dir" mapstructure:"dir"`
	DatabaseURL string `yaml:"database_url,omitempty" mapstructure:"database_url"`
	Breaker     bool   `yaml:"breaker" mapstructure:"breaker"`
}

// IngestConfig controls scheduled ingestion.
type IngestConfig struct {
	Schedule    string        `yaml:"schedule" mapstructure:"schedule"`
	Lookback    time.Duration `yaml:"lookback" mapstructure:"lookback"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Concurrency int           `yaml:"concurrency" mapstructure:"concurrency"`
}

// RetryConfig bounds retries after mailbox faults.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval" mapstructure:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval" mapstructure:"max_interval"`
}

// RedisConfig enables cross-process flat locks. Empty URL means in-process locks.
type RedisConfig struct {
	URL     string        `yaml:"url,omitempty" mapstructure:"url"`
	LockTTL time.Duration `yaml:"lock_ttl" mapstructure:"lock_ttl"`
}

// KafkaConfig enables bill.created events. No brokers means no events.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers,omitempty" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr      string  `yaml:"addr" mapstructure:"addr"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second per client
	Burst     int     `yaml:"burst" mapstructure:"burst"`
}

// LoggingConfig controls the logger.
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	Dev   bool   `yaml:"dev" mapstructure:"dev"`
}

// FlatConfig is one flat and the mailbox its bills arrive in.
type FlatConfig struct {
	ID      string        `yaml:"id" mapstructure:"id"`
	Mailbox MailboxConfig `yaml:"mailbox" mapstructure:"mailbox"`
}

// MailboxConfig is either an IMAP account (Host) or a directory of .eml files (Dir).
type MailboxConfig struct {
	Host        string `yaml:"host,omitempty" mapstructure:"host"`
	Port        int    `yaml:"port,omitempty" mapstructure:"port"`
	TLS         bool   `yaml:"tls" mapstructure:"tls"`
	Username    string `yaml:"username,omitempty" mapstructure:"username"`
	Password    string `yaml:"password,omitempty" mapstructure:"password"`
	PasswordEnv string `yaml:"password_env,omitempty" mapstructure:"password_env"`
	Folder      string `yaml:"folder,omitempty" mapstructure:"folder"`
	Dir         string `yaml:"dir,omitempty" mapstructure:"dir"`
}

// Dialer returns the mailbox dialer described by m.
func (m MailboxConfig) Dialer() mailbox.Dialer {
	if m.Dir != "" {
		return mailbox.DirDialer{Dir: m.Dir}
	}
	port := m.Port
	if port == 0 {
		port = 143
		if m.TLS {
			port = 993
		}
	}
	password := m.Password
	if m.PasswordEnv != "" {
		password = os.Getenv(m.PasswordEnv)
	}
	return mailbox.IMAPDialer{
		Addr:     net.JoinHostPort(m.Host, strconv.Itoa(port)),
		Username: m.Username,
		Password: password,
		TLS:      m.TLS,
		Mailbox:  m.Folder,
	}
}

// Flat returns the flat with the given id.
func (c *Config) Flat(id string) (FlatConfig, bool) {
	for _, f := range c.Flats {
		if f.ID == id {
			return f, true
		}
	}
	return FlatConfig{}, false
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Type:    "csv",
			Dir:     "data",
			Breaker: true,
		},
		Ingest: IngestConfig{
			Schedule:    "@every 1h",
			Lookback:    24 * time.Hour,
			Timeout:     5 * time.Minute,
			Concurrency: 4,
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Second,
			MaxInterval:     30 * time.Second,
		},
		Redis: RedisConfig{
			LockTTL: 10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Topic: "flateze.bills",
		},
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 5,
			Burst:     10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a flateze.yaml file from disk and applies FLATEZE_* overrides.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())
	_ = v.BindEnv("store.database_url", EnvPrefix+"_STORE_DATABASE_URL", EnvPrefix+"_DATABASE_URL")
	_ = v.BindEnv("redis.url", EnvPrefix+"_REDIS_URL")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("store.type", d.Store.Type)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.database_url", d.Store.DatabaseURL)
	v.SetDefault("store.breaker", d.Store.Breaker)
	v.SetDefault("ingest.schedule", d.Ingest.Schedule)
	v.SetDefault("ingest.lookback", d.Ingest.Lookback)
	v.SetDefault("ingest.timeout", d.Ingest.Timeout)
	v.SetDefault("ingest.concurrency", d.Ingest.Concurrency)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.initial_interval", d.Retry.InitialInterval)
	v.SetDefault("retry.max_interval", d.Retry.MaxInterval)
	v.SetDefault("redis.url", d.Redis.URL)
	v.SetDefault("redis.lock_ttl", d.Redis.LockTTL)
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.topic", d.Kafka.Topic)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.burst", d.Server.Burst)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.dev", d.Logging.Dev)
	v.SetDefault("rules_file", d.RulesFile)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate reports every problem with cfg.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Type {
	case "csv":
		if c.Store.Dir == "" {
			errs = append(errs, errors.New("store.dir is required for the csv store"))
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store.database_url is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store type %q", c.Store.Type))
	}

	if c.Ingest.Lookback <= 0 {
		errs = append(errs, errors.New("ingest.lookback must be positive"))
	}
	if c.Ingest.Timeout <= 0 {
		errs = append(errs, errors.New("ingest.timeout must be positive"))
	}
	if c.Ingest.Concurrency < 1 {
		errs = append(errs, errors.New("ingest.concurrency must be at least 1"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}

	seen := make(map[string]bool)
	for i, f := range c.Flats {
		switch {
		case f.ID == "":
			errs = append(errs, fmt.Errorf("flats[%d]: id is required", i))
		case seen[f.ID]:
			errs = append(errs, fmt.Errorf("flats[%d]: duplicate id %q", i, f.ID))
		}
		seen[f.ID] = true
		if f.Mailbox.Host == "" && f.Mailbox.Dir == "" {
			errs = append(errs, fmt.Errorf("flats[%d]: mailbox needs a host or a dir", i))
		}
	}
	return errors.Join(errs...)
}
