// Package config loads the daemon's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/config"

	"github.com/julianstephens/chime/internal/constants"
	"github.com/julianstephens/chime/internal/logger"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Logging  LoggingConfig  `yaml:"logging"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
}

type DatabaseConfig struct {
	// Path is a sqlite file or a postgres:// URL without a password.
	Path string `yaml:"path"`
	// UseKeyring reads the connection string from the OS keyring instead of Path.
	UseKeyring bool `yaml:"use_keyring"`
}

type DaemonConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// MissedGrace overrides the missed_grace_min setting when non-zero.
	MissedGrace time.Duration `yaml:"missed_grace"`
	Notify      bool          `yaml:"notify"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Stderr bool   `yaml:"stderr"`
	// Format is text, json or logfmt.
	Format     string `yaml:"format"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
	// LockWait bounds how long a transition waits for another process's lock.
	LockWait time.Duration `yaml:"lock_wait"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: constants.DefaultConfigPath},
		Daemon: DaemonConfig{
			SweepInterval: time.Minute,
			Notify:        true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Stderr:     true,
			Format:     logger.FormatText,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			LockTTL:  30 * time.Second,
			LockWait: 10 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			Topic:        "chime.completion-records",
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Load reads path over the defaults, expanding ${VAR:default} references,
// then applies CHIME_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			provider, err := config.NewYAML(
				config.File(path),
				config.Expand(os.LookupEnv),
			)
			if err != nil {
				return nil, fmt.Errorf("failed to create config provider: %w", err)
			}
			if err := provider.Get(config.Root).Populate(&cfg); err != nil {
				return nil, fmt.Errorf("failed to populate config: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) overrideFromEnv() error {
	if val := os.Getenv("CHIME_DATABASE"); val != "" {
		c.Database.Path = val
	}
	if val := os.Getenv("CHIME_SWEEP_INTERVAL"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("CHIME_SWEEP_INTERVAL: %w", err)
		}
		c.Daemon.SweepInterval = d
	}
	if val := os.Getenv("CHIME_LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv("CHIME_LOG_FORMAT"); val != "" {
		c.Logging.Format = val
	}
	if val := os.Getenv("CHIME_REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
		c.Redis.Enabled = true
	}
	if val := os.Getenv("CHIME_REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}
	if val := os.Getenv("CHIME_REDIS_DB"); val != "" {
		db, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("CHIME_REDIS_DB: %w", err)
		}
		c.Redis.DB = db
	}
	if val := os.Getenv("CHIME_KAFKA_BROKERS"); val != "" {
		c.Kafka.Brokers = splitList(val)
		c.Kafka.Enabled = true
	}
	if val := os.Getenv("CHIME_KAFKA_TOPIC"); val != "" {
		c.Kafka.Topic = val
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" && !c.Database.UseKeyring {
		return errors.New("database.path is required unless database.use_keyring is set")
	}
	if c.Daemon.SweepInterval <= 0 {
		return fmt.Errorf("daemon.sweep_interval must be positive, got %s", c.Daemon.SweepInterval)
	}
	if c.Daemon.MissedGrace < 0 {
		return fmt.Errorf("daemon.missed_grace cannot be negative")
	}
	if _, err := logger.ParseFormat(c.Logging.Format); err != nil {
		return fmt.Errorf("logging.format: %w", err)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return errors.New("logging rotation limits cannot be negative")
	}
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required when redis is enabled")
		}
		if c.Redis.LockTTL <= 0 {
			return errors.New("redis.lock_ttl must be positive")
		}
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return errors.New("kafka.topic is required when kafka is enabled")
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
