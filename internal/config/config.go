// Package config loads keepsake settings from an optional YAML file and the
// environment. Environment variables override the file; the file overrides
// the defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultDatabasePath  = "keepsake.db"
	DefaultRetentionDays = 30
	DefaultHorizonDays   = 7
	DefaultServiceName   = "keepsake"
)

// Config holds application configuration.
type Config struct {
	DatabasePath  string          `yaml:"database" validate:"required"`
	RetentionDays int             `yaml:"retentionDays" validate:"gte=0"`
	Debug         bool            `yaml:"debug"`
	Scheduler     SchedulerConfig `yaml:"scheduler"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

// SchedulerConfig selects the reminder backend.
type SchedulerConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=none amqp redis"`
	AMQPURL     string `yaml:"amqpURL" validate:"required_if=Backend amqp"`
	RedisURL    string `yaml:"redisURL" validate:"required_if=Backend redis"`
	HorizonDays int    `yaml:"horizonDays" validate:"gte=1"`
}

// TelemetryConfig controls the OTLP trace exporter.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string `yaml:"serviceName" validate:"required"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		DatabasePath:  DefaultDatabasePath,
		RetentionDays: DefaultRetentionDays,
		Scheduler: SchedulerConfig{
			Backend:     "none",
			HorizonDays: DefaultHorizonDays,
		},
		Telemetry: TelemetryConfig{
			ServiceName: DefaultServiceName,
		},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.DatabasePath = getEnv("KEEPSAKE_DB", cfg.DatabasePath)
	cfg.Scheduler.Backend = getEnv("KEEPSAKE_SCHEDULER", cfg.Scheduler.Backend)
	cfg.Scheduler.AMQPURL = getEnv("KEEPSAKE_AMQP_URL", cfg.Scheduler.AMQPURL)
	cfg.Scheduler.RedisURL = getEnv("KEEPSAKE_REDIS_URL", cfg.Scheduler.RedisURL)
	cfg.Debug = getEnvBool("KEEPSAKE_DEBUG", cfg.Debug)
	cfg.Telemetry.Enabled = getEnvBool("OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.Endpoint)

	var err error
	if cfg.RetentionDays, err = getEnvInt("KEEPSAKE_RETENTION_DAYS", cfg.RetentionDays); err != nil {
		return err
	}
	if cfg.Scheduler.HorizonDays, err = getEnvInt("KEEPSAKE_HORIZON_DAYS", cfg.Scheduler.HorizonDays); err != nil {
		return err
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("invalid config: %w", err)
		}
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(parts, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}
