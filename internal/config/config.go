// Package config provides console configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Cache backends.
const (
	CacheMemory   = "memory"
	CacheNATS     = "nats"
	CachePostgres = "postgres"
	CacheSQLite   = "sqlite"
	CacheNone     = "none"
)

// Event backends.
const (
	EventsNone  = "none"
	EventsNATS  = "nats"
	EventsKafka = "kafka"
)

// Config holds console configuration.
type Config struct {
	// Backend API
	APIBaseURL           string        `envconfig:"API_BASE_URL" default:"http://localhost:5000/api"`
	APITimeout           time.Duration `envconfig:"API_TIMEOUT" default:"300s"`
	APIClientID          string        `envconfig:"API_CLIENT_ID" default:"fe-inventory"`
	APITokenSecret       string        `envconfig:"API_TOKEN_SECRET"`
	APIVersionConstraint string        `envconfig:"API_VERSION_CONSTRAINT"`
	WrapRequestBody      bool          `envconfig:"WRAP_REQUEST_BODY" default:"false"`
	APIUser              string        `envconfig:"API_USER" default:"system"`

	// Response cache
	CacheBackend         string        `envconfig:"CACHE_BACKEND" default:"memory"`
	CachePrefix          string        `envconfig:"CACHE_PREFIX" default:"my-cache:"`
	CacheTTL             time.Duration `envconfig:"CACHE_TTL" default:"120m"`
	CacheInterpretHeader bool          `envconfig:"CACHE_INTERPRET_HEADER" default:"true"`

	// COMMS: NATS for the shared KV cache and change events.
	COMMSURL      string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSKVBucket string `envconfig:"COMMS_KV_BUCKET" default:"inventory_http_cache"`
	COMMSName     string `envconfig:"SERVICE_NAME" default:"inventory-console"`

	// Database (postgres cache backend)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	MigrationPath string `envconfig:"MIGRATION_PATH"`

	SQLitePath string `envconfig:"SQLITE_PATH" default:"inventory-cache.db"`

	// Change events
	EventsBackend string   `envconfig:"EVENTS_BACKEND" default:"none"`
	KafkaBrokers  []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic    string   `envconfig:"KAFKA_TOPIC" default:"inventory.changed"`

	// HTTP
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"8080"`
	MockAPIAddr string `envconfig:"MOCK_API_ADDR" default:"127.0.0.1:5000"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadDotEnv loads variables from the given files (".env" when none) without
// overriding variables already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%s - failed to load %s: %w", logPrefix, p, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	c.CacheBackend = strings.ToLower(strings.TrimSpace(c.CacheBackend))
	c.EventsBackend = strings.ToLower(strings.TrimSpace(c.EventsBackend))
	return &c, nil
}

// Validate checks the settings required by the selected backends.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("%s - API_BASE_URL is required", logPrefix)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("%s - API_TIMEOUT must be positive", logPrefix)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("%s - CACHE_TTL must be positive", logPrefix)
	}

	switch c.CacheBackend {
	case CacheMemory, CacheNone:
	case CacheNATS:
		if c.COMMSURL == "" {
			return fmt.Errorf("%s - COMMS_URL is required for the nats cache", logPrefix)
		}
	case CachePostgres:
		if err := c.ValidateForDB(); err != nil {
			return err
		}
	case CacheSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%s - SQLITE_PATH is required for the sqlite cache", logPrefix)
		}
	default:
		return fmt.Errorf("%s - unknown CACHE_BACKEND %q", logPrefix, c.CacheBackend)
	}

	switch c.EventsBackend {
	case EventsNone:
	case EventsNATS:
		if c.COMMSURL == "" {
			return fmt.Errorf("%s - COMMS_URL is required for nats events", logPrefix)
		}
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" {
			return fmt.Errorf("%s - KAFKA_BROKERS and KAFKA_TOPIC are required for kafka events", logPrefix)
		}
	default:
		return fmt.Errorf("%s - unknown EVENTS_BACKEND %q", logPrefix, c.EventsBackend)
	}
	return nil
}

// ValidateForDB checks required config for DB-dependent commands (migrate, cache clear on postgres).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

// NeedsComms reports whether any backend uses the NATS connection.
func (c *Config) NeedsComms() bool {
	return c.CacheBackend == CacheNATS || c.EventsBackend == EventsNATS
}
