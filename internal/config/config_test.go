package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnvVars = []string{
	"API_BASE_URL", "API_TIMEOUT", "API_CLIENT_ID", "API_TOKEN_SECRET", "API_VERSION_CONSTRAINT",
	"WRAP_REQUEST_BODY", "API_USER", "CACHE_BACKEND", "CACHE_PREFIX", "CACHE_TTL",
	"CACHE_INTERPRET_HEADER", "COMMS_URL", "COMMS_KV_BUCKET", "SERVICE_NAME", "DATABASE_URL",
	"MIGRATION_PATH", "SQLITE_PATH", "EVENTS_BACKEND", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"HTTP_PORT", "MOCK_API_ADDR", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:5000/api" {
		t.Errorf("config:config_test - APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.APITimeout != 300*time.Second {
		t.Errorf("config:config_test - APITimeout = %v, want 300s", cfg.APITimeout)
	}
	if cfg.CacheBackend != CacheMemory {
		t.Errorf("config:config_test - CacheBackend = %q, want memory", cfg.CacheBackend)
	}
	if cfg.CachePrefix != "my-cache:" {
		t.Errorf("config:config_test - CachePrefix = %q, want my-cache:", cfg.CachePrefix)
	}
	if cfg.CacheTTL != 120*time.Minute {
		t.Errorf("config:config_test - CacheTTL = %v, want 2h", cfg.CacheTTL)
	}
	if !cfg.CacheInterpretHeader {
		t.Error("config:config_test - expected CacheInterpretHeader=true by default")
	}
	if cfg.WrapRequestBody {
		t.Error("config:config_test - expected WrapRequestBody=false by default")
	}
	if cfg.EventsBackend != EventsNone {
		t.Errorf("config:config_test - EventsBackend = %q, want none", cfg.EventsBackend)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("config:config_test - HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("config:config_test - logging = %q/%q, want info/text", cfg.LogLevel, cfg.LogFormat)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config:config_test - defaults should validate: %v", err)
	}
	if cfg.NeedsComms() {
		t.Error("config:config_test - defaults should not need comms")
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	overrides := map[string]string{
		"API_BASE_URL":           "http://api.test/api",
		"API_TIMEOUT":            "5s",
		"WRAP_REQUEST_BODY":      "true",
		"API_USER":               "alice",
		"CACHE_BACKEND":          "NATS",
		"CACHE_TTL":              "10m",
		"CACHE_INTERPRET_HEADER": "false",
		"EVENTS_BACKEND":         "kafka",
		"KAFKA_BROKERS":          "k1:9092,k2:9092",
		"HTTP_PORT":              "9090",
		"LOG_LEVEL":              "debug",
	}
	for key, val := range overrides {
		t.Setenv(key, val)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}
	if cfg.APIBaseURL != "http://api.test/api" || cfg.APITimeout != 5*time.Second {
		t.Errorf("config:config_test - api = %q %v", cfg.APIBaseURL, cfg.APITimeout)
	}
	if !cfg.WrapRequestBody || cfg.APIUser != "alice" {
		t.Errorf("config:config_test - wrap = %v user = %q", cfg.WrapRequestBody, cfg.APIUser)
	}
	if cfg.CacheBackend != CacheNATS {
		t.Errorf("config:config_test - CacheBackend = %q, want nats", cfg.CacheBackend)
	}
	if cfg.CacheTTL != 10*time.Minute || cfg.CacheInterpretHeader {
		t.Errorf("config:config_test - cache ttl=%v interpret=%v", cfg.CacheTTL, cfg.CacheInterpretHeader)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("config:config_test - KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.HTTPPort != 9090 || cfg.LogLevel != "debug" {
		t.Errorf("config:config_test - port=%d level=%q", cfg.HTTPPort, cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config:config_test - overrides should validate: %v", err)
	}
	if !cfg.NeedsComms() {
		t.Error("config:config_test - nats cache needs comms")
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			APIBaseURL:    "http://x",
			APITimeout:    time.Second,
			CacheTTL:      time.Minute,
			CacheBackend:  CacheMemory,
			EventsBackend: EventsNone,
			COMMSURL:      "nats://127.0.0.1:4222",
			SQLitePath:    "c.db",
			KafkaTopic:    "t",
		}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty base url", func(c *Config) { c.APIBaseURL = "" }, true},
		{"zero timeout", func(c *Config) { c.APITimeout = 0 }, true},
		{"zero ttl", func(c *Config) { c.CacheTTL = 0 }, true},
		{"postgres without url", func(c *Config) { c.CacheBackend = CachePostgres }, true},
		{"postgres with url", func(c *Config) { c.CacheBackend = CachePostgres; c.DatabaseURL = "postgres://x" }, false},
		{"sqlite without path", func(c *Config) { c.CacheBackend = CacheSQLite; c.SQLitePath = "" }, true},
		{"nats without url", func(c *Config) { c.CacheBackend = CacheNATS; c.COMMSURL = "" }, true},
		{"unknown cache", func(c *Config) { c.CacheBackend = "redis" }, true},
		{"kafka without brokers", func(c *Config) { c.EventsBackend = EventsKafka }, true},
		{"kafka with brokers", func(c *Config) { c.EventsBackend = EventsKafka; c.KafkaBrokers = []string{"k:9092"} }, false},
		{"unknown events", func(c *Config) { c.EventsBackend = "amqp" }, true},
	}
	for _, tt := range tests {
		c := base()
		tt.mutate(c)
		err := c.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("config:config_test - %s: err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("API_USER=from-file\nHTTP_PORT=7070\n"), 0o600); err != nil {
		t.Fatalf("config:config_test - write env file: %v", err)
	}
	t.Setenv("HTTP_PORT", "6060")
	t.Cleanup(func() { os.Unsetenv("API_USER") })

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("config:config_test - LoadDotEnv: %v", err)
	}
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - LoadConfig: %v", err)
	}
	if cfg.APIUser != "from-file" {
		t.Errorf("config:config_test - APIUser = %q, want from-file", cfg.APIUser)
	}
	if cfg.HTTPPort != 6060 {
		t.Errorf("config:config_test - HTTPPort = %d, want the environment to win", cfg.HTTPPort)
	}
}
