package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "cragwatch/backend/libs/config"
)

const (
	CredentialsMemory = "memory"
	CredentialsRedis  = "redis"

	defaultPort = "8090"
)

// HTTPConfig configures the dashboard's own listener.
type HTTPConfig struct {
	Port           string   `yaml:"port" env:"CRAG_HTTP_PORT"`
	AllowedOrigins []string `yaml:"allowedOrigins" env:"CRAG_ALLOWED_ORIGINS"`
}

// TelemetryConfig points at the sensor backend.
type TelemetryConfig struct {
	BaseURL string        `yaml:"baseUrl" env:"CRAG_TELEMETRY_URL"`
	Timeout time.Duration `yaml:"timeout" env:"CRAG_TELEMETRY_TIMEOUT"`
}

// PollingConfig drives the live views.
type PollingConfig struct {
	Interval     time.Duration `yaml:"interval" env:"CRAG_POLL_INTERVAL"`
	DetailWindow time.Duration `yaml:"detailWindow" env:"CRAG_DETAIL_WINDOW"`
	DetailLimit  int           `yaml:"detailLimit" env:"CRAG_DETAIL_LIMIT"`
}

// RedisConfig locates the shared credential store.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"CRAG_REDIS_ADDR"`
	Password string `yaml:"password" env:"CRAG_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"CRAG_REDIS_DB"`
	Key      string `yaml:"key" env:"CRAG_REDIS_KEY"`
}

// CredentialsConfig selects where the backend credential lives.
type CredentialsConfig struct {
	Backend string      `yaml:"backend" env:"CRAG_CREDENTIALS_BACKEND"`
	Token   string      `yaml:"token" env:"CRAG_TOKEN"`
	Redis   RedisConfig `yaml:"redis"`
}

// DisplayConfig controls how timestamps are labelled.
type DisplayConfig struct {
	Timezone string `yaml:"timezone" env:"CRAG_TIMEZONE"`
}

// Config defines crag dashboard configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Polling     PollingConfig     `yaml:"polling"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Display     DisplayConfig     `yaml:"display"`
}

// Default returns configuration with every default filled in.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Port: defaultPort},
		Telemetry: TelemetryConfig{
			BaseURL: "http://localhost:3000",
			Timeout: 10 * time.Second,
		},
		Polling: PollingConfig{
			Interval:     60 * time.Second,
			DetailWindow: 24 * time.Hour,
			DetailLimit:  100,
		},
		Credentials: CredentialsConfig{
			Backend: CredentialsMemory,
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Key:  "cragwatch:credential",
			},
		},
		Display: DisplayConfig{Timezone: "Local"},
	}
}

// Load configuration using shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telemetry.BaseURL) == "" {
		return errors.New("config: telemetry base url required")
	}
	if c.Telemetry.Timeout <= 0 {
		return errors.New("config: telemetry timeout must be positive")
	}
	if c.Polling.Interval <= 0 {
		return errors.New("config: polling interval must be positive")
	}
	if c.Polling.DetailWindow <= 0 {
		return errors.New("config: detail window must be positive")
	}
	if c.Polling.DetailLimit <= 0 {
		return errors.New("config: detail limit must be positive")
	}
	c.Credentials.Backend = strings.ToLower(strings.TrimSpace(c.Credentials.Backend))
	switch c.Credentials.Backend {
	case CredentialsMemory:
	case CredentialsRedis:
		if strings.TrimSpace(c.Credentials.Redis.Addr) == "" {
			return errors.New("config: redis address required for redis credentials")
		}
	default:
		return fmt.Errorf("config: unknown credentials backend %q", c.Credentials.Backend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// Location resolves the display timezone.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Display.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: display timezone: %w", err)
	}
	return loc, nil
}
