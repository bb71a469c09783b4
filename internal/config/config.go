// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/wazobia-session/internal/readiness"
	"github.com/ashureev/wazobia-session/internal/remote"
	"github.com/ashureev/wazobia-session/internal/session"
)

// Config holds all application configuration.
type Config struct {
	APIURL          string
	StateDBPath     string
	HTTPTimeout     time.Duration
	AuthPromptDelay time.Duration
	HistoryLimit    int
	LogLevel        slog.Level
	Readiness       ReadinessConfig
	Server          ServerConfig
}

// ReadinessConfig controls the startup probe.
type ReadinessConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	MinDisplay  time.Duration
	// MinDisplayMax enables a uniformly random minimum display in
	// [MinDisplay, MinDisplayMax) when greater than MinDisplay.
	MinDisplayMax time.Duration
}

// ServerConfig is only read by the development service.
type ServerConfig struct {
	Port           string
	ColdStart      time.Duration
	AllowedOrigins []string
	BcryptCost     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		APIURL:          strings.TrimRight(getEnv("WAZOBIA_API_URL", "http://localhost:8001"), "/"),
		StateDBPath:     getEnv("STATE_DB_PATH", "./data/session.db"),
		HTTPTimeout:     getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		AuthPromptDelay: getEnvDuration("AUTH_PROMPT_DELAY", 1500*time.Millisecond),
		HistoryLimit:    getEnvInt("CHAT_HISTORY_LIMIT", 10),
		LogLevel:        level,
		Readiness: ReadinessConfig{
			MaxAttempts:   getEnvInt("READINESS_MAX_ATTEMPTS", 20),
			RetryDelay:    getEnvDuration("READINESS_RETRY_DELAY", 3*time.Second),
			MinDisplay:    getEnvDuration("READINESS_MIN_DISPLAY", 12*time.Second),
			MinDisplayMax: getEnvDuration("READINESS_MIN_DISPLAY_MAX", 0),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8001"),
			ColdStart:      getEnvDuration("COLD_START", 0),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			BcryptCost:     getEnvInt("BCRYPT_COST", 10),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("WAZOBIA_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if c.StateDBPath == "" {
		return fmt.Errorf("STATE_DB_PATH cannot be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be > 0")
	}
	if c.AuthPromptDelay < 0 {
		return fmt.Errorf("AUTH_PROMPT_DELAY cannot be negative")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("CHAT_HISTORY_LIMIT cannot be negative")
	}
	if c.Readiness.MaxAttempts <= 0 {
		return fmt.Errorf("READINESS_MAX_ATTEMPTS must be > 0")
	}
	if c.Readiness.RetryDelay < 0 {
		return fmt.Errorf("READINESS_RETRY_DELAY cannot be negative")
	}
	if c.Readiness.MinDisplay < 0 {
		return fmt.Errorf("READINESS_MIN_DISPLAY cannot be negative")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Server.ColdStart < 0 {
		return fmt.Errorf("COLD_START cannot be negative")
	}
	return nil
}

// ClientConfig returns the remote client settings.
func (c *Config) ClientConfig() remote.ClientConfig {
	cc := remote.DefaultClientConfig()
	cc.BaseURL = c.APIURL
	cc.RequestTimeout = c.HTTPTimeout
	return cc
}

// DisplayPolicy returns the minimum display policy for the probe.
func (r ReadinessConfig) DisplayPolicy() readiness.DisplayPolicy {
	if r.MinDisplayMax > r.MinDisplay {
		return readiness.Uniform{Min: r.MinDisplay, Max: r.MinDisplayMax}
	}
	return readiness.Fixed(r.MinDisplay)
}

// SessionConfig returns the session tuning derived from c.
func (c *Config) SessionConfig() session.Config {
	sc := session.DefaultConfig()
	sc.Readiness.MaxAttempts = c.Readiness.MaxAttempts
	sc.Readiness.RetryDelay = c.Readiness.RetryDelay
	sc.Readiness.MinimumDisplay = c.Readiness.DisplayPolicy()
	sc.AuthPromptDelay = c.AuthPromptDelay
	sc.HistoryLimit = c.HistoryLimit
	return sc
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("3s") or plain milliseconds ("3000").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
