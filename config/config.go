package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied before any file or environment override.
const (
	DefaultListenAddr = ":8080"
	DefaultTokenTTL   = time.Hour
	DefaultCacheTTL   = 30 * time.Second
	DefaultLogLevel   = "info"
	DefaultConfigFile = "taskboard.toml"
	envConfigFileKey  = "TASKBOARD_CONFIG"
)

// DefaultCORSOrigins mirrors the dev front-end hosts the API trusts.
var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"http://localhost:8080",
	"http://127.0.0.1:5173",
}

// Config holds everything the server needs to start.
type Config struct {
	ListenAddr string `toml:"listen_addr"`

	DatabaseDSN string `toml:"database_dsn"`
	RedisURL    string `toml:"redis_url"`

	JWTSecret    string        `toml:"jwt_secret"`
	TokenTTL     time.Duration `toml:"-"`
	TokenTTLText string        `toml:"token_ttl"`

	JWKSURL      string `toml:"jwks_url"`
	JWKSAudience string `toml:"jwks_audience"`
	JWKSIssuer   string `toml:"jwks_issuer"`

	CacheTTL     time.Duration `toml:"-"`
	CacheTTLText string        `toml:"cache_ttl"`

	CORSOrigins []string `toml:"cors_origins"`
	LogLevel    string   `toml:"log_level"`
	DemoMode    bool     `toml:"demo_mode"`
}

// Load builds the configuration in priority order: defaults, then the TOML
// file (TASKBOARD_CONFIG, falling back to ./taskboard.toml when present),
// then environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	path := os.Getenv(envConfigFileKey)
	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	loadFromEnv(cfg)

	if err := finalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.ListenAddr = DefaultListenAddr
	cfg.TokenTTL = DefaultTokenTTL
	cfg.CacheTTL = DefaultCacheTTL
	cfg.LogLevel = DefaultLogLevel
	cfg.CORSOrigins = append([]string(nil), DefaultCORSOrigins...)
}

func loadConfigFile(cfg *Config, path string) error {
	_, err := toml.DecodeFile(path, cfg)
	return err
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("TASKBOARD_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("TASKBOARD_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("TASKBOARD_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("TASKBOARD_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("TASKBOARD_TOKEN_TTL"); v != "" {
		cfg.TokenTTLText = v
	}
	if v := os.Getenv("TASKBOARD_CACHE_TTL"); v != "" {
		cfg.CacheTTLText = v
	}
	if v := os.Getenv("TASKBOARD_JWKS_URL"); v != "" {
		cfg.JWKSURL = v
	}
	if v := os.Getenv("TASKBOARD_JWKS_AUDIENCE"); v != "" {
		cfg.JWKSAudience = v
	}
	if v := os.Getenv("TASKBOARD_JWKS_ISSUER"); v != "" {
		cfg.JWKSIssuer = v
	}
	if v := os.Getenv("TASKBOARD_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitAndTrim(v, ",")
	}
	if v := os.Getenv("TASKBOARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TASKBOARD_DEMO_MODE"); v != "" {
		cfg.DemoMode = boolFromString(v)
	}
}

// finalize parses textual durations and enforces the invariants that cannot
// wait until first use.
func finalize(cfg *Config) error {
	if cfg.TokenTTLText != "" {
		ttl, err := time.ParseDuration(cfg.TokenTTLText)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.TokenTTLText, err)
		}
		cfg.TokenTTL = ttl
	}
	if cfg.CacheTTLText != "" {
		ttl, err := time.ParseDuration(cfg.CacheTTLText)
		if err != nil {
			return fmt.Errorf("parsing cache_ttl %q: %w", cfg.CacheTTLText, err)
		}
		cfg.CacheTTL = ttl
	}
	if cfg.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %s", cfg.TokenTTL)
	}
	if !cfg.DemoMode && cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required outside demo mode")
	}
	if !cfg.DemoMode && cfg.DatabaseDSN == "" {
		return fmt.Errorf("database_dsn is required outside demo mode")
	}
	return nil
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func boolFromString(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
