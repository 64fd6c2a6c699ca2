package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvLocal      = "local"
	EnvProduction = "production"

	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	Environment string `yaml:"environment"`
	Debug       bool   `yaml:"debug"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`

	ServicesJWTSecret string        `yaml:"services_jwt_secret"`
	TokenIssuer       string        `yaml:"token_issuer"`
	TokenAudience     string        `yaml:"token_audience"`
	ServiceID         string        `yaml:"service_id"`
	TokenMaxAge       time.Duration `yaml:"token_max_age"`

	AuthServiceHost    string        `yaml:"auth_service_host"`
	AuthServiceTimeout time.Duration `yaml:"auth_service_timeout"`
	RolePolicyPath     string        `yaml:"role_policy_path"`

	MonolithURL     string        `yaml:"monolith_url"`
	MonolithTimeout time.Duration `yaml:"monolith_timeout"`

	PostgresDSN string `yaml:"postgres_dsn"`

	CacheBackend  string `yaml:"cache_backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	ProbeTimeout   time.Duration `yaml:"health_probe_timeout"`
	MetricsEnabled bool          `yaml:"metrics_enabled"`
}

// Defaults returns the settings used when neither a settings file nor the
// environment provides a value.
func Defaults(environment string) Config {
	if environment == "" {
		environment = EnvLocal
	}
	cfg := Config{
		HTTPAddr:           ":8080",
		Environment:        environment,
		Debug:              true,
		LogLevel:           "info",
		LogFormat:          "json",
		ServiceName:        "notifications-service",
		ServiceVersion:     "1.0.0",
		TokenIssuer:        "notifications_service",
		TokenAudience:      "monolith",
		ServiceID:          "notifications",
		TokenMaxAge:        24 * time.Hour,
		AuthServiceTimeout: 5 * time.Second,
		MonolithTimeout:    5 * time.Second,
		CacheBackend:       CacheBackendRedis,
		ProbeTimeout:       2 * time.Second,
		MetricsEnabled:     true,
	}
	if environment == EnvProduction {
		cfg.Debug = false
		cfg.LogLevel = "warn"
	}
	return cfg
}

// FromEnv loads defaults for ENVIRONMENT, overlays the settings file (if any)
// and finally the process environment.
func FromEnv() (Config, error) {
	environment := envDefault("ENVIRONMENT", EnvLocal)
	cfg := Defaults(environment)

	path, explicit := settingsFilePath(environment)
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return Config{}, err
			}
		}
	}
	cfg.Environment = environment
	cfg.applyEnv()
	return cfg, nil
}

func settingsFilePath(environment string) (string, bool) {
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		return path, true
	}
	dir := envDefault("CONFIG_DIR", "config")
	return filepath.Join(dir, environment+".yaml"), false
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = envDefault("HTTP_ADDR", c.HTTPAddr)
	c.Debug = envBoolDefault("DEBUG", c.Debug)
	c.LogLevel = envDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envDefault("LOG_FORMAT", c.LogFormat)
	c.ServiceName = envDefault("SERVICE_NAME", c.ServiceName)
	c.ServiceVersion = envDefault("SERVICE_VERSION", c.ServiceVersion)
	c.ServicesJWTSecret = envDefault("SERVICES_JWT_SECRET", c.ServicesJWTSecret)
	c.TokenIssuer = envDefault("TOKEN_ISSUER", c.TokenIssuer)
	c.TokenAudience = envDefault("TOKEN_AUDIENCE", c.TokenAudience)
	c.ServiceID = envDefault("SERVICE_ID", c.ServiceID)
	c.TokenMaxAge = envMaxAgeDefault("TOKEN_MAX_AGE", c.TokenMaxAge)
	c.AuthServiceHost = strings.TrimRight(envDefault("AUTH_SERVICE_HOST", c.AuthServiceHost), "/")
	c.AuthServiceTimeout = envDurationDefault("AUTH_SERVICE_TIMEOUT", c.AuthServiceTimeout)
	c.RolePolicyPath = envDefault("ROLE_POLICY_PATH", c.RolePolicyPath)
	c.MonolithURL = strings.TrimRight(envDefault("MONOLITH_URL", c.MonolithURL), "/")
	c.MonolithTimeout = envDurationDefault("MONOLITH_TIMEOUT", c.MonolithTimeout)
	c.PostgresDSN = envDefault("POSTGRES_DSN", c.PostgresDSN)
	c.CacheBackend = envDefault("CACHE_BACKEND", c.CacheBackend)
	c.RedisAddr = envDefault("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = envDefault("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = envIntDefault("REDIS_DB", c.RedisDB)
	c.ProbeTimeout = envDurationDefault("HEALTH_PROBE_TIMEOUT", c.ProbeTimeout)
	c.MetricsEnabled = envBoolDefault("METRICS_ENABLED", c.MetricsEnabled)
}

// Validate rejects configurations the authorization gate cannot run with.
func (c Config) Validate() error {
	var problems []string
	switch c.Environment {
	case EnvLocal, EnvProduction:
	default:
		problems = append(problems, fmt.Sprintf("ENVIRONMENT %q is not supported", c.Environment))
	}
	if strings.TrimSpace(c.ServicesJWTSecret) == "" {
		problems = append(problems, "SERVICES_JWT_SECRET is required")
	}
	if strings.TrimSpace(c.AuthServiceHost) == "" {
		problems = append(problems, "AUTH_SERVICE_HOST is required")
	} else if !isHTTPURL(c.AuthServiceHost) {
		problems = append(problems, "AUTH_SERVICE_HOST must be an absolute http(s) URL")
	}
	if c.MonolithURL != "" && !isHTTPURL(c.MonolithURL) {
		problems = append(problems, "MONOLITH_URL must be an absolute http(s) URL")
	}
	switch c.CacheBackend {
	case CacheBackendRedis, CacheBackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("CACHE_BACKEND %q is not supported", c.CacheBackend))
	}
	if c.AuthServiceTimeout <= 0 {
		problems = append(problems, "AUTH_SERVICE_TIMEOUT must be positive")
	}
	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

func envDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// envMaxAgeDefault accepts 0 to disable the max-age rule.
func envMaxAgeDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "0" {
		return 0
	}
	return envDurationDefault(key, def)
}
