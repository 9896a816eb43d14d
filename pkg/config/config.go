package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/farmops/agrifleet/pkg/observability"
	"github.com/farmops/agrifleet/pkg/scheduler"
	"github.com/farmops/agrifleet/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Authentication configuration
	Auth AuthConfig

	// Observability configuration
	Observability ObservabilityConfig

	// Background job configuration
	Scheduler scheduler.Config
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// AuthConfig holds token and session settings. The signing secret has no
// default; the process refuses to start without one. SessionTTL follows
// TokenTTL unless set explicitly, so a session record lives exactly as
// long as the token it tracks.
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	SessionTTL time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig builds the configuration in three layers: defaults, then an
// optional YAML file named by AGRIFLEET_CONFIG_FILE, then environment
// variables. Later layers win.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Storage: storage.DefaultConfig(),
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.InfoLevel,
			MetricsEnabled: true,
		},
		Scheduler: scheduler.DefaultConfig(),
	}

	if path := os.Getenv("AGRIFLEET_CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = cfg.Auth.TokenTTL
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// fileOverlay mirrors the YAML layout. Every field is optional; absent
// fields leave the current value untouched.
type fileOverlay struct {
	Server struct {
		Host       string `yaml:"host"`
		Port       string `yaml:"port"`
		HealthPort string `yaml:"healthPort"`
	} `yaml:"server"`
	Storage struct {
		PostgresURL string `yaml:"postgresUrl"`
		RedisURL    string `yaml:"redisUrl"`
	} `yaml:"storage"`
	Auth struct {
		JWTSecret  string `yaml:"jwtSecret"`
		TokenTTL   string `yaml:"tokenTtl"`
		SessionTTL string `yaml:"sessionTtl"`
	} `yaml:"auth"`
	Observability struct {
		LogLevel string `yaml:"logLevel"`
	} `yaml:"observability"`
	Scheduler struct {
		MaintenanceScanSpec string `yaml:"maintenanceScanSpec"`
		LogCleanupSpec      string `yaml:"logCleanupSpec"`
		LogRetentionDays    int    `yaml:"logRetentionDays"`
	} `yaml:"scheduler"`
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&cfg.Server.Host, overlay.Server.Host)
	setString(&cfg.Server.Port, overlay.Server.Port)
	setString(&cfg.Server.HealthPort, overlay.Server.HealthPort)
	setString(&cfg.Storage.PostgresURL, overlay.Storage.PostgresURL)
	setString(&cfg.Storage.RedisURL, overlay.Storage.RedisURL)
	setString(&cfg.Auth.JWTSecret, overlay.Auth.JWTSecret)

	if overlay.Auth.TokenTTL != "" {
		ttl, err := time.ParseDuration(overlay.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("invalid tokenTtl in %s: %w", path, err)
		}
		cfg.Auth.TokenTTL = ttl
	}
	if overlay.Auth.SessionTTL != "" {
		ttl, err := time.ParseDuration(overlay.Auth.SessionTTL)
		if err != nil {
			return fmt.Errorf("invalid sessionTtl in %s: %w", path, err)
		}
		cfg.Auth.SessionTTL = ttl
	}
	if overlay.Observability.LogLevel != "" {
		cfg.Observability.LogLevel = observability.ParseLogLevel(overlay.Observability.LogLevel)
	}
	setString(&cfg.Scheduler.MaintenanceScanSpec, overlay.Scheduler.MaintenanceScanSpec)
	setString(&cfg.Scheduler.LogCleanupSpec, overlay.Scheduler.LogCleanupSpec)
	if overlay.Scheduler.LogRetentionDays > 0 {
		cfg.Scheduler.LogRetention = time.Duration(overlay.Scheduler.LogRetentionDays) * 24 * time.Hour
	}
	return nil
}

func applyEnv(cfg *Config) {
	// Server
	cfg.Server.Host = getEnv("AGRIFLEET_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("AGRIFLEET_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("AGRIFLEET_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("AGRIFLEET_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("AGRIFLEET_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("AGRIFLEET_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.HealthPort = getEnv("AGRIFLEET_HEALTH_PORT", cfg.Server.HealthPort)

	// PostgreSQL
	cfg.Storage.PostgresURL = getEnv("AGRIFLEET_POSTGRES_URL", cfg.Storage.PostgresURL)
	if maxConns := getEnvInt("AGRIFLEET_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.Storage.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("AGRIFLEET_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.Storage.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("AGRIFLEET_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.Storage.PostgresTimeout = timeout
	}

	// Redis
	cfg.Storage.RedisURL = getEnv("AGRIFLEET_REDIS_URL", cfg.Storage.RedisURL)
	cfg.Storage.RedisPassword = getEnv("AGRIFLEET_REDIS_PASSWORD", cfg.Storage.RedisPassword)
	if redisDB := getEnvInt("AGRIFLEET_REDIS_DB", -1); redisDB >= 0 {
		cfg.Storage.RedisDB = redisDB
	}
	if retries := getEnvInt("AGRIFLEET_REDIS_MAX_RETRIES", 0); retries > 0 {
		cfg.Storage.RedisMaxRetries = retries
	}
	if poolSize := getEnvInt("AGRIFLEET_REDIS_POOL_SIZE", 0); poolSize > 0 {
		cfg.Storage.RedisPoolSize = poolSize
	}

	// Dictionary cache
	if cacheEnabled := getEnv("AGRIFLEET_CACHE_ENABLED", ""); cacheEnabled != "" {
		cfg.Storage.CacheEnabled = strings.ToLower(cacheEnabled) == "true" || cacheEnabled == "1"
	}
	if ttl := getEnvDuration("AGRIFLEET_CACHE_TTL", 0); ttl > 0 {
		cfg.Storage.CacheTTL = ttl
	}
	if size := getEnvInt("AGRIFLEET_L1_CACHE_SIZE", 0); size > 0 {
		cfg.Storage.L1CacheSize = size
	}

	// Authentication
	cfg.Auth.JWTSecret = getEnv("AGRIFLEET_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = getEnvDuration("AGRIFLEET_TOKEN_TTL", cfg.Auth.TokenTTL)
	cfg.Auth.SessionTTL = getEnvDuration("AGRIFLEET_SESSION_TTL", cfg.Auth.SessionTTL)

	// Observability
	if level := getEnv("AGRIFLEET_LOG_LEVEL", ""); level != "" {
		cfg.Observability.LogLevel = observability.ParseLogLevel(level)
	}
	cfg.Observability.MetricsEnabled = getEnvBool("AGRIFLEET_METRICS_ENABLED", cfg.Observability.MetricsEnabled)

	// Scheduler
	cfg.Scheduler.MaintenanceScanSpec = getEnv("AGRIFLEET_MAINTENANCE_SCAN_SPEC", cfg.Scheduler.MaintenanceScanSpec)
	cfg.Scheduler.LogCleanupSpec = getEnv("AGRIFLEET_LOG_CLEANUP_SPEC", cfg.Scheduler.LogCleanupSpec)
	if days := getEnvInt("AGRIFLEET_LOG_RETENTION_DAYS", 0); days > 0 {
		cfg.Scheduler.LogRetention = time.Duration(days) * 24 * time.Hour
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("JWT secret must be at least 16 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.Scheduler.LogRetention <= 0 {
		return fmt.Errorf("log retention must be positive")
	}
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
