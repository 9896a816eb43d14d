package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/farmops/agrifleet/pkg/observability"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AGRIFLEET_POSTGRES_URL", "postgres://localhost/agrifleet?sslmode=disable")
	t.Setenv("AGRIFLEET_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AGRIFLEET_JWT_SECRET", "test-secret-0123456789")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8080" || cfg.Server.HealthPort != "9090" {
		t.Errorf("unexpected ports: %s / %s", cfg.Server.Port, cfg.Server.HealthPort)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("token TTL = %v, want 24h", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.SessionTTL != cfg.Auth.TokenTTL {
		t.Errorf("session TTL = %v, must follow token TTL %v", cfg.Auth.SessionTTL, cfg.Auth.TokenTTL)
	}
	if cfg.Scheduler.LogRetention != 90*24*time.Hour {
		t.Errorf("log retention = %v, want 90 days", cfg.Scheduler.LogRetention)
	}
	if !cfg.Storage.CacheEnabled || cfg.Storage.L1CacheSize != 256 {
		t.Errorf("unexpected cache defaults: %+v", cfg.Storage)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AGRIFLEET_PORT", "8090")
	t.Setenv("AGRIFLEET_TOKEN_TTL", "2h")
	t.Setenv("AGRIFLEET_LOG_LEVEL", "debug")
	t.Setenv("AGRIFLEET_LOG_RETENTION_DAYS", "30")
	t.Setenv("AGRIFLEET_CACHE_ENABLED", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8090" {
		t.Errorf("port = %s, want 8090", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("token TTL = %v, want 2h", cfg.Auth.TokenTTL)
	}
	if cfg.Observability.LogLevel != observability.DebugLevel {
		t.Errorf("log level = %v, want debug", cfg.Observability.LogLevel)
	}
	if cfg.Scheduler.LogRetention != 30*24*time.Hour {
		t.Errorf("log retention = %v, want 30 days", cfg.Scheduler.LogRetention)
	}
	if cfg.Storage.CacheEnabled {
		t.Error("cache must be disabled")
	}
}

func TestLoadConfig_SessionTTLFollowsTokenTTL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AGRIFLEET_TOKEN_TTL", "2h")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Auth.SessionTTL != 2*time.Hour {
		t.Errorf("session TTL = %v, must follow the 2h token TTL", cfg.Auth.SessionTTL)
	}

	// An explicit idle window still wins over the token lifetime.
	t.Setenv("AGRIFLEET_SESSION_TTL", "45m")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Auth.SessionTTL != 45*time.Minute {
		t.Errorf("session TTL = %v, want the explicit 45m", cfg.Auth.SessionTTL)
	}
}

func TestLoadConfig_FileOverlay(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "agrifleet.yaml")
	content := `
server:
  port: "8888"
auth:
  tokenTtl: 12h
scheduler:
  maintenanceScanSpec: "0 6 * * *"
  logRetentionDays: 45
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file failed: %v", err)
	}
	t.Setenv("AGRIFLEET_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8888" {
		t.Errorf("port = %s, want 8888", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Errorf("token TTL = %v, want 12h", cfg.Auth.TokenTTL)
	}
	if cfg.Scheduler.MaintenanceScanSpec != "0 6 * * *" {
		t.Errorf("scan spec = %q", cfg.Scheduler.MaintenanceScanSpec)
	}
	if cfg.Scheduler.LogRetention != 45*24*time.Hour {
		t.Errorf("log retention = %v, want 45 days", cfg.Scheduler.LogRetention)
	}
}

func TestLoadConfig_EnvBeatsFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "agrifleet.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"8888\"\n"), 0o600); err != nil {
		t.Fatalf("writing config file failed: %v", err)
	}
	t.Setenv("AGRIFLEET_CONFIG_FILE", path)
	t.Setenv("AGRIFLEET_PORT", "9999")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("environment must beat the file, got port %s", cfg.Server.Port)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	cases := []struct {
		name  string
		setup func(t *testing.T)
		want  string
	}{
		{
			name: "missing JWT secret",
			setup: func(t *testing.T) {
				t.Setenv("AGRIFLEET_POSTGRES_URL", "postgres://localhost/agrifleet")
				t.Setenv("AGRIFLEET_REDIS_URL", "redis://localhost:6379/0")
			},
			want: "JWT secret is required",
		},
		{
			name: "short JWT secret",
			setup: func(t *testing.T) {
				setRequiredEnv(t)
				t.Setenv("AGRIFLEET_JWT_SECRET", "short")
			},
			want: "at least 16 characters",
		},
		{
			name: "missing postgres URL",
			setup: func(t *testing.T) {
				setRequiredEnv(t)
				t.Setenv("AGRIFLEET_POSTGRES_URL", "")
			},
			want: "postgres URL is required",
		},
		{
			name: "colliding ports",
			setup: func(t *testing.T) {
				setRequiredEnv(t)
				t.Setenv("AGRIFLEET_PORT", "9090")
			},
			want: "must be different",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setup(t)
			_, err := LoadConfig()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STRING", "custom")
	if got := getEnv("TEST_STRING", "default"); got != "custom" {
		t.Errorf("getEnv = %q", got)
	}
	if got := getEnv("TEST_STRING_UNSET", "default"); got != "default" {
		t.Errorf("getEnv = %q", got)
	}

	t.Setenv("TEST_BOOL", "1")
	if !getEnvBool("TEST_BOOL", false) {
		t.Error("getEnvBool must accept 1")
	}

	t.Setenv("TEST_INT", "42")
	if got := getEnvInt("TEST_INT", 0); got != 42 {
		t.Errorf("getEnvInt = %d", got)
	}
	t.Setenv("TEST_INT_BAD", "not a number")
	if got := getEnvInt("TEST_INT_BAD", 7); got != 7 {
		t.Errorf("getEnvInt must fall back on parse errors, got %d", got)
	}

	t.Setenv("TEST_DURATION", "90s")
	if got := getEnvDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("getEnvDuration = %v", got)
	}
}
