package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	httpapi "github.com/agriconnect/farmerportal/internal/portal/http"
	"github.com/agriconnect/farmerportal/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"ENV", "PORT", "STORAGE_MODE", "OTP_STORE", "MAIL_DRIVER", "REQUIRE_ADMIN_APPROVAL", "SHUTDOWN_GRACE_PERIOD", "CORS_ALLOWED_ORIGINS", "RATELIMIT_STRICT", "RATELIMIT_LENIENT"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, 5000, cfg.Port)
	require.Equal(t, "sqlite", cfg.StorageMode)
	require.Equal(t, "memory", cfg.OTPStore)
	require.Equal(t, "log", cfg.MailDriver)
	require.True(t, cfg.RequireAdminApproval)
	require.Equal(t, 10*time.Second, cfg.ShutdownGracePeriod)
	require.Equal(t, "0 8,12,16 * * *", cfg.MarketRefreshSchedule)
	require.Equal(t, "Asia/Kolkata", cfg.MarketTimezone)
	require.Nil(t, cfg.CORSAllowedOrigins)
	require.Equal(t, httpapi.DefaultLimits(), cfg.RateLimits)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("STORAGE_MODE", "JSON")
	t.Setenv("REQUIRE_ADMIN_APPROVAL", "false")
	t.Setenv("OTP_SWEEP_INTERVAL", "30")
	t.Setenv("SHUTDOWN_GRACE_PERIOD", "1m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.in, https://b.in")
	t.Setenv("SMTP_PORT", "not-a-number")
	t.Setenv("RATELIMIT_STRICT", "10/5m")
	t.Setenv("RATELIMIT_PUBLIC", "")

	cfg := LoadConfig()
	require.Equal(t, 8081, cfg.Port)
	require.Equal(t, "json", cfg.StorageMode)
	require.False(t, cfg.RequireAdminApproval)
	require.Equal(t, 30*time.Second, cfg.OTPSweepInterval)
	require.Equal(t, time.Minute, cfg.ShutdownGracePeriod)
	require.Equal(t, []string{"https://a.in", "https://b.in"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 587, cfg.SMTPPort)
	require.Equal(t, httpx.RateLimitConfig{RequestsPerWindow: 10, Window: 5 * time.Minute, Burst: 10}, cfg.RateLimits.Strict)
	require.Equal(t, httpx.PublicLimit, cfg.RateLimits.Public)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigRejectsMalformedRateLimit(t *testing.T) {
	t.Setenv("RATELIMIT_LENIENT", "lots")

	cfg := LoadConfig()
	require.Equal(t, httpx.LenientLimit, cfg.RateLimits.Lenient)
	require.ErrorContains(t, cfg.Validate(), "RATELIMIT_LENIENT")
}

func validConfig() Config {
	return Config{
		Env:         "prod",
		Port:        5000,
		JWTSecret:   strings.Repeat("s", 32),
		StorageMode: "sqlite",
		OTPStore:    "memory",
		MailDriver:  "log",
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"secret required in prod", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET is required"},
		{"secret optional in dev", func(c *Config) { c.JWTSecret = ""; c.Env = "dev" }, ""},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "at least 32 bytes"},
		{"storage mode", func(c *Config) { c.StorageMode = "postgres" }, "STORAGE_MODE"},
		{"redis url", func(c *Config) { c.OTPStore = "redis" }, "REDIS_URL"},
		{"otp store", func(c *Config) { c.OTPStore = "disk" }, "OTP_STORE"},
		{"smtp host", func(c *Config) { c.MailDriver = "smtp" }, "SMTP_HOST"},
		{"admin pair", func(c *Config) { c.AdminEmail = "root@portal.in" }, "set together"},
		{"admin email", func(c *Config) { c.AdminEmail = "root"; c.AdminPassword = "long-enough" }, "ADMIN_EMAIL"},
		{"port", func(c *Config) { c.Port = 70000 }, "PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNewServesHealth(t *testing.T) {
	dir := t.TempDir()
	cfg := validConfig()
	cfg.Env = "dev"
	cfg.JWTSecret = ""
	cfg.LogLevel = "error"
	cfg.StorageMode = "json"
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.PepperFile = filepath.Join(dir, "pepper")
	cfg.AdminEmail = "root@portal.in"
	cfg.AdminPassword = "admin-pass-1"
	cfg.MarketRefreshSchedule = "0 8 * * *"
	cfg.MarketTimezone = "UTC"
	cfg.ShutdownGracePeriod = time.Second

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.closeStores() })

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A second start finds the admin already there.
	created, err := a.bootstrapService.EnsureMainAdmin(t.Context())
	require.NoError(t, err)
	require.False(t, created)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.StorageMode = "mongo"
	_, err := New(cfg)
	require.ErrorContains(t, err, "invalid configuration")
}
