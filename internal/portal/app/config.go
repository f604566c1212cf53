package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	httpapi "github.com/agriconnect/farmerportal/internal/portal/http"
	"github.com/agriconnect/farmerportal/pkg/httpx"
	"github.com/agriconnect/farmerportal/pkg/jwtx"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
	"github.com/joho/godotenv"
)

type Config struct {
	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 5000)

	JWTSecret string // Required outside dev: HS256 secret, at least 32 bytes
	JWTIssuer string // Optional: issuer claim (default: farmer-portal)

	StorageMode  string // Optional: sqlite or json (default: sqlite)
	DatabaseFile string // Optional: SQLite file (default: ./portal.db)
	DataDir      string // Optional: directory for the json store (default: ./data)
	PepperFile   string // Optional: pepper for password hashing (default: ./pepper)

	RequireAdminApproval bool // Keep new farmers pending until approved (default: true)

	OTPStore         string        // Optional: memory or redis (default: memory)
	RedisURL         string        // Required when OTPStore is redis
	OTPSweepInterval time.Duration // Expired challenge sweep interval (default: 1m)

	AdminEmail    string // Optional: MAIN_ADMIN created on first start
	AdminPassword string
	AdminUsername string

	MailDriver   string // Optional: log or smtp (default: log)
	SMTPHost     string
	SMTPPort     int // default: 587
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	MarketAPIURL          string
	MarketAPIKey          string
	MarketRefreshSchedule string // cron spec (default: 0 8,12,16 * * *)
	MarketTimezone        string // (default: Asia/Kolkata)
	WeatherAPIURL         string
	WeatherAPIKey         string

	CORSAllowedOrigins  []string
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	// RateLimits replaces the router's profiles when set. Each profile reads
	// RATELIMIT_{STRICT,REGISTRATION,MODERATE,LENIENT,PUBLIC} as
	// requests/window[/burst], e.g. 5/15m.
	RateLimits    httpapi.Limits
	rateLimitErrs []error
}

// LoadConfig reads the environment, after loading .env when one exists.
// Variables already set win over the file.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 5000),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: getEnvOrDefault("JWT_ISSUER", "farmer-portal"),

		StorageMode:  strings.ToLower(getEnvOrDefault("STORAGE_MODE", "sqlite")),
		DatabaseFile: getEnvOrDefault("DATABASE_FILE", "portal.db"),
		DataDir:      getEnvOrDefault("DATA_DIR", "data"),
		PepperFile:   getEnvOrDefault("PEPPER_FILE", "pepper"),

		RequireAdminApproval: getEnvBoolOrDefault("REQUIRE_ADMIN_APPROVAL", true),

		OTPStore:         strings.ToLower(getEnvOrDefault("OTP_STORE", "memory")),
		RedisURL:         os.Getenv("REDIS_URL"),
		OTPSweepInterval: getEnvDurationOrDefault("OTP_SWEEP_INTERVAL", time.Minute),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminUsername: getEnvOrDefault("ADMIN_USERNAME", "admin"),

		MailDriver:   strings.ToLower(getEnvOrDefault("MAIL_DRIVER", "log")),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),

		MarketAPIURL:          os.Getenv("MARKET_API_URL"),
		MarketAPIKey:          os.Getenv("MARKET_API_KEY"),
		MarketRefreshSchedule: getEnvOrDefault("MARKET_REFRESH_SCHEDULE", "0 8,12,16 * * *"),
		MarketTimezone:        getEnvOrDefault("MARKET_TIMEZONE", "Asia/Kolkata"),
		WeatherAPIURL:         os.Getenv("WEATHER_API_URL"),
		WeatherAPIKey:         os.Getenv("WEATHER_API_KEY"),

		CORSAllowedOrigins:  httpx.SplitCommaList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
	cfg.loadRateLimits()
	return cfg
}

func (c *Config) loadRateLimits() {
	c.RateLimits = httpapi.DefaultLimits()
	for key, dst := range map[string]*httpx.RateLimitConfig{
		"RATELIMIT_STRICT":       &c.RateLimits.Strict,
		"RATELIMIT_REGISTRATION": &c.RateLimits.Registration,
		"RATELIMIT_MODERATE":     &c.RateLimits.Moderate,
		"RATELIMIT_LENIENT":      &c.RateLimits.Lenient,
		"RATELIMIT_PUBLIC":       &c.RateLimits.Public,
	} {
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}
		parsed, err := httpx.ParseRateLimit(raw)
		if err != nil {
			c.rateLimitErrs = append(c.rateLimitErrs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		*dst = parsed
	}
}

// Validate reports every setting that would stop the service from starting.
func (c Config) Validate() error {
	var errs []error

	switch {
	case c.JWTSecret == "" && c.Env != "dev":
		errs = append(errs, errors.New("JWT_SECRET is required outside dev"))
	case c.JWTSecret != "" && len(c.JWTSecret) < jwtx.MinSecretLength:
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", jwtx.MinSecretLength))
	}

	switch c.StorageMode {
	case "sqlite", "json":
	default:
		errs = append(errs, fmt.Errorf("STORAGE_MODE %q: want sqlite or json", c.StorageMode))
	}

	switch c.OTPStore {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when OTP_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("OTP_STORE %q: want memory or redis", c.OTPStore))
	}

	switch c.MailDriver {
	case "log":
	case "smtp":
		if c.SMTPHost == "" || c.SMTPFrom == "" {
			errs = append(errs, errors.New("SMTP_HOST and SMTP_FROM are required when MAIL_DRIVER=smtp"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_DRIVER %q: want log or smtp", c.MailDriver))
	}

	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	if c.AdminEmail != "" {
		if reason := portalsdk.CheckEmail(c.AdminEmail); reason != "" {
			errs = append(errs, fmt.Errorf("ADMIN_EMAIL: %s", reason))
		}
		if reason := portalsdk.CheckPassword(c.AdminPassword); reason != "" {
			errs = append(errs, fmt.Errorf("ADMIN_PASSWORD: %s", reason))
		}
	}

	errs = append(errs, c.rateLimitErrs...)

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
