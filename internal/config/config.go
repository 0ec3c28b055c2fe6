package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hitoshi/hrportal/internal/notify"
	"github.com/hitoshi/hrportal/internal/ratelimit"
)

// EnvDevelopment は開発環境を表すAPP_ENVの値。
const EnvDevelopment = "development"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// App
	Env      string
	Timezone string
	Location *time.Location

	// Server
	ServerPort string
	AdminToken string

	// Remote store
	RequestTimeout  time.Duration
	RequestAttempts int
	CacheTTL        time.Duration

	// Rate Limit
	RateLimits    ratelimit.SetConfig
	SweepInterval time.Duration

	// Discord
	Webhooks notify.Webhooks
}

// IsDevelopment は開発環境かどうかを返す。
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合、タイムゾーンやWebhook URLが不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	if cfg.AdminToken == "" {
		missing = append(missing, "ADMIN_TOKEN")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.Env = getEnvString("APP_ENV", "production")
	cfg.Timezone = getEnvString("APP_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", 10*time.Second)
	cfg.RequestAttempts = getEnvInt("REQUEST_ATTEMPTS", 3)
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", 5*time.Minute)
	cfg.SweepInterval = getEnvDuration("SWEEP_INTERVAL", time.Minute)

	defaults := ratelimit.DefaultSetConfig()
	cfg.RateLimits = ratelimit.SetConfig{
		API:    getEnvLimit("RATE_LIMIT_API", defaults.API),
		Auth:   getEnvLimit("RATE_LIMIT_AUTH", defaults.Auth),
		Export: getEnvLimit("RATE_LIMIT_EXPORT", defaults.Export),
		Notify: getEnvLimit("RATE_LIMIT_NOTIFY", defaults.Notify),
		Store:  getEnvLimit("RATE_LIMIT_STORE", defaults.Store),
	}

	cfg.Webhooks = notify.Webhooks{
		Duty:        os.Getenv("DISCORD_WEBHOOK_URL"),
		Off:         os.Getenv("DISCORD_OFF_WEBHOOK_URL"),
		Leave:       os.Getenv("DISCORD_LEAVE_WEBHOOK_URL"),
		Resignation: os.Getenv("DISCORD_RESIGNATION_WEBHOOK_URL"),
	}
	if err := cfg.Webhooks.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnvLimit は <prefix>_MAX と <prefix>_WINDOW からリミッター設定を読み込む。
func getEnvLimit(prefix string, defaultVal ratelimit.Config) ratelimit.Config {
	return ratelimit.Config{
		MaxRequests: getEnvInt(prefix+"_MAX", defaultVal.MaxRequests),
		Window:      getEnvDuration(prefix+"_WINDOW", defaultVal.Window),
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
