package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Pool      PoolConfig
	Log       LogConfig
	Auth      AuthConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port         string
	GinMode      string
	AllowOrigins []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PoolConfig holds the limits of the code pool
type PoolConfig struct {
	DailyPostLimit  int
	DailyClaimLimit int
	InitialUses     int
	MaxListLimit    int
	ListCacheTTL    time.Duration
	QuotaTimezone   string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig holds identity settings. An empty JWTSecret means identity is
// taken from the X-User-Id header only.
type AuthConfig struct {
	JWTSecret string
}

// RedisConfig holds Redis settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig holds write-route rate limiting settings
type RateLimitConfig struct {
	PerMinute int
}

// JobsConfig holds background job settings
type JobsConfig struct {
	PoolStatsInterval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8000"),
			GinMode:      getEnv("GIN_MODE", "debug"),
			AllowOrigins: splitList(getEnv("CORS_ALLOW_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", "sqlite://./invite_exchange.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Pool: PoolConfig{
			DailyPostLimit:  getEnvInt("DAILY_POST_LIMIT", 5),
			DailyClaimLimit: getEnvInt("DAILY_CLAIM_LIMIT", 3),
			InitialUses:     getEnvInt("INITIAL_USES", 10),
			MaxListLimit:    getEnvInt("MAX_LIST_LIMIT", 100),
			ListCacheTTL:    getEnvDuration("LIST_CACHE_TTL", 3*time.Second),
			QuotaTimezone:   getEnv("QUOTA_TIMEZONE", "Local"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Jobs: JobsConfig{
			PoolStatsInterval: getEnvDuration("POOL_STATS_INTERVAL", 0),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Default returns the configuration used when no environment is set.
// Tests build on it instead of reading the process environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8000",
			GinMode:      "debug",
			AllowOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			URL:             "sqlite://./invite_exchange.db",
			MaxOpenConns:    20,
			MaxIdleConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Pool: PoolConfig{
			DailyPostLimit:  5,
			DailyClaimLimit: 3,
			InitialUses:     10,
			MaxListLimit:    100,
			ListCacheTTL:    3 * time.Second,
			QuotaTimezone:   "Local",
		},
		Log:       LogConfig{Level: "info", Format: "json"},
		RateLimit: RateLimitConfig{PerMinute: 60},
	}
}

// Validate checks the values that would otherwise fail at request time
func (c *Config) Validate() error {
	if c.Pool.DailyPostLimit <= 0 || c.Pool.DailyClaimLimit <= 0 {
		return fmt.Errorf("daily limits must be positive")
	}
	if c.Pool.InitialUses <= 0 {
		return fmt.Errorf("INITIAL_USES must be positive")
	}
	if c.Pool.MaxListLimit <= 0 {
		return fmt.Errorf("MAX_LIST_LIMIT must be positive")
	}
	if c.Pool.ListCacheTTL <= 0 {
		return fmt.Errorf("LIST_CACHE_TTL must be positive")
	}
	if _, err := c.Pool.Location(); err != nil {
		return fmt.Errorf("invalid QUOTA_TIMEZONE %q: %w", c.Pool.QuotaTimezone, err)
	}
	if _, err := c.Database.Dialect(); err != nil {
		return err
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("GIN_MODE must be debug, release or test, got %q", c.Server.GinMode)
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	return nil
}

// Location resolves the timezone used to bucket daily quotas
func (p *PoolConfig) Location() (*time.Location, error) {
	if p.QuotaTimezone == "" || p.QuotaTimezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(p.QuotaTimezone)
}

// Dialect returns "postgres" or "sqlite" depending on the URL scheme
func (d *DatabaseConfig) Dialect() (string, error) {
	switch {
	case strings.HasPrefix(d.URL, "postgres://"), strings.HasPrefix(d.URL, "postgresql://"):
		return "postgres", nil
	case strings.HasPrefix(d.URL, "sqlite://"):
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported DATABASE_URL scheme: %q", d.URL)
	}
}

// SQLitePath returns the file path part of a sqlite:// URL
func (d *DatabaseConfig) SQLitePath() string {
	return strings.TrimPrefix(d.URL, "sqlite://")
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvDuration accepts Go durations ("3s") and plain seconds ("3", "2.5")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
