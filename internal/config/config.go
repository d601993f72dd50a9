package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	LockLocal = "local"
	LockRedis = "redis"
)

// Config holds all configuration for the application.
type Config struct {
	ServiceName  string
	LogLevel     string
	Seed         bool
	Server       ServerConfig
	Storage      StorageConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	NewRelic     NewRelicConfig
	Dispatch     DispatchConfig
	Notification NotificationConfig
	Maps         MapsConfig
	Auth         AuthConfig
	Report       ReportConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StorageConfig selects the backing stores.
type StorageConfig struct {
	Driver     string
	LockDriver string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	RunMigrations bool
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// DispatchConfig holds dispatch tuning.
type DispatchConfig struct {
	LockTTL    time.Duration
	DefaultETA int
}

// NotificationConfig holds the outbound notification channels. Empty values
// disable the channel.
type NotificationConfig struct {
	AMQPURL          string
	AMQPExchange     string
	TelegramToken    string
	TelegramOpsChat  int64
	TrackingPingTime time.Duration
}

// MapsConfig holds route provider settings.
type MapsConfig struct {
	GoogleAPIKey string
	Region       string
}

// AuthConfig holds admin API authentication.
type AuthConfig struct {
	AdminJWTSecret string
}

// ReportConfig holds reporting settings.
type ReportConfig struct {
	TimeZone string
}

// Load loads configuration from a .env file (if present) and environment
// variables.
func Load() *Config {
	_ = godotenv.Load(".env")

	return &Config{
		ServiceName: getEnv("SERVICE_NAME", "instantride"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Seed:        getBoolEnv("SEED_DATA", true),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			Driver:     getEnv("STORAGE_DRIVER", StorageMemory),
			LockDriver: getEnv("LOCK_DRIVER", LockLocal),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			DBName:        getEnv("DB_NAME", "instantride"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			RunMigrations: getBoolEnv("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			CacheTTL: getDurationEnv("REDIS_RIDE_CACHE_TTL", 10*time.Second),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "instantride"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Dispatch: DispatchConfig{
			LockTTL:    getDurationEnv("DISPATCH_LOCK_TTL", 5*time.Second),
			DefaultETA: getIntEnv("DISPATCH_DEFAULT_ETA_MIN", 6),
		},
		Notification: NotificationConfig{
			AMQPURL:          getEnv("AMQP_URL", ""),
			AMQPExchange:     getEnv("AMQP_EXCHANGE", "ride_topic"),
			TelegramToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
			TelegramOpsChat:  getInt64Env("TELEGRAM_OPS_CHAT_ID", 0),
			TrackingPingTime: getDurationEnv("TRACKING_PING_PERIOD", 30*time.Second),
		},
		Maps: MapsConfig{
			GoogleAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),
			Region:       getEnv("GOOGLE_MAPS_REGION", "NG"),
		},
		Auth: AuthConfig{
			AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		},
		Report: ReportConfig{
			TimeZone: getEnv("REPORT_TIMEZONE", "Africa/Lagos"),
		},
	}
}

// Location resolves the report time zone, falling back to UTC.
func (c ReportConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := cast.ToIntE(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := cast.ToInt64E(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := cast.ToBoolE(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := cast.ToDurationE(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
