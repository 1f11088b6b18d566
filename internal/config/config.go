package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string
	StoreType   string // "memory" or "postgres"

	Database DatabaseConfig
	Redis    RedisConfig

	Gateway GatewayConfig
	API     APIConfig
	Events  EventsConfig
	Persist PersistConfig
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	StreamMaxLen int64 // approximate cap applied on XADD, 0 disables trimming
}

// GatewayConfig holds the realtime socket gateway configuration
type GatewayConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	SweepInterval   time.Duration
	MaxConnections  int
	SendBufferSize  int
	JWTSecret       string
	RequireIdentity bool
	// PersistMessages stores socket sendMessage frames. Off by default since
	// clients store messages through the HTTP API.
	PersistMessages bool
	MountAPI        bool
	AllowedOrigins  []string
}

// APIConfig holds REST API configuration
type APIConfig struct {
	Port         int
	JWTSecret    string
	EditWindow   time.Duration
	RateLimitRPS int
}

// EventsConfig selects how domain events travel from the API to the gateway
type EventsConfig struct {
	Transport     string // "bus" (in-process) or "redis"
	Stream        string
	ConsumerGroup string
	ConsumerName  string
}

// PersistConfig holds the asynchronous message sink configuration
type PersistConfig struct {
	BatchSize  int
	Interval   time.Duration
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// Load loads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		StoreType:   getEnv("STORE_TYPE", "memory"),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "matchline"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
			StreamMaxLen: int64(getEnvAsInt("REDIS_STREAM_MAXLEN", 10000)),
		},
		Gateway: GatewayConfig{
			Port:            getEnvAsInt("PORT", 8000),
			ReadTimeout:     getEnvAsDuration("GATEWAY_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:    getEnvAsDuration("GATEWAY_WRITE_TIMEOUT", 10*time.Second),
			PingInterval:    getEnvAsDuration("GATEWAY_PING_INTERVAL", 30*time.Second),
			SweepInterval:   getEnvAsDuration("GATEWAY_SWEEP_INTERVAL", 30*time.Second),
			MaxConnections:  getEnvAsInt("GATEWAY_MAX_CONNECTIONS", 5000),
			SendBufferSize:  getEnvAsInt("GATEWAY_SEND_BUFFER", 256),
			JWTSecret:       getEnv("GATEWAY_JWT_SECRET", getEnv("JWT_SECRET", "")),
			RequireIdentity: getEnvAsBool("GATEWAY_REQUIRE_IDENTITY", false),
			PersistMessages: getEnvAsBool("GATEWAY_PERSIST_SOCKET_MESSAGES", false),
			MountAPI:        getEnvAsBool("GATEWAY_MOUNT_API", true),
			AllowedOrigins:  getEnvAsStringSlice("ALLOWED_ORIGINS", []string{"*"}),
		},
		API: APIConfig{
			Port:         getEnvAsInt("API_PORT", 8090),
			JWTSecret:    getEnv("JWT_SECRET", ""),
			EditWindow:   getEnvAsDuration("CHAT_EDIT_WINDOW", 5*time.Minute),
			RateLimitRPS: getEnvAsInt("API_RATE_LIMIT_RPS", 50),
		},
		Events: EventsConfig{
			Transport:     getEnv("EVENTS_TRANSPORT", "bus"),
			Stream:        getEnv("EVENTS_STREAM", "matchline.events"),
			ConsumerGroup: getEnv("EVENTS_CONSUMER_GROUP", "realtime"),
			ConsumerName:  getEnv("EVENTS_CONSUMER_NAME", "realtime-1"),
		},
		Persist: PersistConfig{
			BatchSize:  getEnvAsInt("PERSIST_BATCH_SIZE", 100),
			Interval:   getEnvAsDuration("PERSIST_INTERVAL", 500*time.Millisecond),
			QueueSize:  getEnvAsInt("PERSIST_QUEUE_SIZE", 1000),
			MaxRetries: getEnvAsInt("PERSIST_MAX_RETRIES", 3),
			RetryDelay: getEnvAsDuration("PERSIST_RETRY_DELAY", 200*time.Millisecond),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.StoreType {
	case "memory":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required when STORE_TYPE=postgres")
		}
	default:
		return fmt.Errorf("unsupported STORE_TYPE %q", c.StoreType)
	}

	switch c.Events.Transport {
	case "bus":
	case "redis":
		if c.Redis.Host == "" {
			return fmt.Errorf("REDIS_HOST is required when EVENTS_TRANSPORT=redis")
		}
		if c.Events.Stream == "" || c.Events.ConsumerGroup == "" {
			return fmt.Errorf("EVENTS_STREAM and EVENTS_CONSUMER_GROUP are required when EVENTS_TRANSPORT=redis")
		}
	default:
		return fmt.Errorf("unsupported EVENTS_TRANSPORT %q", c.Events.Transport)
	}

	if c.Gateway.SendBufferSize <= 0 {
		return fmt.Errorf("GATEWAY_SEND_BUFFER must be positive")
	}
	if c.Persist.BatchSize <= 0 || c.Persist.QueueSize <= 0 {
		return fmt.Errorf("PERSIST_BATCH_SIZE and PERSIST_QUEUE_SIZE must be positive")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
