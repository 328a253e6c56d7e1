// Package config handles application configuration via environment variables.
// It uses kelseyhightower/envconfig for parsing and provides sensible defaults.
// A .env file, when present, is loaded first with godotenv; variables already
// set in the environment win.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
// Values are loaded from environment variables with the prefix "APP".
// Example: APP_PORT=8080, APP_LOG_LEVEL=debug
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Redis    RedisConfig
	Game     GameConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// Host is the HTTP server host (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// ReadTimeout is the maximum duration for reading the entire request (default: 10s)
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`

	// WriteTimeout is the maximum duration before timing out writes of the response (default: 30s)
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`

	// ShutdownTimeout is the maximum duration to wait for active connections to finish (default: 30s)
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// HealthTimeout bounds the dependency checks behind /health/detailed (default: 2s)
	HealthTimeout time.Duration `envconfig:"HEALTH_TIMEOUT" default:"2s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"postgres"`
	Password        string        `envconfig:"DB_PASSWORD" default:"postgres"`
	Name            string        `envconfig:"DB_NAME" default:"gptuessr"`
	SSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`

	// ConnectRetries is how many pings are attempted before startup fails (default: 5)
	ConnectRetries int `envconfig:"DB_CONNECT_RETRIES" default:"5"`

	// Migrate applies embedded schema migrations on startup (default: true)
	Migrate bool `envconfig:"DB_MIGRATE" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is the log level: debug, info, warn, error (default: info)
	Level string `envconfig:"LOG_LEVEL" default:"info"`

	// Format is the log format: json, text, plain (default: json)
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// AuthConfig holds token and webhook verification settings.
type AuthConfig struct {
	// JWTPublicKey is a PEM encoded RSA public key for RS256 session tokens.
	JWTPublicKey string `envconfig:"JWT_PUBLIC_KEY"`

	// JWTSecret is a shared secret for HS256 tokens, used when no public key is set.
	JWTSecret string `envconfig:"JWT_SECRET"`

	// JWTIssuer, when set, must match the token's iss claim.
	JWTIssuer string `envconfig:"JWT_ISSUER"`

	// JWTAudience, when set, must appear in the token's aud claim.
	JWTAudience string `envconfig:"JWT_AUDIENCE"`

	// JWTLeeway tolerates clock skew on exp and nbf (default: 30s)
	JWTLeeway time.Duration `envconfig:"JWT_LEEWAY" default:"30s"`

	// WebhookSecret is the signing secret of the identity provider webhook ("whsec_...").
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	MaxAge         time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

// RedisConfig holds the optional Redis connection used for cross-instance
// lobby code reservation. An empty address disables it.
type RedisConfig struct {
	Addr           string        `envconfig:"REDIS_ADDR"`
	Password       string        `envconfig:"REDIS_PASSWORD"`
	DB             int           `envconfig:"REDIS_DB" default:"0"`
	ReservationTTL time.Duration `envconfig:"REDIS_CODE_TTL" default:"48h"`
}

// GameConfig holds lobby and game tuning.
type GameConfig struct {
	// Storage selects the backend: postgres or memory (default: postgres)
	Storage string `envconfig:"STORAGE" default:"postgres"`

	// CodeMaxAttempts bounds lobby code generation retries (default: 16)
	CodeMaxAttempts int `envconfig:"CODE_MAX_ATTEMPTS" default:"16"`

	// StaleLobbyAge is how long a lobby may wait before the janitor closes it (default: 24h)
	StaleLobbyAge time.Duration `envconfig:"STALE_LOBBY_AGE" default:"24h"`

	// JanitorSchedule is the cron spec for the stale lobby sweep (default: daily at midnight)
	JanitorSchedule string `envconfig:"JANITOR_SCHEDULE" default:"0 0 * * *"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// UseMemoryStorage reports whether the in-memory backend is selected.
func (c *GameConfig) UseMemoryStorage() bool {
	return strings.EqualFold(c.Storage, "memory")
}

// LoadDotEnv loads variables from path if the file exists.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Load reads configuration from a .env file and the environment.
func Load() (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config

	// Each section is processed on its own so names stay flat (APP_PORT,
	// not APP_SERVER_PORT).
	sections := []struct {
		name string
		spec any
	}{
		{"server", &cfg.Server},
		{"database", &cfg.Database},
		{"log", &cfg.Log},
		{"auth", &cfg.Auth},
		{"cors", &cfg.CORS},
		{"redis", &cfg.Redis},
		{"game", &cfg.Game},
	}
	for _, s := range sections {
		if err := envconfig.Process("APP", s.spec); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTPublicKey == "" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("one of APP_JWT_PUBLIC_KEY or APP_JWT_SECRET is required")
	}
	switch strings.ToLower(c.Game.Storage) {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown APP_STORAGE %q, want postgres or memory", c.Game.Storage)
	}
	return nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main.go during startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
