// Package config reads the process environment once at startup.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAPIURL is used when neither API_URL nor EXPO_PUBLIC_API_URL is set.
const DefaultAPIURL = "https://api.example.com"

// Environment is the deployment stage the app runs in.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// ParseEnvironment validates s. The empty string is development.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case "", Development:
		return Development, nil
	case Staging:
		return Staging, nil
	case Production:
		return Production, nil
	default:
		return "", fmt.Errorf("invalid ENV %q: must be development, staging or production", s)
	}
}

// Storage selects and configures the key-value backend.
type Storage struct {
	Driver          string // memory, file, sqlite, redis, dynamodb
	Path            string
	RedisAddr       string
	RedisPassword   string
	RedisPrefix     string
	DynamoEndpoint  string
	DynamoTableName string
	AWSRegion       string
}

// Server configures the development API server.
type Server struct {
	Port            string
	JWTSecret       string
	JWTIssuer       string
	TokenTTL        time.Duration
	CORSAllowOrigin string
	DevBypassAuth   bool
}

type Config struct {
	APIURL   string
	Env      Environment
	LogLevel slog.Level
	Storage  Storage
	Server   Server
}

// Load reads .env (if present) and then the environment. Variables already
// set in the environment win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	env, err := ParseEnvironment(firstEnv("ENV", "EXPO_PUBLIC_ENV"))
	if err != nil {
		return Config{}, err
	}

	ttl := 24 * time.Hour
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		ttl, err = time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TOKEN_TTL %q: %w", v, err)
		}
	}

	driver := strings.ToLower(envOrDefault("STORAGE_DRIVER", "file"))

	cfg := Config{
		APIURL:   orDefault(firstEnv("API_URL", "EXPO_PUBLIC_API_URL"), DefaultAPIURL),
		Env:      env,
		LogLevel: parseLogLevel(os.Getenv("LOG_LEVEL")),
		Storage: Storage{
			Driver:          driver,
			Path:            envOrDefault("STORAGE_PATH", DefaultStoragePath(driver)),
			RedisAddr:       envOrDefault("REDIS_ADDR", "localhost:6379"),
			RedisPassword:   os.Getenv("REDIS_PASSWORD"),
			RedisPrefix:     os.Getenv("REDIS_PREFIX"),
			DynamoEndpoint:  os.Getenv("DYNAMODB_ENDPOINT"),
			DynamoTableName: envOrDefault("DYNAMODB_TABLE_NAME", "zimzimba-kv"),
			AWSRegion:       envOrDefault("AWS_REGION", "us-east-1"),
		},
		Server: Server{
			Port:            envOrDefault("SERVER_PORT", "8080"),
			JWTSecret:       os.Getenv("JWT_SECRET"),
			JWTIssuer:       os.Getenv("JWT_ISSUER"),
			TokenTTL:        ttl,
			CORSAllowOrigin: envOrDefault("CORS_ALLOW_ORIGIN", "*"),
			DevBypassAuth:   strings.EqualFold(os.Getenv("DEV_BYPASS_AUTH"), "true"),
		},
	}

	return cfg, nil
}

func (c Config) IsDevelopment() bool { return c.Env == Development }
func (c Config) IsStaging() bool     { return c.Env == Staging }
func (c Config) IsProduction() bool  { return c.Env == Production }

// RequireJWTSecret fails when the dev server has no signing secret.
func (c Config) RequireJWTSecret() error {
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return nil
}

// NewLogger returns a text logger in development and a JSON logger otherwise.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.IsDevelopment() {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// DefaultStoragePath is the on-disk location used by the file and sqlite drivers.
func DefaultStoragePath(driver string) string {
	if driver == "sqlite" {
		return ".zimzimba/storage.db"
	}
	return ".zimzimba/storage.json"
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func envOrDefault(key, fallback string) string {
	return orDefault(os.Getenv(key), fallback)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
