package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port string

	// Entity storage
	StorageBackend string
	SQLiteDBPath   string
	PostgresDSN    string
	MongoURI       string
	MongoDB        string

	// Sessions
	SessionBackend string
	RedisAddr      string
	RedisPassword  string
	SessionTTL     time.Duration
	SecureCookie   bool
	BcryptCost     int

	// Report exports
	ExportBackend  string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	CORSAllowedOrigins []string
	Timezone           string
	LogLevel           string
	LogFormat          string
	SeedDemoUser       bool
}

var (
	storageBackends = []string{"memory", "sqlite", "postgres", "mongo"}
	sessionBackends = []string{"memory", "redis"}
	exportBackends  = []string{"memory", "minio"}
	logFormats      = []string{"text", "json"}
)

// Load reads .env when present, then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port: getenv("PORT", "8080"),

		StorageBackend: getenv("STORAGE_BACKEND", "memory"),
		SQLiteDBPath:   getenv("SQLITE_DB_PATH", "./data/daybook.db"),
		PostgresDSN:    getenv("POSTGRES_DSN", ""),
		MongoURI:       getenv("MONGO_URI", ""),
		MongoDB:        getenv("MONGO_DB", "daybook"),

		SessionBackend: getenv("SESSION_BACKEND", "memory"),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		SessionTTL:     getEnvDuration("SESSION_TTL", 24*time.Hour),
		SecureCookie:   getEnvBool("SECURE_COOKIE", false),
		BcryptCost:     getEnvInt("BCRYPT_COST", bcrypt.DefaultCost),

		ExportBackend:  getenv("EXPORT_BACKEND", "memory"),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "daybook-exports"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		CORSAllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		Timezone:           getenv("APP_TIMEZONE", "Local"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		LogFormat:          getenv("LOG_FORMAT", "text"),
		SeedDemoUser:       getEnvBool("SEED_DEMO_USER", false),
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(storageBackends, c.StorageBackend) {
		problems = append(problems, fmt.Sprintf("invalid storage backend '%s': must be one of %v", c.StorageBackend, storageBackends))
	}
	switch c.StorageBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLITE_DB_PATH cannot be empty when using sqlite backend")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			problems = append(problems, "POSTGRES_DSN is required when using postgres backend")
		}
	case "mongo":
		if c.MongoURI == "" {
			problems = append(problems, "MONGO_URI is required when using mongo backend")
		}
		if c.MongoDB == "" {
			problems = append(problems, "MONGO_DB cannot be empty when using mongo backend")
		}
	}

	if !slices.Contains(sessionBackends, c.SessionBackend) {
		problems = append(problems, fmt.Sprintf("invalid session backend '%s': must be one of %v", c.SessionBackend, sessionBackends))
	}
	if c.SessionBackend == "redis" && c.RedisAddr == "" {
		problems = append(problems, "REDIS_ADDR is required when using redis sessions")
	}
	if c.SessionTTL < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid session ttl %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		problems = append(problems, fmt.Sprintf("invalid bcrypt cost %d: must be between %d and %d", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}

	if !slices.Contains(exportBackends, c.ExportBackend) {
		problems = append(problems, fmt.Sprintf("invalid export backend '%s': must be one of %v", c.ExportBackend, exportBackends))
	}
	if c.ExportBackend == "minio" {
		if c.MinioEndpoint == "" {
			problems = append(problems, "MINIO_ENDPOINT is required when using minio exports")
		}
		if c.MinioBucket == "" {
			problems = append(problems, "MINIO_BUCKET cannot be empty when using minio exports")
		}
	}

	if _, err := c.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.LogFormat)) {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, logFormats))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Location resolves APP_TIMEZONE. Calendar windows are computed in it.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
