package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSupabase = "supabase"
	DriverMemory   = "memory"

	TablesREST     = "rest"
	TablesPostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Remote   RemoteConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	App      AppConfig
}

type ServerConfig struct {
	Port            string
	BaseURL         string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type RemoteConfig struct {
	Driver    string
	Tables    string
	URL       string
	AnonKey   string
	JWTSecret string
	RateLimit float64
	RateBurst int
}

type DatabaseConfig struct {
	DSN      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	port := getEnv("PORT", "8080")
	cfg := &Config{
		Server: ServerConfig{
			Port:            port,
			BaseURL:         getEnv("BASE_URL", "http://localhost:"+port),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		},
		Remote: RemoteConfig{
			Driver:    getEnv("REMOTE_DRIVER", DriverSupabase),
			Tables:    getEnv("REMOTE_TABLES", TablesREST),
			URL:       getEnv("SUPABASE_URL", ""),
			AnonKey:   getEnv("SUPABASE_ANON_KEY", ""),
			JWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
			RateLimit: getEnvAsFloat("REMOTE_RATE_LIMIT", 10),
			RateBurst: getEnvAsInt("REMOTE_RATE_BURST", 20),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", ""),
			TTL:    getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Remote.Driver {
	case DriverSupabase:
		if c.Remote.URL == "" {
			return fmt.Errorf("SUPABASE_URL is required")
		}
		if c.Remote.AnonKey == "" {
			return fmt.Errorf("SUPABASE_ANON_KEY is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown REMOTE_DRIVER %q", c.Remote.Driver)
	}

	switch c.Remote.Tables {
	case TablesREST:
	case TablesPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DB_DSN is required when REMOTE_TABLES=postgres")
		}
	default:
		return fmt.Errorf("unknown REMOTE_TABLES %q", c.Remote.Tables)
	}

	if c.App.IsProduction() && c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required in production")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
