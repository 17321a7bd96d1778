package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	App     AppConfig
	Redis   RedisConfig
	DB      DBConfig
	Auth    AuthConfig
	Billing BillingConfig
}

type AppConfig struct {
	Port        string
	GRPCPort    string
	RateLimit   string
	CORSOrigins []string
	CacheTTL    time.Duration
	LogLevel    string
}

type DBConfig struct {
	Driver string
	DSN    string
}

type AuthConfig struct {
	JWTSecret string
}

// BillingConfig holds the paid-bill policy. FreezeWhenPaid keeps the total of a
// paid bill fixed when the items of its order change afterwards.
type BillingConfig struct {
	FreezeWhenPaid bool
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisEnabled, _ := strconv.ParseBool(getEnv("REDIS_ENABLED", "false"))
	freeze, _ := strconv.ParseBool(getEnv("BILL_FREEZE_WHEN_PAID", "false"))

	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	if err != nil {
		logrus.Warnf("invalid CACHE_TTL, falling back to 5m: %v", err)
		cacheTTL = 5 * time.Minute
	}

	return Config{
		App: AppConfig{
			Port:        getEnv("APP_PORT", "8080"),
			GRPCPort:    getEnv("GRPC_PORT", "50060"),
			RateLimit:   getEnv("RATE_LIMIT", "100-M"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
			CacheTTL:    cacheTTL,
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Redis: RedisConfig{
			Enabled:  redisEnabled,
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			Driver: getEnv("DB_DRIVER", "postgres"),
			DSN:    getEnv("DB_DSN", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Billing: BillingConfig{
			FreezeWhenPaid: freeze,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
