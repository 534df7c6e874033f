package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv string

	DBDriver       string
	DBDSN          string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBAutoMigrate  bool

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CatalogCacheTTL time.Duration

	HTTPPort              int
	CORSAllowOrigins      string
	GRPCPort              int
	GRPCReflectionEnabled bool

	QuestionsPerCategory int
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	driver := getEnv("DB_DRIVER", "postgres")

	return &Config{
		AppEnv: getEnv("APP_ENV", "development"),

		DBDriver:       driver,
		DBDSN:          dataSource(driver),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 1),
		DBAutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", true),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		CatalogCacheTTL: getEnvDuration("CATALOG_CACHE_TTL", 10*time.Minute),

		HTTPPort:              getEnvInt("HTTP_PORT", 8000),
		CORSAllowOrigins:      getEnv("CORS_ALLOW_ORIGINS", "*"),
		GRPCPort:              getEnvInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getEnvBool("GRPC_REFLECTION_ENABLED", false),

		QuestionsPerCategory: getEnvInt("QUESTIONS_PER_CATEGORY", 25),
	}
}

// CacheEnabled reports whether a Redis address was configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// dataSource prefers DB_DSN and otherwise assembles a Postgres URL from
// the discrete POSTGRES_* variables.
func dataSource(driver string) string {
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		return dsn
	}
	if driver == "sqlite3" {
		return getEnv("DB_PATH", "./data/assessment.db")
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "postgres"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     fmt.Sprintf("%s:%s", getEnv("POSTGRES_SERVER", "localhost"), getEnv("POSTGRES_PORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "postgres"),
		RawQuery: "sslmode=" + getEnv("POSTGRES_SSLMODE", "disable"),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return val
}

func getEnvBool(key string, fallback bool) bool {
	val, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return val
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return val
}
