package config

import (
	"ms-events/internal/utils"
	"os"
	"strconv"
	"strings"
	"time"
)

// LockTTLMargin is how much longer the registration lock lives than a catalog request.
const LockTTLMargin = 5 * time.Second

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Catalog   CatalogConfig
	Auth      AuthConfig
	Pass      PassConfig
	RateLimit RateLimitConfig
	LogLevel  string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration // 0 keeps SSE streams open
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver        string // postgres or sqlite
	DSN           string
	MaxOpenConns  int
	MaxIdleConns  int
	MaxLifetime   time.Duration
	MigrationsDir string
	AutoMigrate   bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	RegistrationCreated   string
	RegistrationCancelled string
}

type CatalogConfig struct {
	BaseURL     string
	PageSize    int
	Timeout     time.Duration
	CacheTTL    time.Duration
	RefreshCron string
	BaseDate    time.Time
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	OIDCIssuer string
}

type PassConfig struct {
	Secret string
}

type RateLimitConfig struct {
	GlobalRPS   float64
	GlobalBurst int
	UserRPS     float64
	UserBurst   int
	LoginRPS    float64
	LoginBurst  int
}

func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 0),
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:        strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:           getEnv("DB_DSN", "file:events.db?cache=shared"),
			MaxOpenConns:  getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:   time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			MigrationsDir: getEnv("DB_MIGRATIONS_DIR", "./migrations"),
			AutoMigrate:   getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     lookupEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			LockTTL:  getEnvDuration("REGISTRATION_LOCK_TTL", 15*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				RegistrationCreated:   getEnv("KAFKA_TOPIC_REGISTRATION_CREATED", "events.registration.created"),
				RegistrationCancelled: getEnv("KAFKA_TOPIC_REGISTRATION_CANCELLED", "events.registration.cancelled"),
			},
		},
		Catalog: CatalogConfig{
			BaseURL:     strings.TrimRight(getEnv("CATALOG_BASE_URL", "https://dummyjson.com"), "/"),
			PageSize:    getEnvInt("CATALOG_PAGE_SIZE", 30),
			Timeout:     getEnvDuration("CATALOG_TIMEOUT", 10*time.Second),
			CacheTTL:    getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
			RefreshCron: lookupEnv("CATALOG_REFRESH_CRON", "*/10 * * * *"),
			BaseDate:    getEnvDate("CATALOG_BASE_DATE", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),
			TokenTTL:   getEnvDuration("JWT_TTL", 2*time.Hour),
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
		},
		Pass: PassConfig{
			Secret: getEnv("PASS_SECRET", "dev-pass-secret"),
		},
		RateLimit: RateLimitConfig{
			GlobalRPS:   getEnvFloat("RATE_LIMIT_GLOBAL_RPS", 20),
			GlobalBurst: getEnvInt("RATE_LIMIT_GLOBAL_BURST", 40),
			UserRPS:     getEnvFloat("RATE_LIMIT_USER_RPS", 5),
			UserBurst:   getEnvInt("RATE_LIMIT_USER_BURST", 10),
			LoginRPS:    getEnvFloat("RATE_LIMIT_LOGIN_RPS", 0.5),
			LoginBurst:  getEnvInt("RATE_LIMIT_LOGIN_BURST", 3),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// The registration lock is held across a catalog fetch.
	if cfg.Redis.LockTTL <= cfg.Catalog.Timeout {
		cfg.Redis.LockTTL = cfg.Catalog.Timeout + LockTTLMargin
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnv is getEnv for settings where an explicit empty value means "off".
func lookupEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "5m").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDate(key string, defaultValue time.Time) time.Time {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.Parse(utils.DateLayout, value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
