package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minJWTSecretLength = 32

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        slog.Level

	PostgresDSN    string
	MigrateOnStart bool

	RedisAddr       string
	CatalogCacheTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret     string
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
	BcryptCost    int

	MidtransServerKey  string
	MidtransProduction bool
	MidtransBaseURL    string
	GatewayTimeout     time.Duration
	OrderPrefix        string

	AuthRatePerMinute int

	OTLPEndpoint string
	ServiceName  string
}

// Load reads .env (when present) and the process environment. Secrets have no
// fallback values: a missing or weak secret is a startup error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded, using process environment", "error", err)
	}

	cfg := &Config{
		HTTPAddr:           getEnvString("HTTP_ADDR", ":8080"),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		LogLevel:           getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		MigrateOnStart:     getEnvBool("MIGRATE_ON_START", true),
		RedisAddr:          getEnvString("REDIS_ADDR", "localhost:6379"),
		CatalogCacheTTL:    getEnvDuration("CATALOG_CACHE_TTL", 30*time.Second),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         getEnvString("KAFKA_TOPIC", "orders"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		SessionTTL:         getEnvDuration("SESSION_TTL", 24*time.Hour),
		ResetTokenTTL:      getEnvDuration("RESET_TOKEN_TTL", time.Hour),
		BcryptCost:         getEnvInt("BCRYPT_COST", 10),
		MidtransServerKey:  os.Getenv("MIDTRANS_SERVER_KEY"),
		MidtransProduction: getEnvBool("MIDTRANS_PRODUCTION", false),
		MidtransBaseURL:    os.Getenv("MIDTRANS_BASE_URL"),
		GatewayTimeout:     getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),
		OrderPrefix:        getEnvString("ORDER_PREFIX", "VALLBLOX"),
		AuthRatePerMinute:  getEnvInt("AUTH_RATE_PER_MINUTE", 20),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:        getEnvString("OTEL_SERVICE_NAME", "vallblox-store"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"midtrans_production", cfg.MidtransProduction,
	)
	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.PostgresDSN == "" {
		missing = append(missing, "POSTGRES_DSN")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.MidtransServerKey == "" {
		missing = append(missing, "MIDTRANS_SERVER_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if len(c.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.OrderPrefix == "" || strings.Contains(c.OrderPrefix, "-") {
		return fmt.Errorf("ORDER_PREFIX must be non-empty and must not contain '-'")
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return level
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
