// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the full service configuration.
type Config struct {
	ShutdownTimeout time.Duration
	LogFormat       string
	FrontendURL     string

	HTTP      HTTPConfig
	Bus       BusConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Media     MediaConfig
	Payment   PaymentConfig
	Pricing   PricingConfig
	Mail      MailConfig
	Kafka     KafkaConfig
}

type HTTPConfig struct {
	Addr string
}

// BusConfig configures the embedded NATS server behind the module bus. The
// media object store connects to it through Media.NATSURL.
type BusConfig struct {
	NATSPort   int
	StorageDir string
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

type AuthConfig struct {
	SecretKey            string
	Issuer               string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	AdminEmail           string
	AdminPassword        string
	RequireVerifiedEmail bool
}

type RedisConfig struct {
	Addr string
}

type RateLimitConfig struct {
	Requests       int
	Window         time.Duration
	AuthRequests   int
	IdempotencyTTL time.Duration
}

type MediaConfig struct {
	NATSURL string
	Bucket  string
	URLTTL  time.Duration
}

type PaymentConfig struct {
	StripeSecretKey string
	Currency        string
	MaxRetries      int
}

type PricingConfig struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type KafkaConfig struct {
	Brokers    []string
	OrderTopic string
}

// Load reads the configuration from the environment, applying defaults.
func Load() Config {
	return Config{
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		FrontendURL:     strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":3000"),
		},
		Bus: BusConfig{
			NATSPort:   getEnvInt("NATS_PORT", 4222),
			StorageDir: getEnv("JETSTREAM_DIR", "/tmp/stylehub"),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			DSN:    getEnv("DB_DSN", "stylehub.db"),
		},
		Auth: AuthConfig{
			SecretKey:            getEnv("JWT_SECRET_KEY", "change-me-in-production"),
			Issuer:               getEnv("JWT_ISSUER", "stylehub"),
			AccessTokenDuration:  getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenDuration: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			AdminEmail:           os.Getenv("ADMIN_EMAIL"),
			AdminPassword:        os.Getenv("ADMIN_PASSWORD"),
			RequireVerifiedEmail: getEnvBool("REQUIRE_VERIFIED_EMAIL", true),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		RateLimit: RateLimitConfig{
			Requests:       getEnvInt("RATE_LIMIT_REQUESTS", 100),
			Window:         getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			AuthRequests:   getEnvInt("AUTH_RATE_LIMIT_REQUESTS", 10),
			IdempotencyTTL: getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Media: MediaConfig{
			NATSURL: getEnv("NATS_URL", "nats://localhost:4222"),
			Bucket:  getEnv("MEDIA_BUCKET", "stylehub-media"),
			URLTTL:  getEnvDuration("MEDIA_URL_TTL", time.Hour),
		},
		Payment: PaymentConfig{
			StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
			Currency:        strings.ToLower(getEnv("PAYMENT_CURRENCY", "inr")),
			MaxRetries:      getEnvInt("PAYMENT_MAX_RETRIES", 3),
		},
		Pricing: PricingConfig{
			TaxRate:               getEnvDecimal("TAX_RATE", decimal.RequireFromString("0.18")),
			FreeShippingThreshold: getEnvDecimal("FREE_SHIPPING_THRESHOLD", decimal.NewFromInt(1000)),
			FlatShippingFee:       getEnvDecimal("FLAT_SHIPPING_FEE", decimal.NewFromInt(100)),
		},
		Mail: MailConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     getEnv("MAIL_FROM", "StyleHub <no-reply@stylehub.local>"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			OrderTopic: getEnv("KAFKA_ORDER_TOPIC", "stylehub.orders"),
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(csv string) []string {
	var out []string
	for _, item := range strings.Split(csv, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
