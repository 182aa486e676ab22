// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	AWS         AWSConfig
	Payment     PaymentConfig
	Email       EmailConfig
	Escrow      EscrowConfig
	I18n        I18nConfig
	Frontend    FrontendConfig
}

type FrontendConfig struct {
	BaseURL string
}

type ServerConfig struct {
	Port         string
	Host         string
	PublicURL    string
	UploadDir    string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Driver       string // postgres or memory
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
	SeedDemoData bool
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

type RedisConfig struct {
	Enabled         bool
	Host            string
	Port            string
	Password        string
	DB              int
	SettingsTTLSecs int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SNSSenderID     string
	S3Bucket        string
	CloudFrontURL   string
}

type PaymentConfig struct {
	StripeSecretKey    string
	PayoutCurrency     string
	PlatformFeePercent decimal.Decimal
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// EscrowConfig carries the lifecycle knobs: who may request each status and
// how the notification queue is sized.
type EscrowConfig struct {
	RolePolicy             map[string]string
	NotificationWorkers    int
	NotificationQueueSize  int
	NotificationMaxAttempt int
	NotificationBackoffMs  int
}

type I18nConfig struct {
	DefaultLocale string
}

// Statuses whose requesting party can be configured with ESCROW_ROLE_<STATUS>.
var configurableRoleStatuses = []string{
	"ESCROW_REQUESTED",
	"FUNDED",
	"VERIFICATION_PERIOD",
	"READY_TO_RELEASE",
	"REFUNDED",
	"PARTIAL_SETTLED",
	"CLOSED",
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	feePercent, err := decimal.NewFromString(getEnv("PLATFORM_FEE_PERCENT", "2.5"))
	if err != nil {
		return nil, fmt.Errorf("invalid PLATFORM_FEE_PERCENT: %w", err)
	}

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			PublicURL:    getEnv("SERVER_PUBLIC_URL", "http://localhost:8080"),
			UploadDir:    getEnv("SERVER_UPLOAD_DIR", "./uploads"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", DriverPostgres),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "land_escrow"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
			SeedDemoData: getEnvAsBool("DB_SEED_DEMO_DATA", false),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24), // 24 hours
		},
		Redis: RedisConfig{
			Enabled:         getEnvAsBool("REDIS_ENABLED", false),
			Host:            getEnv("REDIS_HOST", "localhost"),
			Port:            getEnv("REDIS_PORT", "6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvAsInt("REDIS_DB", 0),
			SettingsTTLSecs: getEnvAsInt("REDIS_SETTINGS_TTL", 300),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "eu-west-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			SNSSenderID:     getEnv("AWS_SNS_SENDER_ID", "LandEscrow"),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "land-escrow-evidence"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
		},
		Payment: PaymentConfig{
			StripeSecretKey:    getEnv("STRIPE_SECRET_KEY", ""),
			PayoutCurrency:     strings.ToLower(getEnv("PAYOUT_CURRENCY", "ghs")),
			PlatformFeePercent: feePercent,
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@landescrow.com.gh"),
			FromName:     getEnv("FROM_NAME", "Land Escrow"),
		},
		Escrow: EscrowConfig{
			RolePolicy:             loadRolePolicy(),
			NotificationWorkers:    getEnvAsInt("NOTIFICATION_WORKERS", 2),
			NotificationQueueSize:  getEnvAsInt("NOTIFICATION_QUEUE_SIZE", 256),
			NotificationMaxAttempt: getEnvAsInt("NOTIFICATION_MAX_ATTEMPTS", 3),
			NotificationBackoffMs:  getEnvAsInt("NOTIFICATION_BACKOFF_MS", 200),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
		Frontend: FrontendConfig{
			BaseURL: getEnv("FRONTEND_BASE_URL", "http://localhost:3000"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" && c.Database.Driver == DriverPostgres {
		return fmt.Errorf("database password is required in production")
	}

	if c.Database.Driver != DriverPostgres && c.Database.Driver != DriverMemory {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.Payment.PlatformFeePercent.IsNegative() || c.Payment.PlatformFeePercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("PLATFORM_FEE_PERCENT must be in [0, 100)")
	}

	for status, role := range c.Escrow.RolePolicy {
		switch role {
		case "buyer", "seller", "either":
		default:
			return fmt.Errorf("ESCROW_ROLE_%s must be buyer, seller or either, got %q", status, role)
		}
	}

	if c.Escrow.NotificationWorkers < 1 {
		return fmt.Errorf("NOTIFICATION_WORKERS must be at least 1")
	}

	return nil
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

func loadRolePolicy() map[string]string {
	policy := make(map[string]string)
	for _, status := range configurableRoleStatuses {
		if value := os.Getenv("ESCROW_ROLE_" + status); value != "" {
			policy[status] = strings.ToLower(strings.TrimSpace(value))
		}
	}
	return policy
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
