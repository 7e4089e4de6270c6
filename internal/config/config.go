package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Auth     AuthConfig
	Payment  PaymentConfig
	Storage  StorageConfig
	Download DownloadConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	MailTopic          string
	PlanCacheTTL       time.Duration
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// PaymentConfig is resolved once at startup and handed to the gateways.
// Each provider settles in its own currency.
type PaymentConfig struct {
	CallbackURL string
	Paystack    PaystackConfig
	Midtrans    MidtransConfig
}

type PaystackConfig struct {
	SecretKey string
	BaseURL   string
	Currency  string
}

type MidtransConfig struct {
	ServerKey    string
	Currency     string
	IsProduction bool
}

type StorageConfig struct {
	Root        string
	HTTPTimeout time.Duration
	S3          S3Config
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	EndpointURL     string
}

func (c S3Config) IsEnabled() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

type DownloadConfig struct {
	TokenValidity time.Duration
	QuotaPrefix   string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			MailTopic:          getEnv("MAIL_OUTBOX_TOPIC", "MAIL_OUTBOX"),
			PlanCacheTTL:       time.Duration(getEnvAsInt("PLAN_CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "PlanHub"),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", "default_secret"),
			AccessTokenTTL:  time.Duration(getEnvAsInt("ACCESS_TOKEN_TTL_MINUTES", 24*60)) * time.Minute,
			RefreshTokenTTL: time.Duration(getEnvAsInt("REFRESH_TOKEN_TTL_DAYS", 30)) * 24 * time.Hour,
		},
		Payment: PaymentConfig{
			CallbackURL: getEnv("PAYMENT_CALLBACK_URL", "http://localhost:5173/payments/callback"),
			Paystack: PaystackConfig{
				SecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
				BaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
				Currency:  getEnv("PAYSTACK_CURRENCY", getEnv("PAYMENT_CURRENCY", "NGN")),
			},
			Midtrans: MidtransConfig{
				ServerKey:    getEnv("MIDTRANS_SERVER_KEY", ""),
				Currency:     getEnv("MIDTRANS_CURRENCY", "IDR"),
				IsProduction: getEnvAsBool("MIDTRANS_IS_PRODUCTION", false),
			},
		},
		Storage: StorageConfig{
			Root:        getEnv("STORAGE_ROOT", "./uploads"),
			HTTPTimeout: time.Duration(getEnvAsInt("STORAGE_HTTP_TIMEOUT_SECONDS", 60)) * time.Second,
			S3: S3Config{
				Region:          getEnv("S3_REGION", "us-east-1"),
				Bucket:          getEnv("S3_BUCKET", ""),
				AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
				EndpointURL:     getEnv("S3_ENDPOINT_URL", ""),
			},
		},
		Download: DownloadConfig{
			// Tokens are single-use; the expiry only exists so the column is never null.
			TokenValidity: time.Duration(getEnvAsInt("DOWNLOAD_TOKEN_VALIDITY_DAYS", 36500)) * 24 * time.Hour,
			QuotaPrefix:   getEnv("DOWNLOAD_QUOTA_PREFIX", "download_quota"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
