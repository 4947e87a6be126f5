package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// BankProviderConfig holds credentials for the bank-data provider
// (GoCardless bank account data API).
type BankProviderConfig struct {
	BaseURL   string
	SecretID  string
	SecretKey string
}

// PaymentProviderConfig holds settings for the payment processor
// (Stripe-compatible invoice API). APIKey is a fallback used for every
// organisation until per-organisation credentials are stored.
type PaymentProviderConfig struct {
	BaseURL string
	APIKey  string
}

// MailProviderConfig holds settings for the inbox provider (Gmail REST API).
// Token is a fallback OAuth token used for every organisation.
type MailProviderConfig struct {
	BaseURL string
	Token   string
}

// ExtractionConfig holds settings for the PDF field-extraction service.
type ExtractionConfig struct {
	BaseURL string
	APIKey  string
}

// SyncConfig tunes the ingestion pipeline.
type SyncConfig struct {
	// TransactionCacheTTL bounds how long a raw transaction fetch is reused
	// before the external source is hit again.
	TransactionCacheTTL time.Duration
	// ProcessedMailTTL marks mailbox items as handled for this long.
	ProcessedMailTTL time.Duration
	// RecentWindowDays limits "latest" pulls to a recent date window.
	RecentWindowDays int
	// ExtractionWorkers bounds concurrent field-extraction tasks.
	ExtractionWorkers int
	// CandidateLimit is the default top-N for match candidate ranking.
	CandidateLimit int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost    string
	Port       string
	Database   DatabaseConfig
	MinIO      MinIOConfig
	Bank       BankProviderConfig
	Payment    PaymentProviderConfig
	Mail       MailProviderConfig
	Extraction ExtractionConfig
	Sync       SyncConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Bank: BankProviderConfig{
			BaseURL:   getEnv("BANK_API_URL", "https://bankaccountdata.gocardless.com"),
			SecretID:  getEnv("BANK_SECRET_ID", ""),
			SecretKey: getEnv("BANK_SECRET_KEY", ""),
		},
		Payment: PaymentProviderConfig{
			BaseURL: getEnv("PAYMENT_API_URL", "https://api.stripe.com"),
			APIKey:  getEnv("PAYMENT_API_KEY", ""),
		},
		Mail: MailProviderConfig{
			BaseURL: getEnv("MAIL_API_URL", "https://gmail.googleapis.com"),
			Token:   getEnv("MAIL_OAUTH_TOKEN", ""),
		},
		Extraction: ExtractionConfig{
			BaseURL: getEnv("EXTRACTION_API_URL", ""),
			APIKey:  getEnv("EXTRACTION_API_KEY", ""),
		},
		Sync: SyncConfig{
			TransactionCacheTTL: time.Duration(getEnvInt("SYNC_TX_CACHE_TTL_HOURS", 12)) * time.Hour,
			ProcessedMailTTL:    time.Duration(getEnvInt("SYNC_MAIL_TTL_DAYS", 30)) * 24 * time.Hour,
			RecentWindowDays:    getEnvInt("SYNC_RECENT_WINDOW_DAYS", 7),
			ExtractionWorkers:   getEnvInt("SYNC_EXTRACTION_WORKERS", 10),
			CandidateLimit:      getEnvInt("MATCH_CANDIDATE_LIMIT", 5),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
