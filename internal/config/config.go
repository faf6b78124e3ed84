package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the agent configuration loaded from environment variables.
type Config struct {
	// AppEnv is the running environment (development/production).
	AppEnv string
	// ServerPort is the HTTP port to listen on.
	ServerPort string

	// DatabaseURL is an optional mysql:// connection URI. When set it takes
	// precedence over the discrete DB_* credentials below.
	DatabaseURL string
	// Discrete connection credentials. DBPort may stay empty; no default is
	// substituted on this path.
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	// StorageType selects where export artifacts land: "local" or "s3".
	StorageType string
	// LocalStoragePath is the directory for local export artifacts.
	LocalStoragePath string
	// AWSRegion, S3Bucket, S3Endpoint and S3PathStyle configure the S3
	// provider; the endpoint and path-style knobs support non-AWS providers.
	AWSRegion   string
	S3Bucket    string
	S3Endpoint  string
	S3PathStyle bool

	// SMTP settings for export completion notifications.
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	// WorkerCount is the number of concurrent export jobs allowed.
	WorkerCount int
	// MaxDBConcurrency caps the number of export queries running against
	// the database at once.
	MaxDBConcurrency int64
	// DefaultTimeout bounds the duration of one export job.
	DefaultTimeout time.Duration
	// Compression gzips export artifacts.
	Compression bool
	// AttachFile sends small export artifacts as email attachments.
	AttachFile bool

	// APISecret is the shared secret for HMAC request signing and JWT
	// issuance. Empty disables authentication (local development).
	APISecret string
	// TokenTTL bounds the lifetime of issued bearer tokens.
	TokenTTL time.Duration
	// ValidateReadQueries rejects non-SELECT statements on the HTTP read
	// endpoint before they reach the database layer.
	ValidateReadQueries bool
	// AllowedOrigins is the CORS allow list.
	AllowedOrigins []string
}

func Load() *Config {
	return &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBUser:              getEnv("DB_USER", "root"),
		DBPassword:          getEnv("DB_PASSWORD", ""),
		DBName:              getEnv("DB_NAME", ""),
		DBPort:              getEnv("DB_PORT", ""),
		StorageType:         getEnv("STORAGE_TYPE", "local"),
		LocalStoragePath:    getEnv("LOCAL_STORAGE_PATH", "./exports"),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Endpoint:          getEnv("S3_ENDPOINT", ""),
		S3PathStyle:         getEnvBool("S3_PATH_STYLE", false),
		SMTPHost:            getEnv("SMTP_HOST", ""),
		SMTPPort:            getEnvInt("SMTP_PORT", 587),
		SMTPUser:            getEnv("SMTP_USER", ""),
		SMTPPassword:        getEnv("SMTP_PASS", ""),
		SMTPFrom:            getEnv("SMTP_FROM", "noreply@example.com"),
		WorkerCount:         getEnvInt("WORKER_COUNT", 5),
		MaxDBConcurrency:    int64(getEnvInt("MAX_DB_CONCURRENCY", 3)),
		DefaultTimeout:      getEnvDuration("DEFAULT_TIMEOUT", 15*time.Minute),
		Compression:         getEnvBool("COMPRESSION", false),
		AttachFile:          getEnvBool("EMAIL_ATTACH_FILE", false),
		APISecret:           getEnv("API_SECRET", ""),
		TokenTTL:            getEnvDuration("TOKEN_TTL", time.Hour),
		ValidateReadQueries: getEnvBool("VALIDATE_READ_QUERIES", false),
		AllowedOrigins:      getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.Split(value, ",")
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
