package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		log.Printf("invalid duration for %s=%q, using default %s", key, val, defaultVal)
	}
	return defaultVal
}

// GetBoolEnv returns a bool environment variable or a default value.
func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// GetListEnv splits a comma separated environment variable.
func GetListEnv(key string, defaultVal []string) []string {
	val := GetEnv(key, "")
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

// Store drivers accepted by STORE_DRIVER.
const (
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host was configured.
func (c RedisConfig) Enabled() bool { return c.Host != "" }

type FirestoreConfig struct {
	ProjectID          string
	ServiceAccount     string // base64 encoded JSON
	ServiceAccountFile string
}

type GatewayConfig struct {
	AccessToken        string
	BaseURL            string
	Timeout            time.Duration
	WebhookSecret      string
	WebhookTolerance   time.Duration
	NotificationURL    string
	PayerFallbackEmail string
}

type PaymentConfig struct {
	TTL                  time.Duration
	SweepInterval        time.Duration
	PollAfter            time.Duration
	RetryMaxAttempts     int
	RetryInitialInterval time.Duration
	CatalogCacheTTL      time.Duration
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// Enabled reports whether all Cloudinary credentials are set.
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Config is the full application configuration.
type Config struct {
	Port               string
	Env                string
	StoreDriver        string
	Database           DatabaseConfig
	Redis              RedisConfig
	Firestore          FirestoreConfig
	Gateway            GatewayConfig
	Payment            PaymentConfig
	Cloudinary         CloudinaryConfig
	CORSAllowedOrigins []string
	CORSPreviewPrefix  string
	AdminPasswordHash  string
	JWTSecret          string
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Port:        GetEnv("PORT", "3001"),
		Env:         GetEnv("ENV", "development"),
		StoreDriver: GetEnv("STORE_DRIVER", StorePostgres),
		Database: DatabaseConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "casamento"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", ""),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		Firestore: FirestoreConfig{
			ProjectID:          GetEnv("FIRESTORE_PROJECT_ID", ""),
			ServiceAccount:     GetEnv("FIREBASE_SERVICE_ACCOUNT", ""),
			ServiceAccountFile: GetEnv("FIREBASE_SERVICE_ACCOUNT_FILE", "service-account.json"),
		},
		Gateway: GatewayConfig{
			AccessToken:        GetEnv("MP_ACCESS_TOKEN", ""),
			BaseURL:            GetEnv("MP_BASE_URL", "https://api.mercadopago.com"),
			Timeout:            GetDurationEnv("MP_TIMEOUT", 10*time.Second),
			WebhookSecret:      GetEnv("MP_WEBHOOK_SECRET", ""),
			WebhookTolerance:   GetDurationEnv("MP_WEBHOOK_TOLERANCE", 5*time.Minute),
			NotificationURL:    GetEnv("MP_NOTIFICATION_URL", ""),
			PayerFallbackEmail: GetEnv("PAYER_FALLBACK_EMAIL", "convidado@casamento.com"),
		},
		Payment: PaymentConfig{
			TTL:                  GetDurationEnv("PAYMENT_TTL", time.Hour),
			SweepInterval:        GetDurationEnv("SWEEP_INTERVAL", 5*time.Minute),
			PollAfter:            GetDurationEnv("POLL_AFTER", 10*time.Minute),
			RetryMaxAttempts:     GetIntEnv("RETRY_MAX_ATTEMPTS", 3),
			RetryInitialInterval: GetDurationEnv("RETRY_INITIAL_INTERVAL", 200*time.Millisecond),
			CatalogCacheTTL:      GetDurationEnv("CATALOG_CACHE_TTL", 30*time.Second),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: GetEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    GetEnv("CLOUDINARY_API_KEY", ""),
			APISecret: GetEnv("CLOUDINARY_API_SECRET", ""),
		},
		CORSAllowedOrigins: GetListEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		CORSPreviewPrefix:  GetEnv("CORS_PREVIEW_PREFIX", ""),
		AdminPasswordHash:  GetEnv("ADMIN_PASSWORD_HASH", ""),
		JWTSecret:          GetEnv("JWT_SECRET", ""),
	}
}

// Validate rejects settings the server must not run with.
func (c *Config) Validate() error {
	if c.Env != "production" {
		return nil
	}
	if c.Gateway.WebhookSecret == "" {
		return errors.New("MP_WEBHOOK_SECRET is required in production")
	}
	if c.StoreDriver == StoreMemory {
		return errors.New("the memory store cannot be used in production")
	}
	return nil
}
