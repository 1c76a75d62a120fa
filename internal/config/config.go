package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	AppURL     string // Public URL of the web app, used for guest continuation links
	IsProd     bool   // Is production environment
	DBDriver   string // Database driver: mysql or sqlite
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	SQLitePath string // SQLite file path when DBDriver is sqlite
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number

	PaystackSecretKey   string // Card processor secret key (server side only)
	PaystackBaseURL     string // Card processor API base URL
	PaystackCurrency    string // Currency card payments must be made in
	PayPalClientID      string // PayPal REST client id
	PayPalSecret        string // PayPal REST secret
	PayPalBaseURL       string // PayPal API base URL
	PayPalCurrency      string // Currency PayPal captures must be made in
	PayPalCentsPerToken int64  // PayPal minor units paid per token

	TokenUnitPrice       int64         // Local currency units per token
	GuestClaimTTL        time.Duration // Lifetime of an unclaimed guest token
	PaymentVerifyTimeout time.Duration // Timeout for provider verification calls
	OutboxInterval       time.Duration // How often contest effects are applied
	OutboxBatchSize      int           // Max contest effects applied per run
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:    getEnv("APP_PORT", "8080"),
		AppURL:     getEnv("APP_URL", "http://localhost:3000"),
		IsProd:     os.Getenv("IS_PROD") == "true",
		DBDriver:   getEnv("DB_DRIVER", "mysql"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBName:     os.Getenv("DB_NAME"),
		SQLitePath: getEnv("SQLITE_PATH", "event_wallet.db"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		RedisPass:  os.Getenv("REDIS_PASS"),
		RedisDB:    getInt("REDIS_DB", 0),

		PaystackSecretKey:   os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:     getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		PaystackCurrency:    getEnv("PAYSTACK_CURRENCY", "NGN"),
		PayPalClientID:      os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalSecret:        os.Getenv("PAYPAL_SECRET"),
		PayPalBaseURL:       getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
		PayPalCurrency:      getEnv("PAYPAL_CURRENCY", "USD"),
		PayPalCentsPerToken: int64(getPositiveInt("PAYPAL_CENTS_PER_TOKEN", 100)),

		TokenUnitPrice:       int64(getPositiveInt("TOKEN_UNIT_PRICE", 100)),
		GuestClaimTTL:        getDuration("GUEST_CLAIM_TTL", 24*time.Hour),
		PaymentVerifyTimeout: getDuration("PAYMENT_VERIFY_TIMEOUT", 10*time.Second),
		OutboxInterval:       getDuration("OUTBOX_INTERVAL", 5*time.Second),
		OutboxBatchSize:      getInt("OUTBOX_BATCH_SIZE", 50),
	}
}

// DSN builds the MySQL data source name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback // Unset or malformed
	}
	return v
}

// getPositiveInt is getInt for prices, where zero or less is never valid
func getPositiveInt(key string, fallback int) int {
	if v := getInt(key, fallback); v > 0 {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
