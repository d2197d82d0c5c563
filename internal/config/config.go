package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Checkout     CheckoutConfig
	Verification VerificationConfig
	Storage      StorageConfig
	WhatsApp     WhatsAppConfig
	Email        EmailConfig
	Security     SecurityConfig
	LogLevel     string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// CheckoutConfig holds the checkout rules and timings
type CheckoutConfig struct {
	MinAmount     int64
	MaxAmount     int64
	AdminFeeBPS   int64
	PresetAmounts []int64
	PaymentWindow time.Duration
	TickInterval  time.Duration
	VerifyDelay   time.Duration
	FlowTTL       time.Duration
}

// VerificationConfig holds the payment verification endpoint.
// An empty URL keeps the fixed-delay verifier.
type VerificationConfig struct {
	URL        string
	Timeout    time.Duration
	RetryCount int
}

// StorageConfig holds the confirmation database location
type StorageConfig struct {
	DBPath string
}

// WhatsAppConfig holds WhatsApp receipt notification configuration
type WhatsAppConfig struct {
	Enabled           bool
	DBPath            string
	LogLevel          string
	NotifyDestination string
}

// EmailConfig holds SendGrid donor receipt configuration
type EmailConfig struct {
	SendGridAPIKey string
	FromAddress    string
	FromName       string
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	APIKey string
}

// DefaultPresetAmounts are the donation denominations offered on the amount stage
var DefaultPresetAmounts = []int64{25000, 50000, 100000, 250000, 500000, 1000000}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
		},
		Checkout: CheckoutConfig{
			MinAmount:     parseInt64(getEnv("CHECKOUT_MIN_AMOUNT", "10000"), 10000),
			MaxAmount:     parseInt64(getEnv("CHECKOUT_MAX_AMOUNT", "10000000000"), 10000000000),
			AdminFeeBPS:   parsePercentBPS(getEnv("CHECKOUT_ADMIN_FEE_PERCENT", "2.5"), 250),
			PresetAmounts: parseAmountList(getEnv("CHECKOUT_PRESET_AMOUNTS", ""), DefaultPresetAmounts),
			PaymentWindow: parseDuration(getEnv("CHECKOUT_PAYMENT_WINDOW", "15m"), 15*time.Minute),
			TickInterval:  parseDuration(getEnv("CHECKOUT_TICK_INTERVAL", "1s"), time.Second),
			VerifyDelay:   parseDuration(getEnv("CHECKOUT_VERIFY_DELAY", "2s"), 2*time.Second),
			FlowTTL:       parseDuration(getEnv("CHECKOUT_FLOW_TTL", "1h"), time.Hour),
		},
		Verification: VerificationConfig{
			URL:        getEnv("VERIFY_URL", ""),
			Timeout:    parseDuration(getEnv("VERIFY_TIMEOUT", "10s"), 10*time.Second),
			RetryCount: parseInt(getEnv("VERIFY_RETRY_COUNT", "2"), 2),
		},
		Storage: StorageConfig{
			DBPath: getEnv("CONFIRMATION_DB_PATH", "./db/confirmations.db"),
		},
		WhatsApp: WhatsAppConfig{
			Enabled:           parseBool(getEnv("WA_ENABLED", "false"), false),
			DBPath:            getEnv("WA_DB_PATH", "./db/whatsmeow.db"),
			LogLevel:          getEnv("WA_LOG_LEVEL", "INFO"),
			NotifyDestination: getEnv("WA_NOTIFY_DESTINATION", ""),
		},
		Email: EmailConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromAddress:    getEnv("EMAIL_FROM_ADDRESS", "noreply@doneasy.id"),
			FromName:       getEnv("EMAIL_FROM_NAME", "Yayasan Doneasy Indonesia"),
		},
		Security: SecurityConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the values that would make the checkout unusable
func (c *Config) Validate() error {
	if c.Checkout.MinAmount <= 0 {
		return fmt.Errorf("CHECKOUT_MIN_AMOUNT must be positive")
	}
	if c.Checkout.MaxAmount > 0 && c.Checkout.MaxAmount < c.Checkout.MinAmount {
		return fmt.Errorf("CHECKOUT_MAX_AMOUNT must not be below CHECKOUT_MIN_AMOUNT")
	}
	if c.Checkout.AdminFeeBPS < 0 || c.Checkout.AdminFeeBPS > 10000 {
		return fmt.Errorf("CHECKOUT_ADMIN_FEE_PERCENT must be between 0 and 100")
	}
	if c.Checkout.TickInterval <= 0 || c.Checkout.PaymentWindow < c.Checkout.TickInterval {
		return fmt.Errorf("CHECKOUT_PAYMENT_WINDOW must be at least one CHECKOUT_TICK_INTERVAL")
	}
	// the sweep must not close a checkout that is still inside its payment window
	if c.Checkout.FlowTTL > 0 && c.Checkout.FlowTTL < c.Checkout.PaymentWindow {
		return fmt.Errorf("CHECKOUT_FLOW_TTL must not be shorter than CHECKOUT_PAYMENT_WINDOW")
	}
	if c.WhatsApp.Enabled && c.WhatsApp.NotifyDestination == "" {
		return fmt.Errorf("WA_NOTIFY_DESTINATION is required when WA_ENABLED is true")
	}
	return nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// parseInt parses string to int with default value
func parseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// parseInt64 parses string to int64 with default value
func parseInt64(value string, defaultValue int64) int64 {
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// parseBool parses string to bool with default value
func parseBool(value string, defaultValue bool) bool {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// parseDuration parses string to time.Duration with default value
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

// parsePercentBPS converts a percentage such as "2.5" to basis points (250)
func parsePercentBPS(value string, defaultValue int64) int64 {
	percent, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || percent < 0 {
		return defaultValue
	}
	return int64(math.Round(percent * 100))
}

// parseAmountList parses comma-separated amounts, falling back when any entry is invalid
func parseAmountList(value string, defaultValue []int64) []int64 {
	parts := parseStringList(value)
	if len(parts) == 0 {
		return append([]int64(nil), defaultValue...)
	}
	result := make([]int64, 0, len(parts))
	for _, part := range parts {
		amount, err := strconv.ParseInt(part, 10, 64)
		if err != nil || amount <= 0 {
			return append([]int64(nil), defaultValue...)
		}
		result = append(result, amount)
	}
	return result
}

// parseStringList parses comma-separated string to slice
func parseStringList(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
