// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"swcbackend/internal/logger"
)

// Variables available everywhere
var (
	clientID, clientSecret, apiBase string
	baseDir                         string
	dataDirectory                   string
	logsDirectory                   string
	databasePath                    string

	AllowedOrigin    string // For CORS
	ReturnURL        string // PayPal approval return location
	CancelURL        string // PayPal approval cancel location
	PayPalWebhookID  string
	ApplePayMerchant string // Apple Pay merchant identifier, empty = wallet disabled

	UseMockWebhookVerification bool

	// Shop currency and shipping policy. The storefront sells in GBP with
	// free shipping over the threshold, otherwise a flat rate.
	Currency              = "GBP"
	FreeShippingThreshold = decimal.NewFromInt(50)
	FlatShippingRate      = decimal.NewFromFloat(4.99)

	orderExpiry = 72 * time.Hour
)

// ErrNotConfigured marks missing merchant credentials. Terminal: there is no
// payment flow to run without them.
type ErrNotConfigured struct {
	Missing string
}

func (e *ErrNotConfigured) Error() string {
	return fmt.Sprintf("payments are not configured: missing %s", e.Missing)
}

//
// --- Utility Helpers ---
//

// Helper: get a setting based on ENVIRONMENT (dev or prod)
func GetEnvBasedSetting(base string) string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}
	return os.Getenv(fmt.Sprintf("%s_%s", base, strings.ToUpper(env)))
}

// Helper: log which environment is running
func LogCurrentEnvironment() {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	if env == "dev" {
		logger.LogInfo("Running in development environment")
	} else {
		logger.LogInfo("Running in production environment")
	}
}

//
// --- Loaders ---
//

// LoadEnv reads .env file
func LoadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("Could not determine working directory: %v", err)
	} else {
		log.Printf("Current working directory: %s", wd)
	}

	err = godotenv.Load(".env")
	if err != nil {
		log.Printf("No .env file found in %s. Using system environment variables.", wd)
	} else {
		log.Printf("Loaded environment variables from .env file in %s", wd)
	}

	UseMockWebhookVerification = os.Getenv("USE_MOCK_WEBHOOK") == "true"
	if UseMockWebhookVerification {
		log.Printf("Mock webhook verification enabled. Skipping real verification.")
	}
}

// LoggerConfig returns a logger.Config struct populated from environment
func LoggerConfig() logger.Config {
	logDir := GetEnvBasedSetting("LOGS_DIRECTORY")
	if logDir == "" {
		logDir = "./logs"
	}

	logFile := GetEnvBasedSetting("LOG_FILE")
	if logFile == "" {
		logFile = filepath.Join(logDir, fmt.Sprintf("server_%s.log", time.Now().Format("2006-01-02")))
	}

	return logger.Config{
		LogsDirectory: logDir,
		LogFilePath:   logFile,
		Development:   os.Getenv("ENVIRONMENT") != "prod",
	}
}

// ConfigurePaths sets up folders and paths
func ConfigurePaths() {
	wd, err := os.Getwd()
	if err != nil {
		logger.LogFatal("Failed to get working directory: %v", err)
	}
	baseDir = wd

	dataDir := GetEnvBasedSetting("DATA_DIRECTORY")
	if dataDir != "" {
		dataDirectory = dataDir
	} else {
		dataDirectory = filepath.Join(baseDir, "data")
	}

	logsDir := GetEnvBasedSetting("LOGS_DIRECTORY")
	if logsDir != "" {
		logsDirectory = logsDir
	} else {
		logsDirectory = filepath.Join(baseDir, "logs")
	}

	dbPath := GetEnvBasedSetting("DATABASE_PATH")
	if dbPath != "" {
		databasePath = dbPath
	} else {
		databasePath = filepath.Join(dataDirectory, "orders.db")
	}
}

// LoadPayPalConfig sets up PayPal info
func LoadPayPalConfig() error {
	clientID = os.Getenv("PAYPAL_CLIENT_ID")
	clientSecret = os.Getenv("PAYPAL_CLIENT_SECRET")

	if clientID == "" || clientSecret == "" {
		return &ErrNotConfigured{Missing: "PAYPAL_CLIENT_ID / PAYPAL_CLIENT_SECRET"}
	}

	mode := os.Getenv("PAYPAL_MODE")
	if mode == "live" {
		apiBase = "https://api-m.paypal.com"
		logger.LogInfo("Using PayPal Live environment")
	} else {
		apiBase = "https://api-m.sandbox.paypal.com"
		logger.LogInfo("Using PayPal Sandbox environment")
	}

	// Tests and local setups may point at a mock server.
	if override := os.Getenv("PAYPAL_API_BASE"); override != "" {
		apiBase = override
		logger.LogWarn("PayPal API base overridden: %s", apiBase)
	}

	PayPalWebhookID = os.Getenv("PAYPAL_WEBHOOK_ID")
	if PayPalWebhookID == "" {
		logger.LogWarn("PAYPAL_WEBHOOK_ID is not set in environment")
	}

	ApplePayMerchant = os.Getenv("APPLE_PAY_MERCHANT_ID")

	if c := os.Getenv("SHOP_CURRENCY"); c != "" {
		Currency = c
	}

	return nil
}

// LoadCORSConfig loads CORS settings
func LoadCORSConfig() {
	AllowedOrigin = GetEnvBasedSetting("ALLOWED_ORIGIN")
	if AllowedOrigin == "" {
		AllowedOrigin = "*" // Allow all - be careful in prod
		logger.LogWarn("ALLOWED_ORIGIN not set, using '*' (allow all origins) - SECURITY RISK")
	} else {
		logger.LogInfo("Allowed Origin: %s", AllowedOrigin)
	}
}

// LoadRedirectConfig loads the checkout return/cancel locations
func LoadRedirectConfig() {
	base := GetEnvBasedSetting("REDIRECT_BASE_URL")
	if base == "" {
		base = "http://localhost:5173"
		logger.LogWarn("REDIRECT_BASE_URL not set, using default: %s", base)
	}
	ReturnURL = base + "/order-confirmation"
	CancelURL = base + "/checkout"
	logger.LogInfo("Checkout return URL: %s", ReturnURL)
}

// LoadOrderExpiry reads the age after which unapproved orders are swept
func LoadOrderExpiry() {
	raw := os.Getenv("ORDER_EXPIRY_HOURS")
	if raw == "" {
		return
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		logger.LogWarn("Invalid ORDER_EXPIRY_HOURS %q, keeping default %v", raw, orderExpiry)
		return
	}
	orderExpiry = time.Duration(hours) * time.Hour
	logger.LogInfo("Order expiry set to %v", orderExpiry)
}

//
// --- Getters (exported) ---
//

func DataDirectory() string {
	return dataDirectory
}

func LogsDirectory() string {
	return logsDirectory
}

func DatabasePath() string {
	return databasePath
}

func APIBase() string {
	return apiBase
}

// SetAPIBase repoints the PayPal API base. Test hook.
func SetAPIBase(base string) {
	apiBase = base
}

func ClientID() string {
	return clientID
}

func ClientSecret() string {
	return clientSecret
}

// SetPayPalCredentials overrides the merchant credentials. Test hook.
func SetPayPalCredentials(id, secret string) {
	clientID = id
	clientSecret = secret
}

func OrderExpiry() time.Duration {
	return orderExpiry
}
