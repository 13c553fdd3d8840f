package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	Backend    BackendConfig
	Checkout   CheckoutConfig
	Supervisor SupervisorConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Printer    PrinterConfig
	Store      StoreConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

// BackendConfig points at the retail backend that owns all durable state.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CheckoutConfig tunes the payment-collection workflow. The tolerances come
// from the original business rules: AmountTolerance absorbs rounding on
// amount comparisons, DepositTolerance widens the minimum-deposit band.
type CheckoutConfig struct {
	PollInterval     time.Duration
	SessionTimeout   time.Duration
	DepositRate      float64
	DepositTolerance float64
	AmountTolerance  float64
}

// SupervisorConfig configures the supervisor override step.
type SupervisorConfig struct {
	PINHash     string // bcrypt hash of the override PIN
	TokenSecret string
	TokenTTL    time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

type PrinterConfig struct {
	Type    string
	USBPath string
	Address string
}

// StoreConfig is the branch header printed on receipts.
type StoreConfig struct {
	Name    string
	Address string
	Phone   string
	TaxID   string
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}

	// Set defaults
	viper.SetDefault("APP_NAME", "pos-api")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("BACKEND_BASE_URL", "http://localhost:9000")
	viper.SetDefault("BACKEND_TIMEOUT_SECONDS", 10)
	viper.SetDefault("CHECKOUT_POLL_INTERVAL_SECONDS", 3)
	viper.SetDefault("CHECKOUT_SESSION_TIMEOUT_MINUTES", 10)
	viper.SetDefault("CHECKOUT_DEPOSIT_RATE", 0.30)
	viper.SetDefault("CHECKOUT_DEPOSIT_TOLERANCE", 100.0)
	viper.SetDefault("CHECKOUT_AMOUNT_TOLERANCE", 0.01)
	viper.SetDefault("SUPERVISOR_PIN_HASH", "")
	viper.SetDefault("SUPERVISOR_TOKEN_SECRET", "change-this-secret-in-production")
	viper.SetDefault("SUPERVISOR_TOKEN_TTL_MINUTES", 5)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("PRINTER_TYPE", "none")
	viper.SetDefault("PRINTER_USB_PATH", "")
	viper.SetDefault("PRINTER_ADDRESS", "")
	viper.SetDefault("STORE_NAME", "Vista Optics")
	viper.SetDefault("STORE_ADDRESS", "")
	viper.SetDefault("STORE_PHONE", "")
	viper.SetDefault("STORE_TAX_ID", "")

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Backend: BackendConfig{
			BaseURL: viper.GetString("BACKEND_BASE_URL"),
			Timeout: time.Duration(viper.GetInt("BACKEND_TIMEOUT_SECONDS")) * time.Second,
		},
		Checkout: CheckoutConfig{
			PollInterval:     time.Duration(viper.GetInt("CHECKOUT_POLL_INTERVAL_SECONDS")) * time.Second,
			SessionTimeout:   time.Duration(viper.GetInt("CHECKOUT_SESSION_TIMEOUT_MINUTES")) * time.Minute,
			DepositRate:      viper.GetFloat64("CHECKOUT_DEPOSIT_RATE"),
			DepositTolerance: viper.GetFloat64("CHECKOUT_DEPOSIT_TOLERANCE"),
			AmountTolerance:  viper.GetFloat64("CHECKOUT_AMOUNT_TOLERANCE"),
		},
		Supervisor: SupervisorConfig{
			PINHash:     viper.GetString("SUPERVISOR_PIN_HASH"),
			TokenSecret: viper.GetString("SUPERVISOR_TOKEN_SECRET"),
			TokenTTL:    time.Duration(viper.GetInt("SUPERVISOR_TOKEN_TTL_MINUTES")) * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Printer: PrinterConfig{
			Type:    viper.GetString("PRINTER_TYPE"),
			USBPath: viper.GetString("PRINTER_USB_PATH"),
			Address: viper.GetString("PRINTER_ADDRESS"),
		},
		Store: StoreConfig{
			Name:    viper.GetString("STORE_NAME"),
			Address: viper.GetString("STORE_ADDRESS"),
			Phone:   viper.GetString("STORE_PHONE"),
			TaxID:   viper.GetString("STORE_TAX_ID"),
		},
	}
}
