package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	Auth              AuthConfig
	InternalEndpoints InternalEndpointsConfig
	Stripe            StripeConfig
	Payments          PaymentsConfig
	Fees              FeesConfig
	Transfers         TransfersConfig
	Company           CompanyConfig
	Mail              MailConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AuthConfig struct {
	JWTSecret       string
	PrivilegedRoles []string
}

// InternalEndpointsConfig locates sibling services. An empty AuthGRPCAddr disables
// API-key access for internal callers.
type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type StripeConfig struct {
	SecretKey                 string
	WebhookSecret             string
	SignatureToleranceSeconds int64
	DevMode                   bool
}

type PaymentsConfig struct {
	MinAmount           int64
	AllowedCurrencies   []string
	CheckoutProductName string
	PendingTimeout      time.Duration
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
}

type FeesConfig struct {
	PercentageFloorEnabled bool
	PercentageFloor        decimal.Decimal
}

type TransfersConfig struct {
	SourceCurrencyID     uint64
	TargetCurrencyID     uint64
	DefaultReceptionMode string
}

type CompanyConfig struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

type JobsConfig struct {
	ReconcileInterval     time.Duration
	ExpirePendingInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	percentageFloor, err := decimal.NewFromString(getEnv("FEES_PERCENTAGE_FLOOR", "1.00"))
	if err != nil {
		return nil, errors.New("FEES_PERCENTAGE_FLOOR must be a decimal amount")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "remittance-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("AUTH_JWT_SECRET", ""),
			PrivilegedRoles: getListEnv("AUTH_PRIVILEGED_ROLES", []string{"admin", "agent"}),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", ""),
		},
		Stripe: StripeConfig{
			SecretKey:                 getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:             getEnv("STRIPE_WEBHOOK_SECRET", ""),
			SignatureToleranceSeconds: int64(getIntEnv("STRIPE_SIGNATURE_TOLERANCE_SECONDS", 300)),
			DevMode:                   getBoolEnv("STRIPE_DEV_MODE", false),
		},
		Payments: PaymentsConfig{
			MinAmount:           int64(getIntEnv("PAYMENTS_MIN_AMOUNT", 50)),
			AllowedCurrencies:   getListEnv("PAYMENTS_ALLOWED_CURRENCIES", []string{"eur", "usd"}),
			CheckoutProductName: getEnv("PAYMENTS_CHECKOUT_PRODUCT_NAME", "Paiement DSPay"),
			PendingTimeout:      getMinutesEnv("PAYMENTS_PENDING_TIMEOUT_MINUTES", 24*time.Hour),
			ReconcileStaleAfter: getMinutesEnv("PAYMENTS_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:        int32(getIntEnv("PAYMENTS_JOB_BATCH_SIZE", 100)),
		},
		Fees: FeesConfig{
			PercentageFloorEnabled: getBoolEnv("FEES_PERCENTAGE_FLOOR_ENABLED", false),
			PercentageFloor:        percentageFloor,
		},
		Transfers: TransfersConfig{
			SourceCurrencyID:     uint64(getIntEnv("TRANSFERS_SOURCE_CURRENCY_ID", 1)),
			TargetCurrencyID:     uint64(getIntEnv("TRANSFERS_TARGET_CURRENCY_ID", 2)),
			DefaultReceptionMode: getEnv("TRANSFERS_DEFAULT_RECEPTION_MODE", "retrait_cash"),
		},
		Company: CompanyConfig{
			Name:    getEnv("COMPANY_NAME", "FELLO"),
			Address: getEnv("COMPANY_ADDRESS", "5 allé du Foehn Ostwald 67540, Strasbourg."),
			Phone:   getEnv("COMPANY_PHONE", ""),
			Email:   getEnv("COMPANY_EMAIL", "contact@societe.com"),
		},
		Mail: MailConfig{
			Host:     getEnv("MAIL_HOST", ""),
			Port:     getIntEnv("MAIL_PORT", 587),
			Username: getEnv("MAIL_USERNAME", ""),
			Password: getEnv("MAIL_PASSWORD", ""),
			From:     getEnv("MAIL_FROM_ADDRESS", "no-reply@fello.example"),
			FromName: getEnv("MAIL_FROM_NAME", "FELLO"),
			Timeout:  getSecondsEnv("MAIL_TIMEOUT_SECONDS", 10*time.Second),
		},
		Jobs: JobsConfig{
			ReconcileInterval:     getMinutesEnv("PAYMENTS_RECONCILE_INTERVAL_MINUTES", 5*time.Minute),
			ExpirePendingInterval: getMinutesEnv("PAYMENTS_EXPIRE_PENDING_INTERVAL_MINUTES", 30*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
