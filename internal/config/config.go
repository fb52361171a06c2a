package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Storefront  StorefrontConfig
	Payment     PaymentConfig
	Shipping    ShippingConfig
	SMTP        SMTPConfig
	Admin       AdminConfig
	Fulfillment FulfillmentConfig
	RateLimit   RateLimitConfig

	PromotionConfigPath string
	// SeedCatalogPath names a catalog file imported on startup.
	SeedCatalogPath string
}

type StorefrontConfig struct {
	// SiteURL is the public origin used for checkout redirects.
	SiteURL string

	Currency string
}

type PaymentConfig struct {
	Provider      string
	SecretKey     string
	WebhookSecret string
	APIBaseURL    string

	// LiveHosts lists site hosts that must run against live provider keys.
	LiveHosts        []string
	AutomaticTax     bool
	WebhookTolerance time.Duration
}

type ShippingConfig struct {
	StandardRateID        string
	FreeRateID            string
	FreeShippingThreshold int64
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	OpsEmail string
}

type AdminConfig struct {
	// APIKeys maps an actor id to an argon2id key hash.
	APIKeys map[string]string
}

type FulfillmentConfig struct {
	RetryInterval    time.Duration
	RetryBatchSize   int
	RetryMaxAttempts int
}

// RateLimitConfig throttles checkout session creation per client. Limits
// apply only when Redis is configured.
type RateLimitConfig struct {
	CheckoutRate  float64
	CheckoutBurst int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "storefront"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "postgres"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		Storefront: StorefrontConfig{
			SiteURL:  strings.TrimRight(strings.TrimSpace(getenv("SITE_URL", "http://localhost:3000")), "/"),
			Currency: strings.ToLower(getenv("STORE_CURRENCY", "usd")),
		},
		Payment: PaymentConfig{
			Provider:         strings.ToLower(getenv("PAYMENT_PROVIDER", "stripe")),
			SecretKey:        strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret:    strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			APIBaseURL:       strings.TrimSpace(getenv("STRIPE_API_BASE_URL", "https://api.stripe.com")),
			LiveHosts:        parseList(getenv("PAYMENT_LIVE_HOSTS", "")),
			AutomaticTax:     getenvBool("STRIPE_AUTOMATIC_TAX", true),
			WebhookTolerance: getenvDuration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute),
		},
		Shipping: ShippingConfig{
			StandardRateID:        strings.TrimSpace(getenv("SHIPPING_RATE_STANDARD", "")),
			FreeRateID:            strings.TrimSpace(getenv("SHIPPING_RATE_FREE", "")),
			FreeShippingThreshold: getenvInt64("FREE_SHIPPING_THRESHOLD", 7500),
		},
		SMTP: SMTPConfig{
			Host:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			Port:     getenvInt("SMTP_PORT", 587),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", "orders@localhost"),
			OpsEmail: strings.TrimSpace(getenv("OPS_EMAIL", "")),
		},
		Admin: AdminConfig{
			APIKeys: parseKeyMap(getenv("ADMIN_API_KEYS", "")),
		},
		Fulfillment: FulfillmentConfig{
			RetryInterval:    getenvDuration("FULFILLMENT_RETRY_INTERVAL", 30*time.Second),
			RetryBatchSize:   getenvInt("FULFILLMENT_RETRY_BATCH_SIZE", 50),
			RetryMaxAttempts: getenvInt("FULFILLMENT_RETRY_MAX_ATTEMPTS", 10),
		},
		RateLimit: RateLimitConfig{
			CheckoutRate:  getenvFloat("CHECKOUT_RATE_LIMIT_RATE", 0.5),
			CheckoutBurst: getenvInt("CHECKOUT_RATE_LIMIT_BURST", 5),
		},
		PromotionConfigPath: strings.TrimSpace(getenv("PROMOTION_CONFIG_PATH", "")),
		SeedCatalogPath:     strings.TrimSpace(getenv("SEED_CATALOG_PATH", "")),
	}

	return cfg
}

// SiteHost returns the lowercase host of the public site URL.
func (c Config) SiteHost() string {
	parsed, err := url.Parse(c.Storefront.SiteURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// IsLiveSite reports whether the public site must charge real money.
func (c Config) IsLiveSite() bool {
	host := c.SiteHost()
	if host == "" {
		return false
	}
	for _, live := range c.Payment.LiveHosts {
		if strings.EqualFold(live, host) {
			return true
		}
	}
	return false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// parseKeyMap reads "actor=hash;actor2=hash2". Hashes contain commas and
// equals signs, so only the first "=" of each pair splits.
func parseKeyMap(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		actor, hash, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		actor = strings.TrimSpace(actor)
		hash = strings.TrimSpace(hash)
		if actor == "" || hash == "" {
			continue
		}
		out[actor] = hash
	}
	return out
}
