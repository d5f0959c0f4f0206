package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	AuthJWTSecret string
	AdminEmails   []string

	// BillingEnforce gates the entitlement checker. It is forced on in
	// production; turning it off makes every generation request allowed
	// under the "dev" plan.
	BillingEnforce bool

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

	Stripe    StripeConfig
	Control   ControlConfig
	RateLimit RateLimitConfig
}

// StripeConfig carries the payment-provider credentials and redirect URLs.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// ControlConfig points at the ControlNet generation service and carries the
// default diffusion knobs sent with every request.
type ControlConfig struct {
	ServiceURL     string
	Endpoint       string
	Token          string
	NegativePrompt string
	Strength       float64
	GuidanceScale  float64
	InferenceSteps int
	CannyScale     float64
	CannyLow       int
	CannyHigh      int
}

// RateLimitConfig configures the per-IP generation limiter.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	GenerateRate  float64
	GenerateBurst int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	enforce := getenvBool("BILLING_ENFORCE", true)
	if environment == "production" {
		enforce = true
	}

	siteURL := strings.TrimRight(getenv("PUBLIC_SITE_URL", "http://localhost:3000"), "/")

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "roomgpt"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		AuthJWTSecret:  strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AdminEmails:    splitEmails(getenv("ADMIN_EMAILS", "")),
		BillingEnforce: enforce,

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "roomgpt"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		Stripe: StripeConfig{
			SecretKey:     strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			SuccessURL:    getenv("STRIPE_SUCCESS_URL", siteURL+"/billing/success"),
			CancelURL:     getenv("STRIPE_CANCEL_URL", siteURL+"/billing/cancel"),
		},

		Control: ControlConfig{
			ServiceURL:     strings.TrimSpace(getenv("CONTROL_SERVICE_URL", "")),
			Endpoint:       getenv("CONTROL_SERVICE_ENDPOINT", "/generate"),
			Token:          strings.TrimSpace(getenv("CONTROL_SERVICE_TOKEN", "")),
			NegativePrompt: getenv("CONTROL_DEFAULT_NEGATIVE_PROMPT", "low quality, blurry, distorted, extra furniture, warped walls, overexposed"),
			Strength:       getenvFloat("CONTROL_DEFAULT_STRENGTH", 0.35),
			GuidanceScale:  getenvFloat("CONTROL_DEFAULT_GUIDANCE", 6),
			InferenceSteps: getenvInt("CONTROL_DEFAULT_INFERENCE_STEPS", 30),
			CannyScale:     getenvFloat("CONTROL_CANNY_CONDITIONING_SCALE", 0.75),
			CannyLow:       getenvInt("CONTROL_CANNY_LOW_THRESHOLD", 100),
			CannyHigh:      getenvInt("CONTROL_CANNY_HIGH_THRESHOLD", 200),
		},

		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getenvInt("REDIS_DB", 0),
			GenerateRate:  getenvFloat("RATE_LIMIT_GENERATE_RATE", 5.0/86400),
			GenerateBurst: getenvInt("RATE_LIMIT_GENERATE_BURST", 5),
		},
	}

	return cfg
}

// IsAdminEmail reports whether email is on the admin allow-list.
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, admin := range c.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}

func splitEmails(raw string) []string {
	parts := strings.Split(raw, ",")
	emails := make([]string, 0, len(parts))
	for _, part := range parts {
		email := strings.ToLower(strings.TrimSpace(part))
		if email != "" {
			emails = append(emails, email)
		}
	}
	return emails
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
