package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	BaseURL         string
	StoreName       string
	DefaultProvider string
	DefaultCurrency string

	StripeSecretKey        string
	StripeWebhookSecret    string
	StripeWebhookTolerance time.Duration
	GatewayTimeout         time.Duration
	WebhookHandlerTimeout  time.Duration

	EmailMode          string
	SendGridAPIKey     string
	EmailFrom          string
	EmailFromName      string
	EmailTimeout       time.Duration
	EmailSignatureHTML string
	AdminEmails        []string

	DbUser     string
	DbPassword string
	DbHost     string
	DbName     string
	DbPort     string
	SSLMode    string

	RedisURL         string
	WebhookDedupeTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	OTLPEndpoint string
	LogLevel     string
	LogPath      string
}

const (
	EmailModeSendGrid = "sendgrid"
	EmailModeLog      = "log"
)

// Load reads the .env file when there is one, then the process environment.
// The returned value is not modified after startup.
func Load() (*Config, error) {
	// .env is a development convenience; a missing file is fine
	_ = godotenv.Load()

	var errs []error

	port, err := intEnv("PORT", 8080)
	errs = append(errs, err)
	tolerance, err := durationEnv("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute)
	errs = append(errs, err)
	gatewayTimeout, err := durationEnv("GATEWAY_TIMEOUT", 10*time.Second)
	errs = append(errs, err)
	handlerTimeout, err := durationEnv("WEBHOOK_HANDLER_TIMEOUT", 5*time.Second)
	errs = append(errs, err)
	emailTimeout, err := durationEnv("EMAIL_TIMEOUT", 10*time.Second)
	errs = append(errs, err)
	dedupeTTL, err := durationEnv("WEBHOOK_DEDUPE_TTL", 72*time.Hour)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &Config{
		Port:            port,
		BaseURL:         strings.TrimRight(strings.TrimSpace(os.Getenv("BASE_URL")), "/"),
		StoreName:       stringEnv("STORE_NAME", "Storefront"),
		DefaultProvider: stringEnv("DEFAULT_PROVIDER", "stripe"),
		DefaultCurrency: strings.ToLower(stringEnv("DEFAULT_CURRENCY", "usd")),

		StripeSecretKey:        strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		StripeWebhookSecret:    strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
		StripeWebhookTolerance: tolerance,
		GatewayTimeout:         gatewayTimeout,
		WebhookHandlerTimeout:  handlerTimeout,

		EmailMode:          strings.ToLower(stringEnv("EMAIL_MODE", EmailModeSendGrid)),
		SendGridAPIKey:     strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")),
		EmailFrom:          strings.TrimSpace(os.Getenv("EMAIL_FROM")),
		EmailFromName:      stringEnv("EMAIL_FROM_NAME", stringEnv("STORE_NAME", "Storefront")),
		EmailTimeout:       emailTimeout,
		EmailSignatureHTML: os.Getenv("EMAIL_SIGNATURE_HTML"),
		AdminEmails:        listEnv("ADMIN_EMAILS"),

		DbUser:     os.Getenv("DB_USER"),
		DbPassword: os.Getenv("DB_PASSWORD"),
		DbHost:     os.Getenv("DB_HOST"),
		DbName:     os.Getenv("DB_NAME"),
		DbPort:     stringEnv("DB_PORT", "5432"),
		SSLMode:    stringEnv("SSL_MODE", "disable"),

		RedisURL:         strings.TrimSpace(os.Getenv("REDIS_URL")),
		WebhookDedupeTTL: dedupeTTL,

		KafkaBrokers: listEnv("KAFKA_BROKERS"),
		KafkaTopic:   stringEnv("KAFKA_TOPIC", "storefront.payment.events"),

		OTLPEndpoint: strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		LogLevel:     stringEnv("LOG_LEVEL", "info"),
		LogPath:      os.Getenv("LOG_PATH"),
	}, nil
}

// Validate returns fatal problems and warnings. Warnings describe features
// that are switched off; the routes that need them answer 500 "not configured".
func (c *Config) Validate() (warnings []string, err error) {
	var errs []error

	if c.BaseURL == "" {
		errs = append(errs, errors.New("BASE_URL is required"))
	} else if u, perr := url.Parse(c.BaseURL); perr != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BASE_URL %q must be an absolute URL", c.BaseURL))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.EmailMode != EmailModeSendGrid && c.EmailMode != EmailModeLog {
		errs = append(errs, fmt.Errorf("EMAIL_MODE must be %q or %q", EmailModeSendGrid, EmailModeLog))
	}

	if c.StripeSecretKey == "" {
		warnings = append(warnings, "STRIPE_SECRET_KEY not set: checkout and payment intent routes are disabled")
	}
	if c.StripeWebhookSecret == "" {
		warnings = append(warnings, "STRIPE_WEBHOOK_SECRET not set: webhook route is disabled")
	}
	if c.EmailMode == EmailModeSendGrid && (c.SendGridAPIKey == "" || c.EmailFrom == "") {
		warnings = append(warnings, "SENDGRID_API_KEY or EMAIL_FROM not set: email routes are disabled")
	}
	if len(c.AdminEmails) == 0 {
		warnings = append(warnings, "ADMIN_EMAILS not set: admin order alerts are disabled")
	}
	if !c.DatabaseEnabled() {
		warnings = append(warnings, "DB_HOST not set: webhook events will not update orders")
	}
	if c.RedisURL == "" {
		warnings = append(warnings, "REDIS_URL not set: webhook side effects are not deduplicated")
	}

	return warnings, errors.Join(errs...)
}

func (c *Config) DatabaseEnabled() bool {
	return c.DbHost != ""
}

func (c *Config) EmailEnabled() bool {
	if c.EmailMode == EmailModeLog {
		return true
	}
	return c.SendGridAPIKey != "" && c.EmailFrom != ""
}

// DatabaseURL builds the pgx connection string.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DbUser, c.DbPassword),
		Host:     c.DbHost + ":" + c.DbPort,
		Path:     "/" + c.DbName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode) + "&connect_timeout=10",
	}
	return u.String()
}

// Redacted is safe to log.
func (c *Config) Redacted() map[string]any {
	return map[string]any{
		"port":             c.Port,
		"base_url":         c.BaseURL,
		"default_provider": c.DefaultProvider,
		"stripe_key_set":   c.StripeSecretKey != "",
		"webhook_key_set":  c.StripeWebhookSecret != "",
		"email_mode":       c.EmailMode,
		"admin_recipients": len(c.AdminEmails),
		"database":         c.DatabaseEnabled(),
		"redis":            c.RedisURL != "",
		"kafka":            len(c.KafkaBrokers) > 0,
		"tracing":          c.OTLPEndpoint != "",
	}
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

// listEnv splits a comma separated variable, keeping order and duplicates.
func listEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
