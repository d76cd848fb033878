package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	aws_pkg "github.com/yashrajoria/bike-store/pkg/aws"
)

// Secret names read when AWS_USE_SECRETS=true.
const (
	SecretDBCredentials = "bike-store/DB_CREDENTIALS"
	SecretStripeKey     = "bike-store/STRIPE_SECRET_KEY"
)

type Config struct {
	Port   string
	AppEnv string

	DBUser     string
	DBPassword string
	DBHost     string
	DBName     string
	MongoURI   string // overrides the URI composed from DBUser/DBPassword/DBHost

	StripeSecretKey string
	StripeCurrency  string
	StripeAPIURL    string // stripe-mock or other API base override

	RedisURL        string
	CatalogCacheTTL time.Duration

	PaymentSNSTopicARN         string
	RequireOwnerOnConfirmation bool
	SettlementSweepInterval    time.Duration
	SettlementPendingTimeout   time.Duration

	RequestTimeout     time.Duration
	AllowedOrigins     string
	RateLimitPerMinute int

	CloudWatchEnabled bool
	UseSecrets        bool
}

// Load reads .env (when present) and the environment, applies the Secrets
// Manager override when enabled, and validates the result.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.UseSecrets {
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		if err := ApplySecrets(ctx, cfg, aws_pkg.NewSecretsClient(awsCfg)); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:                       getEnv("PORT", "3000"),
		AppEnv:                     getEnv("APP_ENV", "development"),
		DBUser:                     os.Getenv("DB_USER"),
		DBPassword:                 os.Getenv("DB_PASSWORD"),
		DBHost:                     getEnv("DB_HOST", "cluster0.jgp414t.mongodb.net"),
		DBName:                     getEnv("DB_NAME", "bikeDB"),
		MongoURI:                   os.Getenv("MONGO_URI"),
		StripeSecretKey:            os.Getenv("STRIPE_SECRET_KEY"),
		StripeCurrency:             getEnv("STRIPE_CURRENCY", "usd"),
		StripeAPIURL:               os.Getenv("STRIPE_API_URL"),
		RedisURL:                   os.Getenv("REDIS_URL"),
		PaymentSNSTopicARN:         os.Getenv("PAYMENT_SNS_TOPIC_ARN"),
		AllowedOrigins:             getEnv("ALLOWED_ORIGINS", "*"),
		CloudWatchEnabled:          os.Getenv("CLOUDWATCH_ENABLED") == "true",
		UseSecrets:                 os.Getenv("AWS_USE_SECRETS") == "true",
		RequireOwnerOnConfirmation: os.Getenv("PAYMENT_CONFIRM_REQUIRE_OWNER") == "true",
	}

	var err error
	if cfg.CatalogCacheTTL, err = getDuration("CATALOG_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SettlementSweepInterval, err = getDuration("SETTLEMENT_SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.SettlementPendingTimeout, err = getDuration("SETTLEMENT_PENDING_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 600); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplySecrets overrides database credentials and the Stripe key with values
// from the secret store. Missing secrets leave the env values in place.
func ApplySecrets(ctx context.Context, cfg *Config, sm aws_pkg.SecretGetter) error {
	if dbjson, err := sm.GetSecret(ctx, SecretDBCredentials); err == nil && dbjson != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(dbjson), &m); err != nil {
			return fmt.Errorf("parse %s: %w", SecretDBCredentials, err)
		}
		if v := m["DB_USER"]; v != "" {
			cfg.DBUser = v
		}
		if v := m["DB_PASSWORD"]; v != "" {
			cfg.DBPassword = v
		}
		if v := m["DB_HOST"]; v != "" {
			cfg.DBHost = v
		}
	}

	if key, err := sm.GetSecret(ctx, SecretStripeKey); err == nil && key != "" {
		cfg.StripeSecretKey = key
	}
	return nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if c.MongoURI == "" && (c.DBUser == "" || c.DBPassword == "") {
		return fmt.Errorf("DB_USER and DB_PASSWORD are required when MONGO_URI is not set")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

// DatabaseURI returns MONGO_URI when set, otherwise the Atlas SRV URI built
// from the credentials.
func (c *Config) DatabaseURI() string {
	if c.MongoURI != "" {
		return c.MongoURI
	}
	u := url.URL{
		Scheme:   "mongodb+srv",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost,
		Path:     "/",
		RawQuery: "retryWrites=true&w=majority&appName=Cluster0",
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
