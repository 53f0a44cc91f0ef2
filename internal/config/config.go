package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// VNPay holds the redirect-style gateway settings. The hash secret signs both
// the outbound redirect URL and inbound return/IPN notifications.
type VNPay struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	QueryURL   string
	ReturnURL  string
	Locale     string
}

// ZaloPay holds the wallet-style gateway settings. Key1 signs outbound
// create/query requests; Key2 verifies inbound callbacks.
type ZaloPay struct {
	AppID       string
	Key1        string
	Key2        string
	CreateURL   string
	QueryURL    string
	CallbackURL string
	ReturnURL   string
	AppUser     string
}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CatalogCacheTTL time.Duration
	IdempotencyTTL  time.Duration
	CurrencyCode    string

	VNPay   VNPay
	ZaloPay ZaloPay

	GatewayTimeout    time.Duration
	PaymentReplayTTL  time.Duration
	RelayRateLimit    string
	ReconcileInterval time.Duration
	ReconcileMinAge   time.Duration
	ReconcileBatch    int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		AccessTokenTTL:     parseDuration(k.String("ACCESS_TOKEN_TTL"), "15m"),
		RefreshTokenTTL:    parseDuration(k.String("REFRESH_TOKEN_TTL"), "720h"),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CurrencyCode:       valueOrDefault(k.String("CURRENCY_CODE"), "VND"),
		VNPay: VNPay{
			TmnCode:    k.String("VNPAY_TMN_CODE"),
			HashSecret: k.String("VNPAY_HASH_SECRET"),
			PayURL:     valueOrDefault(k.String("VNPAY_PAY_URL"), "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			QueryURL:   valueOrDefault(k.String("VNPAY_QUERY_URL"), "https://sandbox.vnpayment.vn/merchant_webapi/api/transaction"),
			ReturnURL:  k.String("VNPAY_RETURN_URL"),
			Locale:     valueOrDefault(k.String("VNPAY_LOCALE"), "vn"),
		},
		ZaloPay: ZaloPay{
			AppID:       k.String("ZALOPAY_APP_ID"),
			Key1:        k.String("ZALOPAY_KEY1"),
			Key2:        k.String("ZALOPAY_KEY2"),
			CreateURL:   valueOrDefault(k.String("ZALOPAY_CREATE_URL"), "https://sb-openapi.zalopay.vn/v2/create"),
			QueryURL:    valueOrDefault(k.String("ZALOPAY_QUERY_URL"), "https://sb-openapi.zalopay.vn/v2/query"),
			CallbackURL: k.String("ZALOPAY_CALLBACK_URL"),
			ReturnURL:   k.String("ZALOPAY_RETURN_URL"),
			AppUser:     valueOrDefault(k.String("ZALOPAY_APP_USER"), "store-customer"),
		},
		GatewayTimeout:    parseDuration(k.String("GATEWAY_TIMEOUT"), "15s"),
		PaymentReplayTTL:  parseDuration(k.String("PAYMENT_REPLAY_TTL"), "48h"),
		RelayRateLimit:    valueOrDefault(k.String("RELAY_RATE_LIMIT"), "60-M"),
		ReconcileInterval: parseDuration(k.String("RECONCILE_INTERVAL"), "1m"),
		ReconcileMinAge:   parseDuration(k.String("RECONCILE_MIN_AGE"), "5m"),
		ReconcileBatch:    intOrDefault(k.Int("RECONCILE_BATCH"), 50),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
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

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func intOrDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

// LoadForTests overrides environment variables for the duration of one Load.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
