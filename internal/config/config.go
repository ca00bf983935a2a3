package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// MismatchPolicy controls how a client/server total divergence is handled.
type MismatchPolicy string

const (
	// MismatchFatal blocks the transaction with HTTP 403.
	MismatchFatal MismatchPolicy = "fatal"
	// MismatchLog records a security event but lets the charge proceed.
	MismatchLog MismatchPolicy = "log"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	AsaasAPIKey  string
	AsaasAPIURL  string
	AsaasTimeout time.Duration

	MismatchPolicy         MismatchPolicy
	MismatchToleranceCents int64
	ShippingStrictRegion   bool

	FixedFeeCents       int64
	AnticipationBps     int
	MinInstallmentCents int64
	MaxInstallments     int

	IdempotencyTTL  time.Duration
	RateLimitWindow time.Duration
	RateLimitMax    int

	BodyLimitBytes  int64
	SecurityHeaders bool
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		AsaasAPIKey:  strings.TrimSpace(k.String("ASAAS_API_KEY")),
		AsaasAPIURL:  valueOrDefault(k.String("ASAAS_API_URL"), "https://sandbox.asaas.com/api/v3"),
		AsaasTimeout: parseDuration(k.String("ASAAS_TIMEOUT"), "15s"),

		MismatchPolicy:         parseMismatchPolicy(k.String("CHECKOUT_MISMATCH_POLICY")),
		MismatchToleranceCents: parseInt64(k.String("CHECKOUT_MISMATCH_TOLERANCE_CENTS"), 5),
		ShippingStrictRegion:   parseBool(k.String("SHIPPING_STRICT_REGION")),

		FixedFeeCents:       parseInt64(k.String("PRICING_FIXED_FEE_CENTS"), 49),
		AnticipationBps:     int(parseInt64(k.String("PRICING_ANTICIPATION_BPS"), 160)),
		MinInstallmentCents: parseInt64(k.String("PRICING_MIN_INSTALLMENT_CENTS"), 500),
		MaxInstallments:     int(parseInt64(k.String("PRICING_MAX_INSTALLMENTS"), 21)),

		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:    int(parseInt64(k.String("RATE_LIMIT_MAX"), 30)),

		BodyLimitBytes:  parseInt64(k.String("SECURE_BODY_LIMIT_BYTES"), 1<<20),
		SecurityHeaders: parseBoolDefault(k.String("SECURE_HEADERS_ENABLED"), true),
	}

	if cfg.AsaasAPIKey == "" {
		return nil, errors.New("ASAAS_API_KEY is required")
	}
	if cfg.MaxInstallments < 1 {
		return nil, fmt.Errorf("PRICING_MAX_INSTALLMENTS must be at least 1, got %d", cfg.MaxInstallments)
	}
	if cfg.FixedFeeCents < 0 || cfg.AnticipationBps < 0 || cfg.MinInstallmentCents < 0 {
		return nil, errors.New("pricing configuration values must not be negative")
	}
	if cfg.MismatchToleranceCents < 0 {
		return nil, errors.New("CHECKOUT_MISMATCH_TOLERANCE_CENTS must not be negative")
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

func parseMismatchPolicy(value string) MismatchPolicy {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "log", "log-only":
		return MismatchLog
	default:
		return MismatchFatal
	}
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
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

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// LoadForTests overrides environment variables for the duration of a Load call.
func LoadForTests(envVars map[string]string) (*Config, error) {
	original := make(map[string]string, len(envVars))
	for key := range envVars {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, envVars[key]); err != nil {
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
