package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultDBPath          = "talaad.db"
	defaultGatewayTimeout  = 30 * time.Second
	defaultSMSTimeout      = 30 * time.Second
	defaultCheckoutPerMin  = 60
	defaultNotifyDedupTTL  = 24 * time.Hour
	defaultGatewayBaseURL  = "https://api.paysol.co.th/v1"
	defaultSMSBaseURL      = "https://api.siamsms.co.th"
	defaultGiftProductID   = 0
	defaultGiftMinSubtotal = 0
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Gateway    GatewayConfig
	SMS        SMSConfig
	FreeGift   FreeGiftConfig
	RateLimits RateLimitConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig stores ledger database parameters.
type DatabaseConfig struct {
	Path string
}

// RedisConfig stores the notification dedup store connection. An empty Addr
// disables Redis and the process falls back to the in-memory guard.
type RedisConfig struct {
	Addr           string
	DB             int
	NotifyDedupTTL time.Duration
}

// Enabled reports whether a Redis connection should be established.
func (c RedisConfig) Enabled() bool { return strings.TrimSpace(c.Addr) != "" }

// GatewayConfig collects payment gateway credentials and callback URLs.
type GatewayConfig struct {
	BaseURL       string
	MerchantID    string
	APIKey        string
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	FailURL       string
	CancelURL     string
	Timeout       time.Duration
}

// Configured reports whether real gateway calls can be attempted. Without
// credentials the payment flow runs in fallback mode.
func (c GatewayConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.SecretKey) != ""
}

// SMSConfig collects SMS provider credentials.
type SMSConfig struct {
	BaseURL  string
	APIKey   string
	ClientID string
	Sender   string
	Timeout  time.Duration
}

// Configured reports whether the SMS provider can be called.
func (c SMSConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.ClientID) != ""
}

// FreeGiftConfig configures the complimentary gift rule. A zero ProductID or
// MinSubtotal disables the rule.
type FreeGiftConfig struct {
	ProductID   uint
	MinSubtotal int64
}

// RateLimitConfig controls request throttling.
type RateLimitConfig struct {
	CheckoutPerMinute int
}

// ValidationError reports configuration values that failed validation.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid values for %s", strings.Join(e.fields, ", "))
}

// Fields returns the offending configuration field names.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

type loadOptions struct {
	envMap       map[string]string
	useSystemEnv bool
}

// Option customises configuration loading.
type Option func(*loadOptions)

// WithEnvMap overlays the provided values over the environment, primarily for tests.
func WithEnvMap(values map[string]string) Option {
	return func(o *loadOptions) {
		if o.envMap == nil {
			o.envMap = make(map[string]string, len(values))
		}
		for k, v := range values {
			o.envMap[k] = v
		}
	}
}

// WithoutSystemEnv ignores process environment variables entirely.
func WithoutSystemEnv() Option {
	return func(o *loadOptions) {
		o.useSystemEnv = false
	}
}

// Load reads and validates runtime configuration.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loadOptions{useSystemEnv: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	env := func(key string) string {
		if v, ok := options.envMap[key]; ok {
			return strings.TrimSpace(v)
		}
		if !options.useSystemEnv {
			return ""
		}
		return strings.TrimSpace(os.Getenv(key))
	}

	var invalid []string

	str := func(key, fallback string) string {
		if v := env(key); v != "" {
			return v
		}
		return fallback
	}
	integer := func(key string, fallback int) int {
		v := env(key)
		if v == "" {
			return fallback
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			invalid = append(invalid, key)
			return fallback
		}
		return n
	}
	seconds := func(key string, fallback time.Duration) time.Duration {
		v := env(key)
		if v == "" {
			return fallback
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			invalid = append(invalid, key)
			return fallback
		}
		return time.Duration(n) * time.Second
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         str("PORT", defaultPort),
			ReadTimeout:  seconds("SERVER_READ_TIMEOUT_SEC", defaultReadTimeout),
			WriteTimeout: seconds("SERVER_WRITE_TIMEOUT_SEC", defaultWriteTimeout),
			IdleTimeout:  seconds("SERVER_IDLE_TIMEOUT_SEC", defaultIdleTimeout),
		},
		Database: DatabaseConfig{
			Path: str("DB_PATH", defaultDBPath),
		},
		Redis: RedisConfig{
			Addr:           env("REDIS_ADDR"),
			DB:             integer("REDIS_DB", 0),
			NotifyDedupTTL: seconds("NOTIFY_DEDUP_TTL_SEC", defaultNotifyDedupTTL),
		},
		Gateway: GatewayConfig{
			BaseURL:       str("PAYSOL_BASE_URL", defaultGatewayBaseURL),
			MerchantID:    env("PAYSOL_MERCHANT_ID"),
			APIKey:        env("PAYSOL_API_KEY"),
			SecretKey:     env("PAYSOL_SECRET_KEY"),
			WebhookSecret: env("PAYSOL_WEBHOOK_SECRET"),
			SuccessURL:    env("PAYMENT_SUCCESS_URL"),
			FailURL:       env("PAYMENT_FAIL_URL"),
			CancelURL:     env("PAYMENT_CANCEL_URL"),
			Timeout:       seconds("PAYSOL_TIMEOUT_SEC", defaultGatewayTimeout),
		},
		SMS: SMSConfig{
			BaseURL:  str("SMS_BASE_URL", defaultSMSBaseURL),
			APIKey:   env("SMS_API_KEY"),
			ClientID: env("SMS_CLIENT_ID"),
			Sender:   str("SMS_SENDER", "TALAAD"),
			Timeout:  seconds("SMS_TIMEOUT_SEC", defaultSMSTimeout),
		},
		FreeGift: FreeGiftConfig{
			ProductID:   uint(integer("FREE_GIFT_PRODUCT_ID", defaultGiftProductID)),
			MinSubtotal: int64(integer("FREE_GIFT_MIN_SUBTOTAL", defaultGiftMinSubtotal)),
		},
		RateLimits: RateLimitConfig{
			CheckoutPerMinute: integer("RATE_LIMIT_CHECKOUT_PER_MIN", defaultCheckoutPerMin),
		},
	}

	if cfg.RateLimits.CheckoutPerMinute < 0 {
		invalid = append(invalid, "RATE_LIMIT_CHECKOUT_PER_MIN")
	}
	if cfg.FreeGift.MinSubtotal < 0 {
		invalid = append(invalid, "FREE_GIFT_MIN_SUBTOTAL")
	}
	if cfg.Gateway.Configured() {
		if cfg.Gateway.SuccessURL == "" {
			invalid = append(invalid, "PAYMENT_SUCCESS_URL")
		}
		if cfg.Gateway.FailURL == "" {
			invalid = append(invalid, "PAYMENT_FAIL_URL")
		}
	}

	if len(invalid) > 0 {
		sort.Strings(invalid)
		return Config{}, &ValidationError{fields: dedupeStrings(invalid)}
	}

	return cfg, nil
}

func dedupeStrings(values []string) []string {
	out := values[:0]
	var last string
	for i, v := range values {
		if i > 0 && v == last {
			continue
		}
		out = append(out, v)
		last = v
	}
	return out
}
