package config

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("unexpected port %q", cfg.Server.Port)
	}
	if cfg.Database.Path != "talaad.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Gateway.Timeout != 30*time.Second {
		t.Fatalf("unexpected gateway timeout %v", cfg.Gateway.Timeout)
	}
	if cfg.Gateway.Configured() {
		t.Fatal("gateway must be unconfigured by default")
	}
	if cfg.SMS.Configured() {
		t.Fatal("sms must be unconfigured by default")
	}
	if cfg.Redis.Enabled() {
		t.Fatal("redis must be disabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvMap(map[string]string{
		"PORT":                   "9090",
		"PAYSOL_API_KEY":         "key",
		"PAYSOL_SECRET_KEY":      "secret",
		"PAYSOL_MERCHANT_ID":     "m-1",
		"PAYMENT_SUCCESS_URL":    "https://shop.example/pay/success",
		"PAYMENT_FAIL_URL":       "https://shop.example/pay/fail",
		"FREE_GIFT_PRODUCT_ID":   "42",
		"FREE_GIFT_MIN_SUBTOTAL": "100000",
		"PAYSOL_TIMEOUT_SEC":     "10",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("unexpected port %q", cfg.Server.Port)
	}
	if !cfg.Gateway.Configured() {
		t.Fatal("gateway should be configured")
	}
	if cfg.Gateway.Timeout != 10*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Gateway.Timeout)
	}
	if cfg.FreeGift.ProductID != 42 || cfg.FreeGift.MinSubtotal != 100000 {
		t.Fatalf("unexpected free gift config %#v", cfg.FreeGift)
	}
}

func TestLoadConfiguredGatewayRequiresCallbackURLs(t *testing.T) {
	_, err := Load(context.Background(), WithoutSystemEnv(), WithEnvMap(map[string]string{
		"PAYSOL_API_KEY":    "key",
		"PAYSOL_SECRET_KEY": "secret",
	}))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := verr.Fields()
	if len(fields) != 2 || fields[0] != "PAYMENT_FAIL_URL" || fields[1] != "PAYMENT_SUCCESS_URL" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	_, err := Load(context.Background(), WithoutSystemEnv(), WithEnvMap(map[string]string{
		"PAYSOL_TIMEOUT_SEC": "not-a-number",
	}))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
