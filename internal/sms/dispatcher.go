// Package sms sends best-effort customer notifications through an external
// SMS provider. Callers treat every failure as log-and-continue.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidPhoneFormat indicates normalisation could not produce a
	// valid Thai mobile number.
	ErrInvalidPhoneFormat = errors.New("sms: invalid phone format")
	// ErrProviderRejected indicates the provider answered with an error body.
	ErrProviderRejected = errors.New("sms: provider rejected the message")
	// ErrProviderUnreachable indicates the request could not be delivered.
	ErrProviderUnreachable = errors.New("sms: provider unreachable")
	// ErrRequestSetup indicates a local failure before the request was sent.
	ErrRequestSetup = errors.New("sms: request setup failed")
)

const (
	countryCode       = "66"
	defaultSMSTimeout = 30 * time.Second
	maxResponseBytes  = 64 << 10
)

// A normalised number is the country code plus a 9-digit subscriber number.
var phonePattern = regexp.MustCompile(`^66\d{9}$`)

// NormalizePhone converts the customer-entered phone into the strict
// country-code-prefixed form the provider requires: separators stripped, the
// national trunk '0' replaced by '66', and a bare subscriber number prefixed.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	cleaned = strings.TrimPrefix(cleaned, "+")

	switch {
	case strings.HasPrefix(cleaned, "0"):
		cleaned = countryCode + cleaned[1:]
	case strings.HasPrefix(cleaned, countryCode):
		// already prefixed
	case len(cleaned) == 9:
		cleaned = countryCode + cleaned
	}

	if !phonePattern.MatchString(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhoneFormat, raw)
	}
	return cleaned, nil
}

// Config configures the Dispatcher.
type Config struct {
	BaseURL    string
	APIKey     string
	ClientID   string
	Sender     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

// Dispatcher is the SMS provider client.
type Dispatcher struct {
	baseURL  string
	apiKey   string
	clientID string
	sender   string
	client   *http.Client
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewDispatcher constructs a Dispatcher, requiring provider credentials.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("sms: api key and client id are required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("sms: base url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMSTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &Dispatcher{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		clientID: strings.TrimSpace(cfg.ClientID),
		sender:   strings.TrimSpace(cfg.Sender),
		client:   client,
		logger:   logger,
	}, nil
}

// providerResponse mirrors the provider's reply; error_code 0 means accepted.
type providerResponse struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	MessageID    string `json:"message_id"`
}

// Response is the provider's raw acknowledgement, returned for logging.
type Response struct {
	MessageID string
	Raw       map[string]any
}

// SendPaymentSuccess notifies the customer that the order's payment settled.
func (d *Dispatcher) SendPaymentSuccess(ctx context.Context, phone, orderNo string) (Response, error) {
	if d == nil {
		return Response{}, fmt.Errorf("%w: dispatcher is nil", ErrRequestSetup)
	}

	to, err := NormalizePhone(phone)
	if err != nil {
		return Response{}, err
	}

	message := fmt.Sprintf("Talaad: payment received for order %s. We are preparing your delivery.", orderNo)
	payload := map[string]string{
		"api_key":   d.apiKey,
		"client_id": d.clientID,
		"sender":    d.sender,
		"to":        to,
		"message":   message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("%w: marshal payload: %v", ErrRequestSetup, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/sms/send", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("%w: build request: %v", ErrRequestSetup, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("%w: read response: %v", ErrProviderUnreachable, err)
	}

	var parsed providerResponse
	rawMap := map[string]any{}
	_ = json.Unmarshal(raw, &parsed)
	_ = json.Unmarshal(raw, &rawMap)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || parsed.ErrorCode != 0 {
		message := parsed.ErrorMessage
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		d.logger(ctx, "sms.rejected", map[string]any{
			"orderNo": orderNo,
			"code":    parsed.ErrorCode,
			"message": message,
		})
		return Response{}, fmt.Errorf("%w: %s", ErrProviderRejected, message)
	}

	d.logger(ctx, "sms.sent", map[string]any{
		"orderNo":   orderNo,
		"messageId": parsed.MessageID,
	})

	return Response{MessageID: parsed.MessageID, Raw: rawMap}, nil
}
