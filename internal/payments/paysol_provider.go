package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// ProviderPaysol identifies the real gateway integration.
	ProviderPaysol = "paysol"

	defaultPaysolTimeout = 30 * time.Second
	maxResponseBytes     = 1 << 20
)

// PaysolConfig configures the Paysol gateway client.
type PaysolConfig struct {
	BaseURL    string
	MerchantID string
	APIKey     string
	SecretKey  string
	SuccessURL string
	FailURL    string
	CancelURL  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     Logger
}

// PaysolProvider implements Provider against the Paysol HTTP API.
type PaysolProvider struct {
	baseURL    string
	merchantID string
	apiKey     string
	secretKey  string
	successURL string
	failURL    string
	cancelURL  string
	client     *http.Client
	logger     Logger
}

// NewPaysolProvider constructs a gateway client, requiring credentials; the
// caller decides between this and the fallback provider based on
// configuration.
func NewPaysolProvider(cfg PaysolConfig) (*PaysolProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("paysol: api key and secret key are required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("paysol: base url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPaysolTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &PaysolProvider{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		merchantID: strings.TrimSpace(cfg.MerchantID),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		secretKey:  strings.TrimSpace(cfg.SecretKey),
		successURL: strings.TrimSpace(cfg.SuccessURL),
		failURL:    strings.TrimSpace(cfg.FailURL),
		cancelURL:  strings.TrimSpace(cfg.CancelURL),
		client:     client,
		logger:     logger,
	}, nil
}

// Name returns the gateway identifier recorded on payment rows.
func (p *PaysolProvider) Name() string { return ProviderPaysol }

// paysolResponse mirrors the gateway's result object. The API historically
// answers with either a bare object or a one-element array of this shape.
type paysolResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_ID"`
	QRImage       string `json:"image_qrprom"`
	PaymentLink   string `json:"link_payment"`
	Description   string `json:"description"`
}

// CreateTransaction starts a collection attempt at the gateway.
func (p *PaysolProvider) CreateTransaction(ctx context.Context, req TransactionRequest) (TransactionResult, error) {
	if p == nil {
		return TransactionResult{}, &GatewayFailure{Kind: FailureProtocol, Message: "provider is nil"}
	}

	firstName, lastName := SplitName(req.CustomerName)
	reference := SanitizeReference(req.OrderNo)

	payload := map[string]any{
		"merchantID":    p.merchantID,
		"referenceNo":   reference,
		"requestNo":     uuid.NewString(),
		"total":         FormatAmount(req.Amount),
		"paymentType":   string(req.Method),
		"cusFirstname":  firstName,
		"cusLastname":   lastName,
		"cusEmail":      req.CustomerEmail,
		"cusphone":      req.CustomerPhone,
		"returnSuccess": p.successURL,
		"returnFail":    p.failURL,
		"returnCancel":  p.cancelURL,
	}
	if req.Method == MethodQR {
		payload["qrType"] = "promptpay"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return TransactionResult{}, &GatewayFailure{Kind: FailureProtocol, Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return TransactionResult{}, &GatewayFailure{Kind: FailureProtocol, Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apikey", p.apiKey)
	httpReq.Header.Set("secretkey", p.secretKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger(ctx, "payments.paysol.unreachable", map[string]any{
			"reference": reference,
			"error":     err.Error(),
		})
		return TransactionResult{}, &GatewayFailure{Kind: FailureUnreachable, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return TransactionResult{}, &GatewayFailure{Kind: FailureUnreachable, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger(ctx, "payments.paysol.http_error", map[string]any{
			"reference": reference,
			"status":    resp.StatusCode,
		})
		return TransactionResult{}, &GatewayFailure{
			Kind:    FailureHTTP,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(raw), 256)),
		}
	}

	result, rawMap, err := normalisePaysolBody(raw)
	if err != nil {
		return TransactionResult{}, err
	}

	if strings.EqualFold(result.Status, "error") {
		message := result.Description
		if message == "" {
			message = "gateway rejected the transaction"
		}
		p.logger(ctx, "payments.paysol.rejected", map[string]any{
			"reference": reference,
			"message":   message,
		})
		return TransactionResult{}, &GatewayFailure{Kind: FailureRejected, Message: message}
	}

	if result.TransactionID == "" {
		return TransactionResult{}, &GatewayFailure{
			Kind:    FailureProtocol,
			Message: "success response missing transaction_ID",
		}
	}

	paymentURL := result.PaymentLink
	if req.Method == MethodQR && paymentURL == "" {
		paymentURL = result.QRImage
	}
	if paymentURL == "" {
		return TransactionResult{}, &GatewayFailure{
			Kind:    FailureProtocol,
			Message: "success response missing payment link",
		}
	}

	p.logger(ctx, "payments.paysol.transaction_created", map[string]any{
		"reference":     reference,
		"transactionId": result.TransactionID,
		"method":        string(req.Method),
	})

	return TransactionResult{
		TransactionID: result.TransactionID,
		PaymentURL:    paymentURL,
		QRCodeURL:     result.QRImage,
		Raw:           rawMap,
	}, nil
}

// normalisePaysolBody accepts both historical response shapes: a bare result
// object and a one-element array wrapping it.
func normalisePaysolBody(raw []byte) (paysolResponse, map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return paysolResponse{}, nil, &GatewayFailure{Kind: FailureProtocol, Message: "empty response body"}
	}

	objectBytes := trimmed
	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return paysolResponse{}, nil, &GatewayFailure{Kind: FailureProtocol, Err: fmt.Errorf("decode array response: %w", err)}
		}
		if len(items) == 0 {
			return paysolResponse{}, nil, &GatewayFailure{Kind: FailureProtocol, Message: "empty array response"}
		}
		objectBytes = items[0]
	}

	var result paysolResponse
	if err := json.Unmarshal(objectBytes, &result); err != nil {
		return paysolResponse{}, nil, &GatewayFailure{Kind: FailureProtocol, Err: fmt.Errorf("decode response: %w", err)}
	}

	rawMap := map[string]any{}
	_ = json.Unmarshal(objectBytes, &rawMap)

	return result, rawMap, nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
