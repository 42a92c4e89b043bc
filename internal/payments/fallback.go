package payments

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ProviderFallback identifies the degraded mode used without gateway access.
const ProviderFallback = "fallback"

// FallbackProvider synthesises transaction results without any network I/O.
// It keeps checkout alive when the gateway is unconfigured or failing; the
// returned URLs deliberately do not redirect anywhere real.
type FallbackProvider struct {
	clock  func() time.Time
	logger Logger
}

// FallbackOption customises the FallbackProvider.
type FallbackOption func(*FallbackProvider)

// WithFallbackClock overrides the time source, primarily for tests.
func WithFallbackClock(clock func() time.Time) FallbackOption {
	return func(p *FallbackProvider) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithFallbackLogger attaches an event logger.
func WithFallbackLogger(logger Logger) FallbackOption {
	return func(p *FallbackProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewFallbackProvider constructs the degraded-mode provider.
func NewFallbackProvider(opts ...FallbackOption) *FallbackProvider {
	p := &FallbackProvider{
		clock:  time.Now,
		logger: func(context.Context, string, map[string]any) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Name returns the gateway identifier recorded on payment rows.
func (p *FallbackProvider) Name() string { return ProviderFallback }

// CreateTransaction returns a clearly-marked synthetic result.
func (p *FallbackProvider) CreateTransaction(ctx context.Context, req TransactionRequest) (TransactionResult, error) {
	id := ulid.MustNew(ulid.Timestamp(p.clock().UTC()), rand.Reader)
	reference := strings.ToLower(SanitizeReference(req.OrderNo))

	result := TransactionResult{
		TransactionID: "MOCK-" + id.String(),
		PaymentURL:    fmt.Sprintf("#fallback-%s", reference),
		Fallback:      true,
		Raw: map[string]any{
			"fallback":  true,
			"reference": reference,
			"method":    string(req.Method),
		},
	}
	if req.Method == MethodQR {
		result.QRCodeURL = fmt.Sprintf("#fallback-qr-%s", reference)
	}

	p.logger(ctx, "payments.fallback.transaction_created", map[string]any{
		"reference":     reference,
		"transactionId": result.TransactionID,
	})

	return result, nil
}
