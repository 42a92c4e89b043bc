// Package dedup provides a once-only guard used to suppress duplicate side
// effects, such as re-sending a payment confirmation SMS when the gateway
// redelivers a webhook.
package dedup

import (
	"context"
	"time"
)

// DefaultTTL bounds how long a claimed key blocks repeat claims.
const DefaultTTL = 24 * time.Hour

// Store claims keys at most once within their TTL.
type Store interface {
	// Acquire attempts to claim the key. It returns true when the caller is
	// the first claimant and false when the key was already claimed.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
