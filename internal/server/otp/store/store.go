// Package store keeps at most one live OTP per identity.
//
// Two variants exist: Memory (process-local, for development and tests) and
// Redis (shared, native per-key TTL). Both consume a code atomically on a
// successful Verify, so the same code can never be accepted twice.
package store

import (
	"context"
	"time"
)

// Store persists and verifies OTPs keyed by a normalised identity.
type Store interface {
	// Store replaces any live OTP for identity; it expires after ttl.
	Store(ctx context.Context, identity, code string, ttl time.Duration) error

	// Verify reports whether a live OTP for identity equals code. On true the
	// record is consumed; on false it is left as is. Backend failures wrap
	// common.ErrStoreUnavailable.
	Verify(ctx context.Context, identity, code string) (bool, error)
}

// Pinger is implemented by stores whose backend can be probed for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}
