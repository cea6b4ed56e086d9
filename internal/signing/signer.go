package signing

import (
	"context"
	"time"

	"github.com/roach88/recipesync/internal/ir"
)

// SignResult is one signature returned by a Signer.
type SignResult struct {
	// Signature holds the raw signature bytes.
	Signature []byte

	// Timestamp is the signer's creation time. Zero when the signer does
	// not echo one; the coordinator then uses the request time.
	Timestamp time.Time

	// PublicKeyRef identifies the key or certificate chain (e.g. an x5u URL).
	PublicKeyRef string
}

// Signer produces signatures over canonical payloads.
//
// Sign returns exactly one result per payload, in input order.
// Sign with no payloads must return an empty slice without contacting
// the service.
type Signer interface {
	Sign(ctx context.Context, payloads [][]byte) ([]SignResult, error)
}

// Verifier checks a signature against the payload it claims to cover.
type Verifier interface {
	Verify(payload []byte, sig *ir.Signature) error
}

// Clock supplies wall time for signature ages and request timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
