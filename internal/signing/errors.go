package signing

import (
	"errors"
	"fmt"
)

// SignerProtocolError reports a Signer response that violates the
// contract (wrong count, empty signature, undecodable body). Fatal: the
// pass stops and the error is not retried.
type SignerProtocolError struct {
	// EntityID identifies the offending entity when known.
	EntityID string

	// Expected and Got are result counts for count mismatches.
	Expected int
	Got      int

	// Message is a human-readable description.
	Message string
}

func (e *SignerProtocolError) Error() string {
	switch {
	case e.EntityID != "":
		return fmt.Sprintf("signer protocol: %s (id=%s)", e.Message, e.EntityID)
	case e.Expected != e.Got:
		return fmt.Sprintf("signer protocol: %s (expected %d results, got %d)", e.Message, e.Expected, e.Got)
	default:
		return fmt.Sprintf("signer protocol: %s", e.Message)
	}
}

// SigningUnavailable reports a transient Signer failure (network, 5xx).
// The remaining signing work of the pass was abandoned; retrying the whole
// pass is safe.
type SigningUnavailable struct {
	// Pending is the number of entities left unsigned by this failure.
	Pending int

	Cause error
}

func (e *SigningUnavailable) Error() string {
	return fmt.Sprintf("signer unavailable (%d pending): %v", e.Pending, e.Cause)
}

func (e *SigningUnavailable) Unwrap() error {
	return e.Cause
}

// IsProtocolError reports whether err wraps a *SignerProtocolError.
func IsProtocolError(err error) bool {
	var pe *SignerProtocolError
	return errors.As(err, &pe)
}

// IsUnavailable reports whether err wraps a *SigningUnavailable.
func IsUnavailable(err error) bool {
	var ue *SigningUnavailable
	return errors.As(err, &ue)
}
