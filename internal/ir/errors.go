package ir

import (
	"errors"
	"fmt"
)

// SerializationError reports content outside the encodable subset.
// It is fatal: retrying cannot fix it, the authored content must change.
type SerializationError struct {
	// EntityID identifies the owning entity when known.
	EntityID string

	// Path locates the offending value, e.g. "$.arguments.ratio".
	Path string

	// Reason is a human-readable description.
	Reason string
}

func (e *SerializationError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("serialization: %s at %s (id=%s)", e.Reason, e.Path, e.EntityID)
	}
	return fmt.Sprintf("serialization: %s at %s", e.Reason, e.Path)
}

// IsSerializationError reports whether err wraps a *SerializationError.
func IsSerializationError(err error) bool {
	var se *SerializationError
	return errors.As(err, &se)
}

// WithEntity stamps an entity id onto a serialization error. Other
// errors are returned unchanged.
func WithEntity(err error, id string) error {
	var se *SerializationError
	if errors.As(err, &se) {
		cp := *se
		cp.EntityID = id
		return &cp
	}
	return err
}
