package remote

import (
	"errors"
	"fmt"
)

// Op names a mutation issued against a collection.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// RemoteUnavailable reports that the collection could not be listed or
// approved. Transient: nothing was lost and the pass can be retried.
type RemoteUnavailable struct {
	// Op is "list" or "approve".
	Op    string
	Cause error
}

func (e *RemoteUnavailable) Error() string {
	return fmt.Sprintf("remote settings unavailable (%s): %v", e.Op, e.Cause)
}

func (e *RemoteUnavailable) Unwrap() error {
	return e.Cause
}

// SyncPartialFailure reports the first mutation that failed. Mutations
// issued before it remain in the workspace unapproved; the next pass
// re-diffs and converges.
type SyncPartialFailure struct {
	ID    string
	Op    Op
	Cause error
}

func (e *SyncPartialFailure) Error() string {
	return fmt.Sprintf("sync failed to %s record %s: %v", e.Op, e.ID, e.Cause)
}

func (e *SyncPartialFailure) Unwrap() error {
	return e.Cause
}

// HTTPError is a non-2xx response from a Remote Settings server.
type HTTPError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// IsTransient reports whether err is a remote failure worth retrying.
func IsTransient(err error) bool {
	var ru *RemoteUnavailable
	var pf *SyncPartialFailure
	return errors.As(err, &ru) || errors.As(err, &pf)
}
