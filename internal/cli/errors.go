package cli

import (
	"context"
	"errors"

	"github.com/roach88/recipesync/internal/catalog"
	"github.com/roach88/recipesync/internal/ir"
	"github.com/roach88/recipesync/internal/remote"
	"github.com/roach88/recipesync/internal/signing"
)

// Error codes - unified across all CLI commands.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeConfig        = "E002" // Config load or validation failed
	ErrCodeDatabase      = "E003" // Database open/read/write failed
	ErrCodeCatalog       = "E004" // Catalog load or validation failed
	ErrCodeNotFound      = "E005" // Entity not found
	ErrCodeUsage         = "E006" // Bad flag or argument
	ErrCodeSerialization = "E101" // Content outside the encodable subset
	ErrCodeSignerFatal   = "E102" // Signer violated its contract
	ErrCodeSignerDown    = "E201" // Signer unavailable
	ErrCodeRemoteDown    = "E202" // Remote Settings unavailable or partial sync
	ErrCodeFindings      = "E301" // check found problems
)

// IsTransient reports whether a failed pass may succeed if retried.
// Serialization and signer protocol errors are fatal; signer and remote
// unavailability are transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if ir.IsSerializationError(err) || signing.IsProtocolError(err) {
		return false
	}
	return signing.IsUnavailable(err) || remote.IsTransient(err)
}

// errorCode maps an error to its CLI error code.
func errorCode(err error) string {
	var le *catalog.LoadError
	switch {
	case ir.IsSerializationError(err):
		return ErrCodeSerialization
	case signing.IsProtocolError(err):
		return ErrCodeSignerFatal
	case signing.IsUnavailable(err):
		return ErrCodeSignerDown
	case remote.IsTransient(err):
		return ErrCodeRemoteDown
	case errors.As(err, &le):
		return ErrCodeCatalog
	default:
		return ErrCodeGeneric
	}
}

// commandError reports a setup problem and returns exit code 2.
func commandError(f *OutputFormatter, code, message string, err error) error {
	_ = f.Error(code, message+": "+err.Error(), nil)
	return WrapExitError(ExitCommandError, message, err)
}

// passError reports a failed pass and returns exit code 1.
func passError(f *OutputFormatter, message string, err error, details any) error {
	_ = f.Error(errorCode(err), message+": "+err.Error(), details)
	return WrapExitError(ExitFailure, message, err)
}
