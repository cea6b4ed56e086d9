// Package signing keeps entity signatures current.
//
// The Coordinator decides per entity whether to sign, re-sign, unsign or
// leave it alone, asks a Signer for new signatures in batches, and writes
// the results to a SignatureStore. It emits no metrics itself; callers
// forward the Report to a metrics.Emitter.
//
// Signer implementations:
//   - AutographClient: remote signing service over HTTP
//   - LocalSigner: Ed25519 key on disk, for development and tests
//
// A pass is at-least-once with no rollback: batches that succeeded before
// a failure keep their signatures, and re-running the whole pass is safe
// because every decision is idempotent.
package signing
