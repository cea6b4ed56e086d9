package signing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/recipesync/internal/ir"
)

// SignatureStore persists signature changes made by the Coordinator.
// Implemented by *store.Store.
type SignatureStore interface {
	SaveSignature(ctx context.Context, kind ir.Kind, id string, sig ir.Signature) error
	ClearSignature(ctx context.Context, kind ir.Kind, id string) error
}

// Options configure a single Reconcile pass. They are passed per call so
// the coordinator holds no mutable settings.
type Options struct {
	// MaxAge is the signature lifetime. Signatures at least this old are
	// re-signed. Zero or negative disables age-based re-signing.
	MaxAge time.Duration

	// Force re-signs every eligible entity regardless of freshness.
	Force bool

	// BatchSize caps payloads per Signer call. Zero means one call.
	BatchSize int
}

// Report summarizes a Reconcile pass.
type Report struct {
	Kind        ir.Kind
	Signed      int
	Unsigned    int
	Unchanged   int
	SignedIDs   []string
	UnsignedIDs []string
}

// Coordinator keeps signatures current for one kind of entity per call.
type Coordinator struct {
	signer Signer
	store  SignatureStore
	clock  Clock
	logger *slog.Logger
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithClock overrides the wall clock (tests).
func WithClock(c Clock) CoordinatorOption {
	return func(co *Coordinator) { co.clock = c }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(co *Coordinator) { co.logger = l }
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(signer Signer, store SignatureStore, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		signer: signer,
		store:  store,
		clock:  SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type decision int

const (
	keep decision = iota
	sign
	unsign
)

type pending struct {
	entity  ir.Signable
	payload []byte
}

// Reconcile brings the signatures of entities in line with the decision
// table:
//
//	eligible, no signature or stale    -> sign
//	eligible, fresh, not forced        -> keep
//	eligible, age >= MaxAge            -> re-sign
//	eligible, forced                   -> re-sign
//	not eligible, signed               -> unsign
//	not eligible, unsigned             -> keep
//
// Unsigns are applied first and never touch the Signer, so they happen
// even when the Signer is down. Signing then proceeds batch by batch; a
// Signer failure aborts the remaining batches and is returned together
// with the partial Report. Work already persisted is not rolled back.
//
// Every entity is serialized before anything is mutated, so a
// *ir.SerializationError halts the pass with no side effects.
func (c *Coordinator) Reconcile(ctx context.Context, kind ir.Kind, entities []ir.Signable, opts Options) (Report, error) {
	report := Report{Kind: kind}
	now := c.clock.Now()

	var toSign []pending
	var toUnsign []ir.Signable

	for _, e := range entities {
		d, payload, reason, err := c.decide(e, opts, now)
		if err != nil {
			return report, err
		}
		switch d {
		case sign:
			c.logger.Debug("signature needed", "kind", kind, "id", e.EntityID(), "reason", reason)
			toSign = append(toSign, pending{entity: e, payload: payload})
		case unsign:
			c.logger.Debug("signature to clear", "kind", kind, "id", e.EntityID(), "reason", reason)
			toUnsign = append(toUnsign, e)
		default:
			report.Unchanged++
		}
	}

	for _, e := range toUnsign {
		if err := c.store.ClearSignature(ctx, kind, e.EntityID()); err != nil {
			return report, err
		}
		e.SetSignature(nil)
		report.Unsigned++
		report.UnsignedIDs = append(report.UnsignedIDs, e.EntityID())
	}

	for _, batch := range batches(toSign, opts.BatchSize) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := c.signBatch(ctx, kind, batch, &report); err != nil {
			var ue *SigningUnavailable
			if errors.As(err, &ue) {
				ue.Pending = len(toSign) - report.Signed
			}
			return report, err
		}
	}

	c.logger.Info("signatures reconciled",
		"kind", kind,
		"signed", report.Signed,
		"unsigned", report.Unsigned,
		"unchanged", report.Unchanged,
	)
	return report, nil
}

// decide applies the decision table to one entity.
func (c *Coordinator) decide(e ir.Signable, opts Options, now time.Time) (decision, []byte, string, error) {
	sig := e.CurrentSignature()

	if !e.Eligible() {
		if sig != nil {
			return unsign, nil, "not eligible", nil
		}
		return keep, nil, "", nil
	}

	payload, err := ir.CanonicalPayload(e)
	if err != nil {
		return keep, nil, "", err
	}

	switch {
	case sig == nil:
		return sign, payload, "unsigned", nil
	case ir.IsStale(e.EntityKind(), sig, payload):
		return sign, payload, "content changed", nil
	case opts.Force:
		return sign, payload, "forced", nil
	case opts.MaxAge > 0 && sig.Age(now) >= opts.MaxAge:
		return sign, payload, "expired", nil
	}
	return keep, nil, "", nil
}

func (c *Coordinator) signBatch(ctx context.Context, kind ir.Kind, batch []pending, report *Report) error {
	payloads := make([][]byte, len(batch))
	for i, p := range batch {
		payloads[i] = p.payload
	}

	requestedAt := c.clock.Now()
	results, err := c.signer.Sign(ctx, payloads)
	if err != nil {
		if IsProtocolError(err) || IsUnavailable(err) {
			return err
		}
		return &SigningUnavailable{Cause: err}
	}
	if len(results) != len(batch) {
		return &SignerProtocolError{
			Expected: len(batch),
			Got:      len(results),
			Message:  "result count does not match request",
		}
	}

	for i, res := range results {
		if len(res.Signature) == 0 {
			return &SignerProtocolError{EntityID: batch[i].entity.EntityID(), Message: "empty signature"}
		}
	}

	for i, res := range results {
		e := batch[i].entity
		ts := res.Timestamp
		if ts.IsZero() {
			ts = requestedAt
		}
		sig := ir.Signature{
			Bytes:         res.Signature,
			Timestamp:     ts.UTC(),
			PublicKeyRef:  res.PublicKeyRef,
			PayloadDigest: ir.ContentDigest(kind, batch[i].payload),
		}
		if err := c.store.SaveSignature(ctx, kind, e.EntityID(), sig); err != nil {
			return fmt.Errorf("persist signature: %w", err)
		}
		e.SetSignature(&sig)
		report.Signed++
		report.SignedIDs = append(report.SignedIDs, e.EntityID())
	}
	return nil
}

// batches splits work into chunks of at most size items. size <= 0 yields
// a single batch.
func batches(work []pending, size int) [][]pending {
	if len(work) == 0 {
		return nil
	}
	if size <= 0 || size >= len(work) {
		return [][]pending{work}
	}
	var out [][]pending
	for start := 0; start < len(work); start += size {
		end := min(start+size, len(work))
		out = append(out, work[start:end])
	}
	return out
}
