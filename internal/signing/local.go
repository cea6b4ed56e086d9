package signing

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/roach88/recipesync/internal/ir"
)

// LocalSigner signs with an Ed25519 key held in memory.
// Intended for development and tests; it never fails transiently.
//
// Ed25519 is deterministic, so the signed message is the payload followed
// by a NUL and the RFC 3339 signing time. Re-signing unchanged content at
// a later time therefore yields new bytes, and Verify rebuilds the message
// from the signature's Timestamp.
type LocalSigner struct {
	key    ed25519.PrivateKey
	keyRef string
	clock  Clock
}

// LocalOption customizes a LocalSigner.
type LocalOption func(*LocalSigner)

// WithSigningClock sets the clock that stamps signatures.
func WithSigningClock(c Clock) LocalOption {
	return func(s *LocalSigner) { s.clock = c }
}

// NewLocalSigner creates a signer from a 32-byte Ed25519 seed.
func NewLocalSigner(seed []byte, opts ...LocalOption) (*LocalSigner, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	key := ed25519.NewKeyFromSeed(seed)
	pub := key.Public().(ed25519.PublicKey)
	s := &LocalSigner{
		key:    key,
		keyRef: "ed25519:" + hex.EncodeToString(pub),
		clock:  SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LoadLocalSigner reads a hex-encoded seed from path.
func LoadLocalSigner(path string, opts ...LocalOption) (*LocalSigner, error) {
	data, err := os.ReadFile(path) // #nosec G304 - key path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	return NewLocalSigner(seed, opts...)
}

// GenerateSeed returns a fresh random seed, hex-encoded.
func GenerateSeed() (string, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return "", err
	}
	return hex.EncodeToString(seed), nil
}

// KeyRef returns the public key reference stamped on signatures.
func (s *LocalSigner) KeyRef() string {
	return s.keyRef
}

// Sign implements Signer.
func (s *LocalSigner) Sign(ctx context.Context, payloads [][]byte) ([]SignResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ts := s.clock.Now().UTC().Truncate(time.Second)
	results := make([]SignResult, len(payloads))
	for i, p := range payloads {
		results[i] = SignResult{
			Signature:    ed25519.Sign(s.key, stampedMessage(p, ts)),
			Timestamp:    ts,
			PublicKeyRef: s.keyRef,
		}
	}
	return results, nil
}

func stampedMessage(payload []byte, ts time.Time) []byte {
	stamp := ts.UTC().Format(time.RFC3339)
	msg := make([]byte, 0, len(payload)+1+len(stamp))
	msg = append(msg, payload...)
	msg = append(msg, 0)
	return append(msg, stamp...)
}

// Verify implements Verifier.
func (s *LocalSigner) Verify(payload []byte, sig *ir.Signature) error {
	if sig == nil {
		return fmt.Errorf("no signature")
	}
	if sig.PublicKeyRef != s.keyRef {
		return fmt.Errorf("signed with %q, verifier holds %q", sig.PublicKeyRef, s.keyRef)
	}
	if sig.Timestamp.IsZero() {
		return fmt.Errorf("signature has no timestamp")
	}
	if !ed25519.Verify(s.key.Public().(ed25519.PublicKey), stampedMessage(payload, sig.Timestamp), sig.Bytes) {
		return fmt.Errorf("signature does not match payload")
	}
	return nil
}
