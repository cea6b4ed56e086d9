package signing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/recipesync/internal/ir"
)

// fakeSigner returns unique signature bytes per payload and records calls.
type fakeSigner struct {
	mu      sync.Mutex
	calls   [][][]byte
	counter int

	// failOnCall makes the n-th call (1-based) fail with err.
	failOnCall int
	err        error

	// drop removes results from the response to simulate a count mismatch.
	drop int
}

func (f *fakeSigner) Sign(_ context.Context, payloads [][]byte) ([]SignResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, payloads)
	if f.failOnCall > 0 && len(f.calls) == f.failOnCall {
		return nil, f.err
	}
	out := make([]SignResult, 0, len(payloads))
	for range payloads {
		f.counter++
		out = append(out, SignResult{
			Signature:    []byte(fmt.Sprintf("sig-%d", f.counter)),
			PublicKeyRef: "https://keys.example.com/chain.pem",
		})
	}
	return out[:len(out)-min(f.drop, len(out))], nil
}

func (f *fakeSigner) payloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += len(c)
	}
	return n
}

type storeKey struct {
	kind ir.Kind
	id   string
}

// memoryStore is an in-memory SignatureStore.
type memoryStore struct {
	sigs    map[storeKey]ir.Signature
	saves   int
	clears  int
	failErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sigs: make(map[storeKey]ir.Signature)}
}

func (m *memoryStore) SaveSignature(_ context.Context, kind ir.Kind, id string, sig ir.Signature) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.sigs[storeKey{kind, id}] = sig
	m.saves++
	return nil
}

func (m *memoryStore) ClearSignature(_ context.Context, kind ir.Kind, id string) error {
	if m.failErr != nil {
		return m.failErr
	}
	delete(m.sigs, storeKey{kind, id})
	m.clears++
	return nil
}

var errNetwork = errors.New("dial tcp: connection refused")
