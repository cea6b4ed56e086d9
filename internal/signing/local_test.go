package signing

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recipesync/internal/ir"
	"github.com/roach88/recipesync/internal/testutil"
)

func testSeed() []byte {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	return seed
}

func TestLocalSigner_SignAndVerify(t *testing.T) {
	clock := testutil.NewFixedClock(time.Time{})
	s, err := NewLocalSigner(testSeed(), WithSigningClock(clock))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s.KeyRef(), "ed25519:"))

	payload := []byte(`{"id":"r1"}`)
	results, err := s.Sign(context.Background(), [][]byte{payload})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, testutil.Epoch, results[0].Timestamp)

	sig := &ir.Signature{Bytes: results[0].Signature, Timestamp: results[0].Timestamp, PublicKeyRef: results[0].PublicKeyRef}
	assert.NoError(t, s.Verify(payload, sig))
	assert.Error(t, s.Verify([]byte(`{"id":"r2"}`), sig))
	assert.Error(t, s.Verify(payload, nil))
}

func TestLocalSigner_TimestampIsSigned(t *testing.T) {
	s, err := NewLocalSigner(testSeed(), WithSigningClock(testutil.NewFixedClock(time.Time{})))
	require.NoError(t, err)

	payload := []byte("p")
	results, err := s.Sign(context.Background(), [][]byte{payload})
	require.NoError(t, err)

	sig := &ir.Signature{Bytes: results[0].Signature, Timestamp: results[0].Timestamp, PublicKeyRef: s.KeyRef()}
	require.NoError(t, s.Verify(payload, sig))

	backdated := *sig
	backdated.Timestamp = sig.Timestamp.Add(-week)
	assert.ErrorContains(t, s.Verify(payload, &backdated), "does not match")

	undated := *sig
	undated.Timestamp = time.Time{}
	assert.ErrorContains(t, s.Verify(payload, &undated), "no timestamp")
}

func TestLocalSigner_RenewalProducesNewSignature(t *testing.T) {
	clock := testutil.NewFixedClock(time.Time{})
	signer, err := NewLocalSigner(testSeed(), WithSigningClock(clock))
	require.NoError(t, err)
	c := NewCoordinator(signer, newMemoryStore(), WithClock(clock))
	ctx := context.Background()

	r := recipe("r1", true)
	_, err = c.Reconcile(ctx, ir.KindRecipe, ir.Signables([]*ir.Recipe{r}), Options{MaxAge: week})
	require.NoError(t, err)
	first := *r.Signature

	clock.Advance(week + time.Minute)
	report, err := c.Reconcile(ctx, ir.KindRecipe, ir.Signables([]*ir.Recipe{r}), Options{MaxAge: week})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, report.SignedIDs)

	renewed := r.Signature
	assert.NotEqual(t, first.Bytes, renewed.Bytes)
	assert.True(t, renewed.Timestamp.After(first.Timestamp))
	assert.Equal(t, clock.Now().Truncate(time.Second), renewed.Timestamp)

	payload, err := ir.CanonicalPayload(r)
	require.NoError(t, err)
	assert.NoError(t, signer.Verify(payload, renewed))
	assert.NoError(t, signer.Verify(payload, &first))
}

func TestLocalSigner_RejectsForeignKey(t *testing.T) {
	a, err := NewLocalSigner(testSeed())
	require.NoError(t, err)
	other := testSeed()
	other[0] = 0xff
	b, err := NewLocalSigner(other)
	require.NoError(t, err)

	results, err := a.Sign(context.Background(), [][]byte{[]byte("p")})
	require.NoError(t, err)

	err = b.Verify([]byte("p"), &ir.Signature{Bytes: results[0].Signature, Timestamp: results[0].Timestamp, PublicKeyRef: results[0].PublicKeyRef})
	assert.ErrorContains(t, err, "signed with")
}

func TestLocalSigner_BadSeed(t *testing.T) {
	_, err := NewLocalSigner([]byte("short"))
	assert.Error(t, err)
}

func TestLoadLocalSigner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.hex")
	require.NoError(t, os.WriteFile(path, []byte(hex.EncodeToString(testSeed())+"\n"), 0o600))

	loaded, err := LoadLocalSigner(path)
	require.NoError(t, err)
	direct, err := NewLocalSigner(testSeed())
	require.NoError(t, err)
	assert.Equal(t, direct.KeyRef(), loaded.KeyRef())

	_, err = LoadLocalSigner(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestGenerateSeed(t *testing.T) {
	seed, err := GenerateSeed()
	require.NoError(t, err)
	raw, err := hex.DecodeString(seed)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	_, err = NewLocalSigner(raw)
	assert.NoError(t, err)
}
