package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentDigestDeterminism(t *testing.T) {
	payload := []byte(`{"id":"r1"}`)

	d1 := ContentDigest(KindRecipe, payload)
	d2 := ContentDigest(KindRecipe, payload)

	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64, "SHA-256 hex is 64 characters")
}

func TestContentDigestDomainSeparation(t *testing.T) {
	payload := []byte(`{"id":"x"}`)

	assert.NotEqual(t, ContentDigest(KindRecipe, payload), ContentDigest(KindAction, payload))
}

func TestContentDigestFormat(t *testing.T) {
	payload := []byte(`{}`)

	h := sha256.New()
	h.Write([]byte(DomainAction))
	h.Write([]byte{0x00})
	h.Write(payload)

	assert.Equal(t, hex.EncodeToString(h.Sum(nil)), ContentDigest(KindAction, payload))
}

func TestImplementationHash(t *testing.T) {
	// sha256("")
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ImplementationHash(""))
	assert.NotEqual(t, ImplementationHash("a"), ImplementationHash("b"))
}

func TestDomainsCarryDigestVersion(t *testing.T) {
	assert.Equal(t, "recipesync/recipe/v1", DomainRecipe)
	assert.Equal(t, "recipesync/action/v1", DomainAction)
}
