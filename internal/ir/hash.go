package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content digests.
const (
	DomainRecipe = "recipesync/recipe/" + DigestVersion
	DomainAction = "recipesync/action/" + DigestVersion
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentDigest returns the digest recorded on a Signature for the
// canonical payload of an entity of the given kind.
func ContentDigest(kind Kind, payload []byte) string {
	switch kind {
	case KindAction:
		return hashWithDomain(DomainAction, payload)
	default:
		return hashWithDomain(DomainRecipe, payload)
	}
}

// ImplementationHash returns the plain SHA-256 hex digest of an action's
// implementation source. Clients use it to check downloaded code.
func ImplementationHash(implementation string) string {
	sum := sha256.Sum256([]byte(implementation))
	return hex.EncodeToString(sum[:])
}
