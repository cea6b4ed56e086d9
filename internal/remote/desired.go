package remote

import (
	"encoding/base64"
	"time"

	"github.com/roach88/recipesync/internal/ir"
)

// DesiredSet returns the canonical payload of every enabled recipe, keyed
// by id. Disabled recipes are absent, which is what unpublishes them.
func DesiredSet(recipes []*ir.Recipe) (map[string][]byte, error) {
	desired := make(map[string][]byte, len(recipes))
	for _, r := range recipes {
		if !r.Enabled {
			continue
		}
		payload, err := RecordPayload(r)
		if err != nil {
			return nil, err
		}
		desired[r.ID] = payload
	}
	return desired, nil
}

// RecordPayload builds the published body of a recipe:
//
//	{"id": ..., "recipe": <signed content>, "signature": {"signature", "timestamp", "x5u"}}
//
// The signature object is omitted when the recipe has no current
// signature. A stale signature counts as none.
func RecordPayload(r *ir.Recipe) ([]byte, error) {
	content := r.Content()
	body := ir.ObjectOf(
		ir.P("id", ir.String(r.ID)),
		ir.P("recipe", content),
	)

	if sig := CurrentSignature(r); sig != nil {
		body["signature"] = ir.ObjectOf(
			ir.P("signature", ir.String(base64.RawURLEncoding.EncodeToString(sig.Bytes))),
			ir.P("timestamp", ir.String(sig.Timestamp.UTC().Truncate(time.Second).Format(time.RFC3339))),
			ir.P("x5u", ir.String(sig.PublicKeyRef)),
		)
	}

	payload, err := ir.MarshalCanonical(body)
	if err != nil {
		return nil, ir.WithEntity(err, r.ID)
	}
	return payload, nil
}

// CurrentSignature returns r's signature if it still covers r's content.
func CurrentSignature(r *ir.Recipe) *ir.Signature {
	if r.Signature == nil {
		return nil
	}
	payload, err := ir.CanonicalPayload(r)
	if err != nil || ir.IsStale(ir.KindRecipe, r.Signature, payload) {
		return nil
	}
	return r.Signature
}
