package ir

import "time"

// Kind names an entity variant.
type Kind string

const (
	KindRecipe Kind = "recipe"
	KindAction Kind = "action"
)

// Signature is the signing record attached to an entity.
//
// A Signature is valid only for the canonical payload it was created over.
// PayloadDigest pins that payload; when the entity's current content no
// longer hashes to it the signature is stale and is treated as absent.
type Signature struct {
	Bytes         []byte    `json:"signature"`
	Timestamp     time.Time `json:"timestamp"`
	PublicKeyRef  string    `json:"public_key_ref"`
	PayloadDigest string    `json:"payload_digest"`
}

// Age returns how long ago the signature was created.
func (s *Signature) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}

// Signable is the signing contract shared by Recipe and Action.
// The signing coordinator is written against this interface only.
type Signable interface {
	EntityKind() Kind
	EntityID() string
	// Eligible reports whether the entity should carry a signature.
	Eligible() bool
	// Content returns the signed portion of the entity.
	Content() Object
	CurrentSignature() *Signature
	SetSignature(sig *Signature)
}

// CanonicalPayload serializes an entity's content.
// Serialization errors carry the entity id.
func CanonicalPayload(e Signable) ([]byte, error) {
	payload, err := MarshalCanonical(e.Content())
	if err != nil {
		return nil, WithEntity(err, e.EntityID())
	}
	return payload, nil
}

// IsStale reports whether sig was created over content other than payload.
func IsStale(kind Kind, sig *Signature, payload []byte) bool {
	if sig == nil {
		return false
	}
	return sig.PayloadDigest != ContentDigest(kind, payload)
}

// Recipe maps a targeting condition to an action invocation.
type Recipe struct {
	ID               string
	Name             string
	Action           string
	FilterExpression string
	Arguments        Object
	Revision         int64
	Enabled          bool
	Signature        *Signature
}

func (r *Recipe) EntityKind() Kind             { return KindRecipe }
func (r *Recipe) EntityID() string             { return r.ID }
func (r *Recipe) Eligible() bool               { return r.Enabled }
func (r *Recipe) CurrentSignature() *Signature { return r.Signature }
func (r *Recipe) SetSignature(sig *Signature)  { r.Signature = sig }

// Content returns the recipe's signed fields. Enabled is deliberately
// excluded: toggling it never invalidates a signature.
func (r *Recipe) Content() Object {
	args := r.Arguments
	if args == nil {
		args = Object{}
	}
	return ObjectOf(
		P("id", String(r.ID)),
		P("name", String(r.Name)),
		P("action", String(r.Action)),
		P("filter_expression", String(r.FilterExpression)),
		P("arguments", args),
		P("revision", Int(r.Revision)),
	)
}

// Action is a named executable behavior referenced by recipes.
type Action struct {
	ID              string
	Name            string
	Implementation  string
	ArgumentsSchema Object
	Signature       *Signature
}

func (a *Action) EntityKind() Kind             { return KindAction }
func (a *Action) EntityID() string             { return a.ID }
func (a *Action) Eligible() bool               { return true }
func (a *Action) CurrentSignature() *Signature { return a.Signature }
func (a *Action) SetSignature(sig *Signature)  { a.Signature = sig }

// Content returns the action's signed fields.
func (a *Action) Content() Object {
	schema := a.ArgumentsSchema
	if schema == nil {
		schema = Object{}
	}
	return ObjectOf(
		P("id", String(a.ID)),
		P("name", String(a.Name)),
		P("implementation", String(a.Implementation)),
		P("implementation_hash", String(ImplementationHash(a.Implementation))),
		P("arguments_schema", schema),
	)
}

// Signables adapts a slice of concrete entities to the signing contract.
func Signables[E Signable](entities []E) []Signable {
	out := make([]Signable, len(entities))
	for i, e := range entities {
		out[i] = e
	}
	return out
}
