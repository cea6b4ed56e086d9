package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipeSatisfiesSignable(t *testing.T) {
	r := &Recipe{ID: "r1", Enabled: true}
	var s Signable = r

	assert.Equal(t, KindRecipe, s.EntityKind())
	assert.Equal(t, "r1", s.EntityID())
	assert.True(t, s.Eligible())

	r.Enabled = false
	assert.False(t, s.Eligible())
}

func TestActionAlwaysEligible(t *testing.T) {
	var s Signable = &Action{ID: "a1"}
	assert.Equal(t, KindAction, s.EntityKind())
	assert.True(t, s.Eligible())
}

func TestRecipeContentExcludesEnabled(t *testing.T) {
	r := &Recipe{ID: "r1", Name: "n", Action: "preference-experiment", Revision: 1, Enabled: true}
	on, err := CanonicalPayload(r)
	require.NoError(t, err)

	r.Enabled = false
	off, err := CanonicalPayload(r)
	require.NoError(t, err)

	assert.Equal(t, on, off)
	assert.NotContains(t, string(on), "enabled")
}

func TestRecipeContentNilArguments(t *testing.T) {
	r := &Recipe{ID: "r1"}
	payload, err := CanonicalPayload(r)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"arguments":{}`)
}

func TestActionContentCarriesImplementationHash(t *testing.T) {
	a := &Action{ID: "a1", Name: "console-log", Implementation: "console.log(1)"}
	obj := a.Content()
	assert.Equal(t, String(ImplementationHash("console.log(1)")), obj["implementation_hash"])
}

func TestCanonicalPayloadStampsEntityID(t *testing.T) {
	r := &Recipe{ID: "r-bad", Arguments: Object{"x": nil}}

	_, err := CanonicalPayload(r)
	require.Error(t, err)

	var se *SerializationError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "r-bad", se.EntityID)
	assert.Equal(t, "$.arguments.x", se.Path)
	assert.Contains(t, err.Error(), "id=r-bad")
}

func TestIsStale(t *testing.T) {
	r := &Recipe{ID: "r1", Name: "before"}
	payload, err := CanonicalPayload(r)
	require.NoError(t, err)

	sig := &Signature{PayloadDigest: ContentDigest(KindRecipe, payload)}
	assert.False(t, IsStale(KindRecipe, sig, payload))
	assert.False(t, IsStale(KindRecipe, nil, payload))

	r.Name = "after"
	edited, err := CanonicalPayload(r)
	require.NoError(t, err)
	assert.True(t, IsStale(KindRecipe, sig, edited))
}

func TestSignatureAge(t *testing.T) {
	now := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	sig := &Signature{Timestamp: now.Add(-48 * time.Hour)}
	assert.Equal(t, 48*time.Hour, sig.Age(now))
}

func TestSignables(t *testing.T) {
	recipes := []*Recipe{{ID: "a"}, {ID: "b"}}
	out := Signables(recipes)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[1].EntityID())

	out[0].SetSignature(&Signature{Bytes: []byte("s")})
	assert.NotNil(t, recipes[0].Signature)
}
