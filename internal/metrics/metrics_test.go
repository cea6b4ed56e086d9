package metrics

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recipesync/internal/ir"
	"github.com/roach88/recipesync/internal/remote"
	"github.com/roach88/recipesync/internal/signing"
)

func TestEmitSigning(t *testing.T) {
	rec := NewRecorder()

	require.NoError(t, EmitSigning(rec, signing.Report{Kind: ir.KindRecipe, Signed: 3, Unsigned: 1}))
	require.NoError(t, EmitSigning(rec, signing.Report{Kind: ir.KindAction, Signed: 2}))

	tests := map[string]int{
		RecipesSigned:   3,
		RecipesUnsigned: 1,
		ActionsSigned:   2,
		ActionsUnsigned: 0,
	}
	for name, want := range tests {
		got, ok := rec.Value(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
}

func TestEmitSigning_UnknownKind(t *testing.T) {
	rec := NewRecorder()
	assert.Error(t, EmitSigning(rec, signing.Report{Kind: "widget"}))
	assert.Empty(t, rec.Names())
}

func TestEmitSync(t *testing.T) {
	rec := NewRecorder()
	EmitSync(rec, remote.SyncReport{Published: 4, Unpublished: 2})

	assert.Equal(t, []string{RemotePublished, RemoteUnpublished}, rec.Emissions())
	v, _ := rec.Value(RemotePublished)
	assert.Equal(t, 4, v)
}

func TestEmitSync_DryRunIsSilent(t *testing.T) {
	rec := NewRecorder()
	EmitSync(rec, remote.SyncReport{DryRun: true, ToPublish: []string{"a"}})
	assert.Empty(t, rec.Emissions())
}

func TestLogEmitter(t *testing.T) {
	var buf bytes.Buffer
	e := LogEmitter{Logger: slog.New(slog.NewTextHandler(&buf, nil)), Prefix: "normandy."}

	e.Gauge(RecipesSigned, 7)

	assert.Contains(t, buf.String(), "stat=normandy.signing.recipes.signed")
	assert.Contains(t, buf.String(), "value=7")
}
