// Package metrics reports pass outcomes as named gauges.
//
// Gauges are emitted by callers after each component finishes; the
// signing and remote packages never emit on their own.
package metrics

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/recipesync/internal/ir"
	"github.com/roach88/recipesync/internal/remote"
	"github.com/roach88/recipesync/internal/signing"
)

// Gauge names.
const (
	RecipesSigned     = "signing.recipes.signed"
	RecipesUnsigned   = "signing.recipes.unsigned"
	ActionsSigned     = "signing.actions.signed"
	ActionsUnsigned   = "signing.actions.unsigned"
	RemotePublished   = "remote_settings.published"
	RemoteUnpublished = "remote_settings.unpublished"
)

// Emitter receives gauge values.
type Emitter interface {
	Gauge(name string, value int)
}

// LogEmitter writes each gauge as a structured log line.
type LogEmitter struct {
	Logger *slog.Logger
	// Prefix is prepended to every name, e.g. "normandy.".
	Prefix string
}

// Gauge implements Emitter.
func (e LogEmitter) Gauge(name string, value int) {
	l := e.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("gauge", "stat", e.Prefix+name, "value", value)
}

// Recorder keeps the last value of each gauge in memory.
type Recorder struct {
	mu     sync.Mutex
	gauges map[string]int
	order  []string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{gauges: make(map[string]int)}
}

// Gauge implements Emitter.
func (r *Recorder) Gauge(name string, value int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = value
	r.order = append(r.order, name)
}

// Value returns the last value of name and whether it was emitted.
func (r *Recorder) Value(name string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.gauges[name]
	return v, ok
}

// Names returns emitted gauge names, sorted.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.gauges))
}

// Emissions returns gauge names in emission order, with repeats.
func (r *Recorder) Emissions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// EmitSigning reports a signing pass.
func EmitSigning(e Emitter, report signing.Report) error {
	switch report.Kind {
	case ir.KindRecipe:
		e.Gauge(RecipesSigned, report.Signed)
		e.Gauge(RecipesUnsigned, report.Unsigned)
	case ir.KindAction:
		e.Gauge(ActionsSigned, report.Signed)
		e.Gauge(ActionsUnsigned, report.Unsigned)
	default:
		return fmt.Errorf("unknown entity kind %q", report.Kind)
	}
	return nil
}

// EmitSync reports a sync pass. Dry runs emit nothing.
func EmitSync(e Emitter, report remote.SyncReport) {
	if report.DryRun {
		return
	}
	e.Gauge(RemotePublished, report.Published)
	e.Gauge(RemoteUnpublished, report.Unpublished)
}
