package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"

	"github.com/roach88/recipesync/internal/ir"
)

// Catalog is a set of authored entities, sorted by name.
type Catalog struct {
	Actions []*ir.Action
	Recipes []*ir.Recipe
}

// LoadError reports a catalog that could not be read or understood.
type LoadError struct {
	// Entity is "actions.<name>" or "recipes.<name>" when known.
	Entity  string
	Message string
}

func (e *LoadError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("catalog: %s: %s", e.Entity, e.Message)
	}
	return "catalog: " + e.Message
}

// Load reads a catalog from a .cue, .yaml or .yml file, or from a
// directory holding a CUE package.
func Load(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("catalog not found: %v", err)}
	}

	var doc ir.Value
	switch {
	case info.IsDir():
		doc, err = loadCUEDir(path)
	case filepath.Ext(path) == ".cue":
		doc, err = loadCUEFile(path)
	case filepath.Ext(path) == ".yaml", filepath.Ext(path) == ".yml":
		doc, err = loadYAML(path)
	default:
		return nil, &LoadError{Message: fmt.Sprintf("unsupported catalog format %q", filepath.Ext(path))}
	}
	if err != nil {
		return nil, err
	}

	obj, ok := doc.(ir.Object)
	if !ok {
		return nil, &LoadError{Message: "top level must be a map"}
	}
	return fromObject(obj)
}

func loadCUEDir(dir string) (ir.Value, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Message: "no CUE instances loaded"}
	}
	if err := instances[0].Err; err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("loading CUE files: %v", err)}
	}
	return cueToValue(ctx.BuildInstance(instances[0]))
}

func loadCUEFile(path string) (ir.Value, error) {
	data, err := os.ReadFile(path) // #nosec G304 - operator-supplied catalog path
	if err != nil {
		return nil, &LoadError{Message: err.Error()}
	}
	ctx := cuecontext.New()
	return cueToValue(ctx.CompileBytes(data, cue.Filename(path)))
}

// cueToValue exports a concrete CUE value through JSON into the IR.
func cueToValue(v cue.Value) (ir.Value, error) {
	if err := v.Err(); err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("catalog is not concrete: %v", err)}
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("exporting CUE value: %v", err)}
	}
	return ir.DecodeValue(data)
}

func loadYAML(path string) (ir.Value, error) {
	data, err := os.ReadFile(path) // #nosec G304 - operator-supplied catalog path
	if err != nil {
		return nil, &LoadError{Message: err.Error()}
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("decode YAML: %v", err)}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return ir.FromGo(raw)
}

func fromObject(doc ir.Object) (*Catalog, error) {
	for _, k := range doc.SortedKeys() {
		if k != "actions" && k != "recipes" {
			return nil, &LoadError{Message: fmt.Sprintf("unknown top-level key %q", k)}
		}
	}

	cat := &Catalog{}
	actions, err := section(doc, "actions")
	if err != nil {
		return nil, err
	}
	for _, name := range actions.SortedKeys() {
		a, err := parseAction(name, actions[name])
		if err != nil {
			return nil, err
		}
		cat.Actions = append(cat.Actions, a)
	}

	recipes, err := section(doc, "recipes")
	if err != nil {
		return nil, err
	}
	for _, name := range recipes.SortedKeys() {
		r, err := parseRecipe(name, recipes[name])
		if err != nil {
			return nil, err
		}
		cat.Recipes = append(cat.Recipes, r)
	}
	return cat, nil
}

func section(doc ir.Object, key string) (ir.Object, error) {
	v, ok := doc[key]
	if !ok {
		return ir.Object{}, nil
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, &LoadError{Entity: key, Message: "must be a map keyed by name"}
	}
	return obj, nil
}

// fields reads typed fields from an entity body.
type fields struct {
	entity string
	obj    ir.Object
	seen   []string
}

func newFields(entity string, v ir.Value) (*fields, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, &LoadError{Entity: entity, Message: "must be a map"}
	}
	return &fields{entity: entity, obj: obj}, nil
}

func (f *fields) str(key string, required bool) (string, error) {
	f.seen = append(f.seen, key)
	v, ok := f.obj[key]
	if !ok {
		if required {
			return "", &LoadError{Entity: f.entity, Message: fmt.Sprintf("missing %s", key)}
		}
		return "", nil
	}
	s, ok := v.(ir.String)
	if !ok {
		return "", &LoadError{Entity: f.entity, Message: fmt.Sprintf("%s must be a string", key)}
	}
	return string(s), nil
}

func (f *fields) object(key string) (ir.Object, error) {
	f.seen = append(f.seen, key)
	v, ok := f.obj[key]
	if !ok {
		return ir.Object{}, nil
	}
	o, ok := v.(ir.Object)
	if !ok {
		return nil, &LoadError{Entity: f.entity, Message: fmt.Sprintf("%s must be a map", key)}
	}
	return o, nil
}

func (f *fields) boolean(key string) (bool, error) {
	f.seen = append(f.seen, key)
	v, ok := f.obj[key]
	if !ok {
		return false, nil
	}
	b, ok := v.(ir.Bool)
	if !ok {
		return false, &LoadError{Entity: f.entity, Message: fmt.Sprintf("%s must be a boolean", key)}
	}
	return bool(b), nil
}

// done rejects keys nothing asked for.
func (f *fields) done() error {
	var unknown []string
	for _, k := range f.obj.SortedKeys() {
		if !slices.Contains(f.seen, k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		return &LoadError{Entity: f.entity, Message: "unknown fields: " + strings.Join(unknown, ", ")}
	}
	return nil
}

func parseAction(name string, v ir.Value) (*ir.Action, error) {
	f, err := newFields("actions."+name, v)
	if err != nil {
		return nil, err
	}
	a := &ir.Action{Name: name}
	if a.ID, err = f.str("id", false); err != nil {
		return nil, err
	}
	if a.Implementation, err = f.str("implementation", false); err != nil {
		return nil, err
	}
	if a.ArgumentsSchema, err = f.object("arguments_schema"); err != nil {
		return nil, err
	}
	return a, f.done()
}

func parseRecipe(name string, v ir.Value) (*ir.Recipe, error) {
	f, err := newFields("recipes."+name, v)
	if err != nil {
		return nil, err
	}
	r := &ir.Recipe{Name: name}
	if r.ID, err = f.str("id", false); err != nil {
		return nil, err
	}
	if r.Action, err = f.str("action", true); err != nil {
		return nil, err
	}
	if r.FilterExpression, err = f.str("filter_expression", true); err != nil {
		return nil, err
	}
	if r.Arguments, err = f.object("arguments"); err != nil {
		return nil, err
	}
	if r.Enabled, err = f.boolean("enabled"); err != nil {
		return nil, err
	}
	return r, f.done()
}
