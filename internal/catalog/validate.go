package catalog

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/roach88/recipesync/internal/ir"
)

// Validate checks every recipe against its action. Actions are looked up
// in the catalog first, then in known (typically the store's contents).
// All problems are reported together.
func (c *Catalog) Validate(known []*ir.Action) error {
	byName := make(map[string]*ir.Action, len(known)+len(c.Actions))
	for _, a := range known {
		byName[a.Name] = a
	}
	for _, a := range c.Actions {
		byName[a.Name] = a
	}

	schemas := make(map[string]*jsonschema.Schema)
	broken := make(map[string]bool)
	var errs []error
	for _, a := range c.Actions {
		s, err := compileSchema(a)
		if err != nil {
			errs = append(errs, err)
			broken[a.Name] = true
			continue
		}
		schemas[a.Name] = s
	}

	for _, r := range c.Recipes {
		entity := "recipes." + r.Name
		a, ok := byName[r.Action]
		if !ok {
			errs = append(errs, &LoadError{Entity: entity, Message: fmt.Sprintf("unknown action %q", r.Action)})
			continue
		}
		if broken[a.Name] {
			continue
		}
		s, ok := schemas[a.Name]
		if !ok {
			var err error
			if s, err = compileSchema(a); err != nil {
				errs = append(errs, err)
				broken[a.Name] = true
				continue
			}
			schemas[a.Name] = s
		}
		if err := s.Validate(ir.ToGo(r.Arguments)); err != nil {
			errs = append(errs, &LoadError{Entity: entity, Message: fmt.Sprintf("arguments do not match %s schema: %v", a.Name, err)})
		}
	}
	return errors.Join(errs...)
}

func compileSchema(a *ir.Action) (*jsonschema.Schema, error) {
	schema := a.ArgumentsSchema
	if schema == nil {
		schema = ir.Object{}
	}
	data, err := ir.MarshalCanonical(schema)
	if err != nil {
		return nil, ir.WithEntity(err, a.Name)
	}

	url := "recipesync://actions/" + a.Name + "/arguments_schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, &LoadError{Entity: "actions." + a.Name, Message: fmt.Sprintf("add schema: %v", err)}
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, &LoadError{Entity: "actions." + a.Name, Message: fmt.Sprintf("compile arguments_schema: %v", err)}
	}
	return s, nil
}
