package catalog

import (
	"github.com/google/uuid"

	"github.com/roach88/recipesync/internal/ir"
)

// IDGenerator mints ids for new entities.
type IDGenerator interface {
	NewID() string
}

// UUIDv7 generates time-ordered UUIDs.
type UUIDv7 struct{}

// NewID implements IDGenerator.
func (UUIDv7) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// AssignIDs fills in missing ids. An entity that already exists under the
// same name keeps that id so re-importing a catalog updates in place;
// anything else gets a fresh id from gen.
func (c *Catalog) AssignIDs(actions []*ir.Action, recipes []*ir.Recipe, gen IDGenerator) {
	actionIDs := make(map[string]string, len(actions))
	for _, a := range actions {
		actionIDs[a.Name] = a.ID
	}
	recipeIDs := make(map[string]string, len(recipes))
	for _, r := range recipes {
		if _, dup := recipeIDs[r.Name]; !dup {
			recipeIDs[r.Name] = r.ID
		}
	}

	for _, a := range c.Actions {
		if a.ID != "" {
			continue
		}
		if id, ok := actionIDs[a.Name]; ok {
			a.ID = id
		} else {
			a.ID = gen.NewID()
		}
	}
	for _, r := range c.Recipes {
		if r.ID != "" {
			continue
		}
		if id, ok := recipeIDs[r.Name]; ok {
			r.ID = id
		} else {
			r.ID = gen.NewID()
		}
	}
}
