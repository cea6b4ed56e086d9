package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/recipesync/internal/catalog"
)

// ImportResult summarizes an import.
type ImportResult struct {
	Actions        int      `json:"actions"`
	Recipes        int      `json:"recipes"`
	ChangedRecipes []string `json:"changed_recipes,omitempty"`
}

func (r ImportResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Imported %d action(s) and %d recipe(s)", r.Actions, r.Recipes)
	if len(r.ChangedRecipes) > 0 {
		fmt.Fprintf(&b, "\n  %d recipe(s) new or changed; run update-signatures to sign them", len(r.ChangedRecipes))
	}
	return b.String()
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <catalog>",
		Short: "Load recipes and actions from a catalog into the database",
		Long: `Load authored recipes and actions from a .cue or .yaml file, or a
directory holding a CUE package, and write them to the database.

Recipe arguments are validated against their action's arguments_schema.
Entities are matched by name, so re-importing updates in place. A recipe
whose content changed gets a new revision; its old signature no longer
covers it and the next update-signatures run re-signs it.

Example:
  recipesync import ./catalog
  recipesync import recipes.yaml --config prod.toml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	cat, err := catalog.Load(path)
	if err != nil {
		return commandError(a.formatter, errorCodeOr(err, ErrCodeCatalog), "failed to load catalog", err)
	}
	a.formatter.VerboseLog("Loaded %d action(s) and %d recipe(s) from %s", len(cat.Actions), len(cat.Recipes), path)

	existingActions, err := a.store.ListActions(ctx)
	if err != nil {
		return commandError(a.formatter, ErrCodeDatabase, "failed to read actions", err)
	}
	existingRecipes, err := a.store.ListRecipes(ctx)
	if err != nil {
		return commandError(a.formatter, ErrCodeDatabase, "failed to read recipes", err)
	}

	if err := cat.Validate(existingActions); err != nil {
		return commandError(a.formatter, ErrCodeCatalog, "catalog is invalid", err)
	}

	ids := opts.IDs
	if ids == nil {
		ids = catalog.UUIDv7{}
	}
	cat.AssignIDs(existingActions, existingRecipes, ids)

	result := ImportResult{}
	for _, act := range cat.Actions {
		if err := a.store.UpsertAction(ctx, *act); err != nil {
			return commandError(a.formatter, errorCodeOr(err, ErrCodeDatabase), "failed to write action "+act.Name, err)
		}
		result.Actions++
	}
	for _, r := range cat.Recipes {
		revision, changed, err := a.store.UpsertRecipe(ctx, *r)
		if err != nil {
			return commandError(a.formatter, errorCodeOr(err, ErrCodeDatabase), "failed to write recipe "+r.Name, err)
		}
		result.Recipes++
		if changed {
			result.ChangedRecipes = append(result.ChangedRecipes, r.ID)
			a.logger.Info("recipe changed", "id", r.ID, "name", r.Name, "revision", revision)
		}
	}

	return a.formatter.Success(result)
}

// errorCodeOr returns the specific code for err, or fallback when err has
// no dedicated code.
func errorCodeOr(err error, fallback string) string {
	if code := errorCode(err); code != ErrCodeGeneric {
		return code
	}
	return fallback
}
